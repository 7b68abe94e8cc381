package util

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

var adjectives = []string{
	"Lucky", "Tilted", "Stoic", "Bluffing", "Patient", "Loose", "Tight", "Sly", "Grinning", "Quiet",
	"Reckless", "Steady", "Nervous", "Shady", "Golden", "Silver", "Crimson", "Midnight", "Wild", "Cool",
}

var nicknames = []string{
	"Shark", "Fish", "Whale", "Rounder", "Grinder", "Nit", "Maniac", "Donkey", "Rock", "Cowboy",
	"Ace", "King", "Queen", "Jack", "Kicker", "River Rat", "Dealer", "Gambler", "Hustler", "Caller",
}

var (
	random     = rand.New(rand.NewSource(time.Now().UnixNano())) // nolint:gosec
	randomLock sync.Mutex
)

// GetRandomName returns a table name for a player who did not pick one
func GetRandomName() string {
	randomLock.Lock()
	defer randomLock.Unlock()

	adjective := adjectives[random.Intn(len(adjectives))]
	nickname := nicknames[random.Intn(len(nicknames))]

	return fmt.Sprintf("%s %s", adjective, nickname)
}
