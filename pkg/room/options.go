package room

import (
	"time"

	"pokertable-server/pkg/ledger"
	"pokertable-server/pkg/table"
)

// Options configure every room the PitBoss opens
type Options struct {
	Table        table.Options
	Denomination ledger.Denomination
	// HouseAccount is the ledger player that collects rake
	HouseAccount string

	// ReconnectGrace is how long a disconnected player keeps their seat
	ReconnectGrace time.Duration
	// TurnTimeout is how long a player has to act. Zero disables it.
	TurnTimeout time.Duration
	// RoomGrace is how long an empty room is kept before it is reaped
	RoomGrace     time.Duration
	NextHandDelay time.Duration
	TickInterval  time.Duration
	LedgerTimeout time.Duration
	AutoStart     bool
}

// DefaultOptions returns the default room options
func DefaultOptions() Options {
	return Options{
		Table:          table.DefaultOptions(),
		Denomination:   ledger.GLD,
		HouseAccount:   "house",
		ReconnectGrace: 30 * time.Second,
		TurnTimeout:    30 * time.Second,
		RoomGrace:      60 * time.Second,
		NextHandDelay:  5 * time.Second,
		TickInterval:   time.Second,
		LedgerTimeout:  5 * time.Second,
		AutoStart:      false,
	}
}
