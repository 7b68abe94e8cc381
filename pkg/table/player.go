package table

import (
	"time"

	"pokertable-server/pkg/deck"
)

// PlayerInfo identifies a player sitting down
type PlayerInfo struct {
	ID          string
	DisplayName string
}

// Player is a seated player
type Player struct {
	PlayerInfo
	seat  int
	stack int64

	inHand bool
	folded bool
	allIn  bool
	acted  bool

	// committed is the amount bet on the current street
	committed int64
	// contributed is the amount put in the pot this hand
	contributed int64

	cards deck.Hand

	leaving        bool
	disconnectedAt time.Time
}

// canAct returns true if the player can still make betting decisions this hand
func (p *Player) canAct() bool {
	return p.inHand && !p.folded && !p.allIn
}

// isActive returns true if the player is still contesting the pot
func (p *Player) isActive() bool {
	return p.inHand && !p.folded
}

// commit moves chips from the stack into the pot
func (p *Player) commit(amount int64) int64 {
	if amount > p.stack {
		amount = p.stack
	}

	p.stack -= amount
	p.committed += amount
	p.contributed += amount
	if p.stack == 0 {
		p.allIn = true
	}

	return amount
}

func (p *Player) resetForHand() {
	p.inHand = true
	p.folded = false
	p.allIn = false
	p.acted = false
	p.committed = 0
	p.contributed = 0
	p.cards = make(deck.Hand, 0, 2)
}

func (p *Player) resetForStreet() {
	p.acted = false
	p.committed = 0
}

// PlayerState is the public view of a player
type PlayerState struct {
	ID             string    `json:"id"`
	DisplayName    string    `json:"displayName"`
	Seat           int       `json:"seat"`
	Stack          int64     `json:"stack"`
	Bet            int64     `json:"bet"`
	InHand         bool      `json:"inHand"`
	Folded         bool      `json:"folded"`
	AllIn          bool      `json:"allIn"`
	Acted          bool      `json:"acted"`
	Connected      bool      `json:"connected"`
	Leaving        bool      `json:"leaving"`
	DisconnectedAt time.Time `json:"-"`
}

func (p *Player) state() PlayerState {
	return PlayerState{
		ID:             p.ID,
		DisplayName:    p.DisplayName,
		Seat:           p.seat,
		Stack:          p.stack,
		Bet:            p.committed,
		InHand:         p.inHand,
		Folded:         p.folded,
		AllIn:          p.allIn,
		Acted:          p.acted,
		Connected:      p.disconnectedAt.IsZero(),
		Leaving:        p.leaving,
		DisconnectedAt: p.disconnectedAt,
	}
}
