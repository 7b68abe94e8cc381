package table

import (
	"pokertable-server/pkg/deck"
	"pokertable-server/pkg/rake"
)

// ActionResult describes what happened when an action was applied
type ActionResult struct {
	Seat     int        `json:"seat"`
	PlayerID string     `json:"playerId"`
	Action   ActionType `json:"action"`
	// Amount is the chips called, or the total raised to
	Amount int64  `json:"amount,omitempty"`
	AllIn  bool   `json:"allIn"`
	Street Street `json:"street"`
	Seq    uint64 `json:"seq"`

	StreetChanged bool      `json:"streetChanged"`
	NewStreet     Street    `json:"newStreet"`
	Dealt         deck.Hand `json:"dealt,omitempty"`

	// HandResult is set if the action ended the hand
	HandResult *HandResult `json:"-"`
}

// PotResult is how a single pot was awarded
type PotResult struct {
	Amount    int64 `json:"amount"`
	Eligible  []int `json:"eligible"`
	Winners   []int `json:"winners"`
	Contested bool  `json:"contested"`
}

// Winner is a player who won chips from a contested pot
type Winner struct {
	PlayerID string    `json:"playerId"`
	Seat     int       `json:"seat"`
	Amount   int64     `json:"amount"`
	Hand     string    `json:"hand,omitempty"`
	Cards    deck.Hand `json:"cards,omitempty"`
}

// Participant is a dealt-in player's chip movement for the hand
type Participant struct {
	PlayerID string `json:"playerId"`
	Seat     int    `json:"seat"`
	// Contributed is everything the player put in the pot
	Contributed int64 `json:"contributed"`
	// Won is everything returned to the player's stack, including Refund
	Won int64 `json:"won"`
	// Refund is the player's uncalled bet
	Refund int64 `json:"refund"`
	Stack  int64 `json:"stack"`
}

// Vacated is a player that was removed from the table when the hand ended
type Vacated struct {
	PlayerID string `json:"playerId"`
	Seat     int    `json:"seat"`
	Stack    int64  `json:"stack"`
}

// HandResult is the outcome of a hand
type HandResult struct {
	HandID       string        `json:"handId"`
	HandNumber   int           `json:"handNumber"`
	TableID      string        `json:"tableId"`
	Pot          int64         `json:"pot"`
	Rake         rake.Result   `json:"rake"`
	SawFlop      bool          `json:"sawFlop"`
	Showdown     bool          `json:"showdown"`
	Board        deck.Hand     `json:"board"`
	Pots         []PotResult   `json:"pots"`
	Winners      []Winner      `json:"winners"`
	Participants []Participant `json:"participants"`
	Vacated      []Vacated     `json:"vacated,omitempty"`
}
