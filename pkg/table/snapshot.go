package table

import "pokertable-server/pkg/deck"

// Blinds are the forced bets
type Blinds struct {
	Small int64 `json:"small"`
	Big   int64 `json:"big"`
}

// GameState is the public state of the hand
type GameState struct {
	TableID      string    `json:"tableId"`
	TournamentID string    `json:"tournamentId,omitempty"`
	HandID       string    `json:"handId,omitempty"`
	HandNumber   int       `json:"handNumber"`
	Street       Street    `json:"street"`
	Button       int       `json:"button"`
	Board        deck.Hand `json:"board"`
	CurrentBet   int64     `json:"currentBet"`
	MinRaise     int64     `json:"minRaise"`
	ToAct        *int      `json:"toAct"`
	Seq          uint64    `json:"seq"`
	Capacity     int       `json:"capacity"`
	Blinds       Blinds    `json:"blinds"`
}

// Snapshot is everything a spectator is allowed to see
type Snapshot struct {
	Players   []PlayerState `json:"players"`
	Pot       int64         `json:"pot"`
	GameState GameState     `json:"gameState"`
}

// Snapshot returns the public view of the table. Hole cards are never included.
func (t *Table) Snapshot() Snapshot {
	var toAct *int
	if t.toAct >= 0 {
		seat := t.toAct
		toAct = &seat
	}

	return Snapshot{
		Players: t.Players(),
		Pot:     t.pot,
		GameState: GameState{
			TableID:      t.id,
			TournamentID: t.options.TournamentID,
			HandID:       t.HandID(),
			HandNumber:   t.handNumber,
			Street:       t.street,
			Button:       t.button,
			Board:        t.board.Clone(),
			CurrentBet:   t.currentBet,
			MinRaise:     t.minRaise,
			ToAct:        toAct,
			Seq:          t.seq,
			Capacity:     t.options.Capacity,
			Blinds: Blinds{
				Small: t.options.SmallBlind,
				Big:   t.options.BigBlind,
			},
		},
	}
}
