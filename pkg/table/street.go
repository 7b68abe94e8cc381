package table

import "encoding/json"

// Street is the state of the hand
type Street int

// constants for Street
const (
	Waiting Street = iota
	Preflop
	Flop
	Turn
	River
	Showdown
)

func (s Street) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Preflop:
		return "preflop"
	case Flop:
		return "flop"
	case Turn:
		return "turn"
	case River:
		return "river"
	case Showdown:
		return "showdown"
	}

	return ""
}

// IsBetting returns true if players can act on this street
func (s Street) IsBetting() bool {
	return s >= Preflop && s <= River
}

// MarshalJSON encodes JSON
func (s Street) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// cardsFor is the number of community cards dealt when the street begins
func (s Street) cardsFor() int {
	switch s {
	case Flop:
		return 3
	case Turn, River:
		return 1
	}

	return 0
}
