package room

import (
	"pokertable-server/pkg/deck"
	"pokertable-server/pkg/table"
)

// MessageType identifies a message on the wire
type MessageType string

// messages a client sends
const (
	JoinRoom  MessageType = "join_room"
	LeaveRoom MessageType = "leave_room"
	Sit       MessageType = "sit"
	Stand     MessageType = "stand"
	StartHand MessageType = "start_hand"
	Fold      MessageType = "fold"
	Check     MessageType = "check"
	Call      MessageType = "call"
	Raise     MessageType = "raise"
)

// messages the server sends
const (
	RoomStateMessage       MessageType = "room_state"
	PlayerJoinedMessage    MessageType = "player_joined"
	PlayerLeftMessage      MessageType = "player_left"
	DealCardsMessage       MessageType = "deal_cards"
	ActionBroadcastMessage MessageType = "action_broadcast"
	WinnerMessage          MessageType = "winner"
	ErrorMessage           MessageType = "error"
)

// PayloadIn is the format we expect from the client
type PayloadIn struct {
	Type     MessageType `json:"type"`
	RoomID   string      `json:"roomId"`
	PlayerID string      `json:"playerId"`
	// Amount is the buy-in for sit, or the total to raise to
	Amount      int64  `json:"amount,omitempty"`
	Seat        *int   `json:"seat,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	// Context will be passed back on any error
	Context string `json:"context,omitempty"`
}

// actionType returns the betting action for the message, if it is one
func (p *PayloadIn) actionType() (table.ActionType, bool) {
	switch p.Type {
	case Fold:
		return table.Fold, true
	case Check:
		return table.Check, true
	case Call:
		return table.Call, true
	case Raise:
		return table.Raise, true
	}

	return "", false
}

// Response is the envelope of every outgoing message
type Response struct {
	Type    MessageType `json:"type"`
	RoomID  string      `json:"roomId"`
	Context string      `json:"context,omitempty"`
}

// RoomState is the public state of the room
type RoomState struct {
	Response
	Players   []table.PlayerState `json:"players"`
	Pot       int64               `json:"pot"`
	GameState table.GameState     `json:"gameState"`
	Log       []*LogMessage       `json:"log"`
	// Settling is true while hand results are waiting on the ledger
	Settling bool `json:"settling"`
}

// PlayerPresence is sent when a player joins or leaves the room
type PlayerPresence struct {
	Response
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName,omitempty"`
}

// DealCards are a player's hole cards. It is only sent to that player.
type DealCards struct {
	Response
	PlayerID string    `json:"playerId"`
	HandID   string    `json:"handId"`
	Cards    deck.Hand `json:"cards"`
}

// ActionBroadcast tells the room what a player did
type ActionBroadcast struct {
	Response
	PlayerID string           `json:"playerId"`
	Seat     int              `json:"seat"`
	Action   table.ActionType `json:"action"`
	Amount   int64            `json:"amount,omitempty"`
	AllIn    bool             `json:"allIn"`
	Seq      uint64           `json:"seq"`
	// Auto is set when the server acted for the player, i.e., "timeout"
	Auto string `json:"auto,omitempty"`
}

// Winner is sent when a hand ends
type Winner struct {
	Response
	HandID   string            `json:"handId"`
	Winners  []table.Winner    `json:"winners"`
	Pot      int64             `json:"pot"`
	Rake     int64             `json:"rake"`
	Pots     []table.PotResult `json:"pots"`
	Board    deck.Hand         `json:"board"`
	Showdown bool              `json:"showdown"`
}

// ErrorResponse is sent only to the client whose message failed
type ErrorResponse struct {
	Response
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
