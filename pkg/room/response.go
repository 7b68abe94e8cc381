package room

import (
	"pokertable-server/pkg/apperror"
)

// NewErrorResponse returns the error message sent to a single client
func NewErrorResponse(roomID, ctx string, err error) *ErrorResponse {
	return &ErrorResponse{
		Response: Response{
			Type:    ErrorMessage,
			RoomID:  roomID,
			Context: ctx,
		},
		Kind:    string(apperror.KindOf(err)),
		Message: apperror.MessageOf(err),
	}
}

func newPresence(t MessageType, roomID string, c *Client) *PlayerPresence {
	return &PlayerPresence{
		Response: Response{
			Type:   t,
			RoomID: roomID,
		},
		PlayerID:    c.playerID,
		DisplayName: c.DisplayName(),
	}
}
