// Package apperror holds the error kinds shared by the table, ledger and room packages.
// Every error that reaches a client carries one of these kinds.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a machine readable error category
type Kind string

// error kinds
const (
	SeatTaken         Kind = "SeatTaken"
	InvalidState      Kind = "InvalidState"
	NotYourTurn       Kind = "NotYourTurn"
	IllegalAction     Kind = "IllegalAction"
	InvalidAmount     Kind = "InvalidAmount"
	InsufficientFunds Kind = "InsufficientFunds"
	LedgerUnavailable Kind = "LedgerUnavailable"
	RoomNotFound      Kind = "RoomNotFound"
	Unauthorized      Kind = "Unauthorized"
	BadRequest        Kind = "BadRequest"
	Internal          Kind = "Internal"
)

// Error is an error with a kind. The message is safe to return to a client.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// sentinels for errors.Is checks
var (
	ErrSeatTaken         = &Error{Kind: SeatTaken, Message: "seat is taken"}
	ErrInvalidState      = &Error{Kind: InvalidState, Message: "invalid state"}
	ErrNotYourTurn       = &Error{Kind: NotYourTurn, Message: "it is not your turn"}
	ErrIllegalAction     = &Error{Kind: IllegalAction, Message: "illegal action"}
	ErrInvalidAmount     = &Error{Kind: InvalidAmount, Message: "invalid amount"}
	ErrInsufficientFunds = &Error{Kind: InsufficientFunds, Message: "insufficient funds"}
	ErrLedgerUnavailable = &Error{Kind: LedgerUnavailable, Message: "ledger is unavailable"}
	ErrRoomNotFound      = &Error{Kind: RoomNotFound, Message: "room not found"}
	ErrUnauthorized      = &Error{Kind: Unauthorized, Message: "unauthorized"}
)

// New returns a new error of the kind
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap returns a new error of the kind that wraps err
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}

	return e.Kind == t.Kind
}

// KindOf returns the kind of the error, or Internal if err is not an *Error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return Internal
}

// MessageOf returns a message that is safe to show a client
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}

	return "internal error"
}

// HTTPStatus maps an error to a response status code
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case BadRequest, InvalidAmount, IllegalAction:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case InsufficientFunds:
		return http.StatusPaymentRequired
	case RoomNotFound:
		return http.StatusNotFound
	case SeatTaken, InvalidState, NotYourTurn:
		return http.StatusConflict
	case LedgerUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
