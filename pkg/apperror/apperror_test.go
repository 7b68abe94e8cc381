package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Is(t *testing.T) {
	a := assert.New(t)

	err := New(NotYourTurn, "seat %d is not to act", 3)
	a.EqualError(err, "seat 3 is not to act")
	a.True(errors.Is(err, ErrNotYourTurn))
	a.False(errors.Is(err, ErrSeatTaken))

	wrapped := fmt.Errorf("apply: %w", err)
	a.True(errors.Is(wrapped, ErrNotYourTurn))
	a.Equal(NotYourTurn, KindOf(wrapped))
	a.Equal("seat 3 is not to act", MessageOf(wrapped))
}

func TestWrap(t *testing.T) {
	a := assert.New(t)

	cause := errors.New("connection refused")
	err := Wrap(LedgerUnavailable, cause, "could not apply delta")
	a.EqualError(err, "could not apply delta: connection refused")
	a.True(errors.Is(err, cause))
	a.True(errors.Is(err, ErrLedgerUnavailable))
	a.Equal("could not apply delta", MessageOf(err))
}

func TestKindOf_Plain(t *testing.T) {
	a := assert.New(t)

	err := errors.New("boom")
	a.Equal(Internal, KindOf(err))
	a.Equal("internal error", MessageOf(err))
	a.Equal(http.StatusInternalServerError, HTTPStatus(err))
}

func TestHTTPStatus(t *testing.T) {
	a := assert.New(t)
	a.Equal(http.StatusBadRequest, HTTPStatus(New(BadRequest, "x")))
	a.Equal(http.StatusNotFound, HTTPStatus(ErrRoomNotFound))
	a.Equal(http.StatusConflict, HTTPStatus(ErrSeatTaken))
	a.Equal(http.StatusPaymentRequired, HTTPStatus(ErrInsufficientFunds))
	a.Equal(http.StatusServiceUnavailable, HTTPStatus(ErrLedgerUnavailable))
	a.Equal(http.StatusUnauthorized, HTTPStatus(ErrUnauthorized))
}
