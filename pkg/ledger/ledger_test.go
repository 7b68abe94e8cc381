package ledger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"pokertable-server/pkg/apperror"
)

func TestDelta_Validate(t *testing.T) {
	a := assert.New(t)

	d := &Delta{PlayerID: "p1", Type: Deposit, Balance: 100}
	a.NoError(d.Validate())
	a.Equal(GLD, d.Denomination)

	tests := []struct {
		delta Delta
		kind  apperror.Kind
	}{
		{Delta{Type: Deposit, Balance: 100}, apperror.BadRequest},
		{Delta{PlayerID: "p1", Type: "STEAL", Balance: 100}, apperror.BadRequest},
		{Delta{PlayerID: "p1", Denomination: "BTC", Type: Deposit, Balance: 100}, apperror.BadRequest},
		{Delta{PlayerID: "p1", Type: Adjust}, apperror.InvalidAmount},
		{Delta{PlayerID: "p1", Type: Deposit, Balance: -1}, apperror.InvalidAmount},
		{Delta{PlayerID: "p1", Type: Withdraw, Balance: 1}, apperror.InvalidAmount},
		{Delta{PlayerID: "p1", Type: Bet, Balance: 1}, apperror.InvalidAmount},
		{Delta{PlayerID: "p1", Type: Win, Balance: -1}, apperror.InvalidAmount},
	}

	for _, test := range tests {
		d := test.delta
		err := d.Validate()
		a.Error(err)
		a.Equal(test.kind, apperror.KindOf(err), "%+v", test.delta)
	}

	d = &Delta{PlayerID: "p1", Type: Transfer, Reserved: 50}
	a.NoError(d.Validate())
}

func TestBalance_Apply(t *testing.T) {
	a := assert.New(t)

	b := Balance{Balance: 100, Reserved: 40}
	a.Equal(int64(60), b.Available())

	next, err := b.Apply(&Delta{Balance: -40, Reserved: -40})
	a.NoError(err)
	a.Equal(Balance{Balance: 60, Reserved: 0}, next)

	_, err = b.Apply(&Delta{Balance: -101})
	a.True(errors.Is(err, apperror.ErrInsufficientFunds))

	_, err = b.Apply(&Delta{Reserved: -41})
	a.True(errors.Is(err, apperror.ErrInsufficientFunds))

	// cannot reserve more than is available
	_, err = b.Apply(&Delta{Reserved: 61})
	a.EqualError(err, "available balance of 60 is not enough to reserve 61")

	// cannot spend reserved chips without releasing them
	_, err = b.Apply(&Delta{Balance: -61})
	a.True(errors.Is(err, apperror.ErrInsufficientFunds))
}

func TestParseDenomination(t *testing.T) {
	a := assert.New(t)

	d, err := ParseDenomination("PGLD")
	a.NoError(err)
	a.Equal(PGLD, d)

	_, err = ParseDenomination("gld")
	a.Error(err)
}

func TestBalances_GetSet(t *testing.T) {
	a := assert.New(t)

	b := &Balances{PlayerID: "p1"}
	b.Set(PGLD, Balance{Balance: 5})
	b.Set(GLD, Balance{Balance: 7, Reserved: 2})
	a.Equal(Balance{Balance: 5}, b.Get(PGLD))
	a.Equal(Balance{Balance: 7, Reserved: 2}, b.Get(GLD))
}
