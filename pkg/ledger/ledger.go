// Package ledger is the only path for changing a player's chip balance.
// Every change is an append-only Transaction applied atomically with the materialized Balance.
package ledger

import (
	"context"
	"encoding/json"
	"time"

	"pokertable-server/pkg/apperror"
)

// TxType is the reason for a balance change
type TxType string

// transaction types
const (
	Deposit  TxType = "DEPOSIT"
	Withdraw TxType = "WITHDRAW"
	Bet      TxType = "BET"
	Win      TxType = "WIN"
	Rake     TxType = "RAKE"
	Jackpot  TxType = "JACKPOT"
	Bonus    TxType = "BONUS"
	Adjust   TxType = "ADJUST"
	Transfer TxType = "TRANSFER"
)

// TxTypes is every valid transaction type
var TxTypes = []TxType{Deposit, Withdraw, Bet, Win, Rake, Jackpot, Bonus, Adjust, Transfer}

// Valid returns true if t is a known type
func (t TxType) Valid() bool {
	for _, v := range TxTypes {
		if v == t {
			return true
		}
	}

	return false
}

// Denomination is a chip currency
type Denomination string

// denominations
const (
	// GLD is the primary chip
	GLD Denomination = "GLD"
	// PGLD is the promotional chip
	PGLD Denomination = "PGLD"
)

// Denominations is every valid denomination
var Denominations = []Denomination{GLD, PGLD}

// Valid returns true if d is a known denomination
func (d Denomination) Valid() bool {
	return d == GLD || d == PGLD
}

// ParseDenomination parses a denomination, case-sensitive
func ParseDenomination(s string) (Denomination, error) {
	d := Denomination(s)
	if !d.Valid() {
		return "", apperror.New(apperror.BadRequest, "unknown denomination: %s", s)
	}

	return d, nil
}

// Delta is a requested change to one player's balance in one denomination
type Delta struct {
	PlayerID     string
	Denomination Denomination
	Type         TxType
	// Balance is added to the balance
	Balance int64
	// Reserved is added to the reserved amount
	Reserved int64
	// Reference points at what caused the change, i.e., "room:abc/hand:123"
	Reference string
	// IdempotencyKey, if set, makes the delta apply at most once
	IdempotencyKey string
	Metadata       map[string]interface{}
}

// Validate checks the delta before it reaches a store
func (d *Delta) Validate() error {
	if d.PlayerID == "" {
		return apperror.New(apperror.BadRequest, "player ID is required")
	}

	if d.Denomination == "" {
		d.Denomination = GLD
	}

	if !d.Denomination.Valid() {
		return apperror.New(apperror.BadRequest, "unknown denomination: %s", d.Denomination)
	}

	if !d.Type.Valid() {
		return apperror.New(apperror.BadRequest, "unknown transaction type: %s", d.Type)
	}

	if d.Balance == 0 && d.Reserved == 0 {
		return apperror.New(apperror.InvalidAmount, "delta cannot be zero")
	}

	switch d.Type {
	case Deposit:
		if d.Balance <= 0 {
			return apperror.New(apperror.InvalidAmount, "a deposit must be positive")
		}
	case Withdraw:
		if d.Balance >= 0 {
			return apperror.New(apperror.InvalidAmount, "a withdrawal must be negative")
		}
	case Bet:
		if d.Balance > 0 {
			return apperror.New(apperror.InvalidAmount, "a bet cannot credit a balance")
		}
	case Win, Rake, Jackpot, Bonus:
		if d.Balance < 0 {
			return apperror.New(apperror.InvalidAmount, "a %s cannot debit a balance", d.Type)
		}
	}

	return nil
}

// Transaction is an immutable record of an applied Delta
type Transaction struct {
	ID             string                 `json:"id"`
	PlayerID       string                 `json:"playerId"`
	Denomination   Denomination           `json:"denomination"`
	Type           TxType                 `json:"type"`
	BalanceDelta   int64                  `json:"balanceDelta"`
	ReservedDelta  int64                  `json:"reservedDelta"`
	BalanceAfter   int64                  `json:"balanceAfter"`
	ReservedAfter  int64                  `json:"reservedAfter"`
	Reference      string                 `json:"reference"`
	IdempotencyKey string                 `json:"idempotencyKey,omitempty"`
	Metadata       map[string]interface{} `json:"metadata"`
	Created        time.Time              `json:"created"`
}

// EncodeMetadata returns the metadata as JSON, never null
func (d *Delta) EncodeMetadata() ([]byte, error) {
	if d.Metadata == nil {
		return []byte("{}"), nil
	}

	return json.Marshal(d.Metadata)
}

// Balance is a player's holding of a single denomination
type Balance struct {
	Balance  int64 `json:"balance"`
	Reserved int64 `json:"reserved"`
}

// Available is the balance that is not reserved
func (b Balance) Available() int64 {
	return b.Balance - b.Reserved
}

// Apply returns the balance after the delta, or InsufficientFunds if an invariant would break
func (b Balance) Apply(d *Delta) (Balance, error) {
	next := Balance{
		Balance:  b.Balance + d.Balance,
		Reserved: b.Reserved + d.Reserved,
	}

	if next.Balance < 0 {
		return b, apperror.New(apperror.InsufficientFunds, "balance of %d is not enough to cover %d", b.Balance, -d.Balance)
	}

	if next.Reserved < 0 {
		return b, apperror.New(apperror.InsufficientFunds, "reserved amount of %d is not enough to release %d", b.Reserved, -d.Reserved)
	}

	if next.Reserved > next.Balance {
		return b, apperror.New(apperror.InsufficientFunds, "available balance of %d is not enough to reserve %d", b.Available(), d.Reserved)
	}

	return next, nil
}

// Balances are all of a player's holdings
type Balances struct {
	PlayerID string  `json:"playerId"`
	GLD      Balance `json:"gld"`
	PGLD     Balance `json:"pgld"`
}

// Get returns the balance for a denomination
func (b *Balances) Get(d Denomination) Balance {
	if d == PGLD {
		return b.PGLD
	}

	return b.GLD
}

// Set sets the balance for a denomination
func (b *Balances) Set(d Denomination, bal Balance) {
	if d == PGLD {
		b.PGLD = bal
	} else {
		b.GLD = bal
	}
}

// Store is durable balance storage
type Store interface {
	// ApplyDelta atomically appends a transaction and updates the balance.
	// If the delta's idempotency key was already applied, the original transaction is returned.
	ApplyDelta(ctx context.Context, d *Delta) (*Transaction, error)
	// Balances returns a player's balances, creating zero balances if the player is unknown
	Balances(ctx context.Context, playerID string) (*Balances, error)
	// Transactions returns the newest transactions first
	Transactions(ctx context.Context, playerID string, d Denomination, limit int) ([]*Transaction, error)
}
