// Package pgstore is a ledger.Store backed by PostgreSQL
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"pokertable-server/pkg/apperror"
	"pokertable-server/pkg/db"
	"pokertable-server/pkg/ledger"
)

// postgres error codes
const (
	uniqueViolation = "23505"
	checkViolation  = "23514"
)

const txColumns = `id, player_id, denomination, tx_type, balance_delta, reserved_delta,
	balance_after, reserved_after, reference, COALESCE(idempotency_key, ''), metadata, created`

// Store implements ledger.Store
type Store struct {
	db *sql.DB
}

// New returns a new Store. The schema is created by db.Migrate.
func New(dbh *sql.DB) *Store {
	return &Store{db: dbh}
}

var _ ledger.Store = (*Store)(nil)

// ApplyDelta implements ledger.Store.
// The balance row is locked for the duration of the transaction so deltas for a player never interleave.
func (s *Store) ApplyDelta(ctx context.Context, d *ledger.Delta) (*ledger.Transaction, error) {
	var tx *ledger.Transaction
	err := s.withTransaction(ctx, func(sqlTx *sql.Tx) error {
		if err := ensureBalanceRow(ctx, sqlTx, d.PlayerID, d.Denomination); err != nil {
			return err
		}

		var current ledger.Balance
		row := sqlTx.QueryRowContext(ctx, `
SELECT balance, reserved
FROM chip_balances
WHERE player_id = $1 AND denomination = $2
FOR UPDATE`, d.PlayerID, d.Denomination)
		if err := row.Scan(&current.Balance, &current.Reserved); err != nil {
			return err
		}

		if d.IdempotencyKey != "" {
			existing, err := findByIdempotencyKey(ctx, sqlTx, d.IdempotencyKey)
			if err != nil {
				return err
			}

			if existing != nil {
				tx = existing
				return nil
			}
		}

		next, err := current.Apply(d)
		if err != nil {
			return err
		}

		metadata, err := d.EncodeMetadata()
		if err != nil {
			return err
		}

		var idempotencyKey interface{}
		if d.IdempotencyKey != "" {
			idempotencyKey = d.IdempotencyKey
		}

		row = sqlTx.QueryRowContext(ctx, `
INSERT INTO chip_transactions (id, player_id, denomination, tx_type, balance_delta, reserved_delta,
                               balance_after, reserved_after, reference, idempotency_key, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING `+txColumns,
			uuid.New().String(), d.PlayerID, d.Denomination, d.Type, d.Balance, d.Reserved,
			next.Balance, next.Reserved, d.Reference, idempotencyKey, metadata)

		tx, err = scanTransaction(row)
		if err != nil {
			return err
		}

		_, err = sqlTx.ExecContext(ctx, `
UPDATE chip_balances
SET balance  = $3,
    reserved = $4,
    updated  = (NOW() AT TIME ZONE 'utc')
WHERE player_id = $1 AND denomination = $2`, d.PlayerID, d.Denomination, next.Balance, next.Reserved)
		return err
	})

	if err != nil {
		return nil, mapError(err)
	}

	return tx, nil
}

// Balances implements ledger.Store
func (s *Store) Balances(ctx context.Context, playerID string) (*ledger.Balances, error) {
	b := &ledger.Balances{PlayerID: playerID}
	err := s.withTransaction(ctx, func(sqlTx *sql.Tx) error {
		for _, d := range ledger.Denominations {
			if err := ensureBalanceRow(ctx, sqlTx, playerID, d); err != nil {
				return err
			}
		}

		rows, err := sqlTx.QueryContext(ctx, `
SELECT denomination, balance, reserved
FROM chip_balances
WHERE player_id = $1`, playerID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var d ledger.Denomination
			var bal ledger.Balance
			if err := rows.Scan(&d, &bal.Balance, &bal.Reserved); err != nil {
				return err
			}

			b.Set(d, bal)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, mapError(err)
	}

	return b, nil
}

// Transactions implements ledger.Store
func (s *Store) Transactions(ctx context.Context, playerID string, d ledger.Denomination, limit int) ([]*ledger.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+txColumns+`
FROM chip_transactions
WHERE player_id = $1
  AND ($2 = '' OR denomination = $2)
ORDER BY created DESC, id
LIMIT $3`, playerID, d, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := make([]*ledger.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return out, nil
}

func (s *Store) withTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	commit := false
	defer func() {
		if !commit {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	commit = true
	return nil
}

func ensureBalanceRow(ctx context.Context, tx *sql.Tx, playerID string, d ledger.Denomination) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO chip_balances (player_id, denomination)
VALUES ($1, $2)
ON CONFLICT DO NOTHING`, playerID, d)
	return err
}

func findByIdempotencyKey(ctx context.Context, tx *sql.Tx, key string) (*ledger.Transaction, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+txColumns+` FROM chip_transactions WHERE idempotency_key = $1`, key)
	existing, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	return existing, err
}

func scanTransaction(row db.Scanner) (*ledger.Transaction, error) {
	var tx ledger.Transaction
	var metadata []byte
	if err := row.Scan(
		&tx.ID,
		&tx.PlayerID,
		&tx.Denomination,
		&tx.Type,
		&tx.BalanceDelta,
		&tx.ReservedDelta,
		&tx.BalanceAfter,
		&tx.ReservedAfter,
		&tx.Reference,
		&tx.IdempotencyKey,
		&metadata,
		&tx.Created,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(metadata, &tx.Metadata); err != nil {
		return nil, fmt.Errorf("could not decode metadata for %s: %w", tx.ID, err)
	}

	return &tx, nil
}

// mapError sorts store errors into the ledger's error kinds
func mapError(err error) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case checkViolation:
			return apperror.Wrap(apperror.InsufficientFunds, err, "balance constraint violated")
		case uniqueViolation:
			return apperror.Wrap(apperror.LedgerUnavailable, err, "concurrent write with the same idempotency key")
		}

		if pqErr.Code.Class() == "08" || pqErr.Code.Class() == "40" || pqErr.Code.Class() == "53" || pqErr.Code.Class() == "57" {
			return apperror.Wrap(apperror.LedgerUnavailable, err, "ledger store is unavailable")
		}

		return err
	}

	if errors.Is(err, sql.ErrNoRows) {
		return err
	}

	// driver level failures (closed connections, timeouts) are transient
	return apperror.Wrap(apperror.LedgerUnavailable, err, "ledger store is unavailable")
}
