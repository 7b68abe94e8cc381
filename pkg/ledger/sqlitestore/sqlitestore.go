// Package sqlitestore is a ledger.Store backed by a local SQLite file, for single node deployments
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"pokertable-server/pkg/apperror"
	"pokertable-server/pkg/db"
	"pokertable-server/pkg/ledger"

	_ "modernc.org/sqlite" // needed
)

var schema = []string{`
CREATE TABLE IF NOT EXISTS chip_balances (
    player_id    TEXT    NOT NULL,
    denomination TEXT    NOT NULL,
    balance      INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
    reserved     INTEGER NOT NULL DEFAULT 0 CHECK (reserved >= 0 AND reserved <= balance),
    updated      INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (player_id, denomination)
)`, `
CREATE TABLE IF NOT EXISTS chip_transactions (
    seq             INTEGER PRIMARY KEY AUTOINCREMENT,
    id              TEXT    NOT NULL UNIQUE,
    player_id       TEXT    NOT NULL,
    denomination    TEXT    NOT NULL,
    tx_type         TEXT    NOT NULL,
    balance_delta   INTEGER NOT NULL,
    reserved_delta  INTEGER NOT NULL,
    balance_after   INTEGER NOT NULL,
    reserved_after  INTEGER NOT NULL,
    reference       TEXT    NOT NULL DEFAULT '',
    idempotency_key TEXT    NULL UNIQUE,
    metadata        TEXT    NOT NULL DEFAULT '{}',
    created         INTEGER NOT NULL,
    FOREIGN KEY (player_id, denomination) REFERENCES chip_balances (player_id, denomination)
)`,
	`CREATE INDEX IF NOT EXISTS chip_transactions_player_idx ON chip_transactions (player_id, denomination, seq)`, `
CREATE TRIGGER IF NOT EXISTS chip_transactions_no_update BEFORE UPDATE ON chip_transactions
BEGIN
    SELECT RAISE(ABORT, 'chip_transactions is append-only');
END`, `
CREATE TRIGGER IF NOT EXISTS chip_transactions_no_delete BEFORE DELETE ON chip_transactions
BEGIN
    SELECT RAISE(ABORT, 'chip_transactions is append-only');
END`,
}

const txColumns = `id, player_id, denomination, tx_type, balance_delta, reserved_delta,
	balance_after, reserved_after, reference, COALESCE(idempotency_key, ''), metadata, created`

// Store implements ledger.Store
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ ledger.Store = (*Store)(nil)

// Open opens (or creates) the database at path and ensures the schema.
// Use ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("empty sqlite database path")
	}

	if path != ":memory:" {
		if parent := filepath.Dir(path); parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	dbh, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// a single connection serializes every write, which is what makes ApplyDelta atomic
	dbh.SetMaxOpenConns(1)
	dbh.SetMaxIdleConns(1)
	dbh.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA foreign_keys = ON;`,
	} {
		if _, err := dbh.ExecContext(ctx, pragma); err != nil {
			_ = dbh.Close()
			return nil, err
		}
	}

	for _, stmt := range schema {
		if _, err := dbh.ExecContext(ctx, stmt); err != nil {
			_ = dbh.Close()
			return nil, fmt.Errorf("could not create ledger schema: %w", err)
		}
	}

	return &Store{db: dbh, now: time.Now}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// ApplyDelta implements ledger.Store
func (s *Store) ApplyDelta(ctx context.Context, d *ledger.Delta) (*ledger.Transaction, error) {
	var tx *ledger.Transaction
	err := s.withTransaction(ctx, func(sqlTx *sql.Tx) error {
		if d.IdempotencyKey != "" {
			row := sqlTx.QueryRowContext(ctx, `SELECT `+txColumns+` FROM chip_transactions WHERE idempotency_key = ?`, d.IdempotencyKey)
			existing, err := scanTransaction(row)
			if err == nil {
				tx = existing
				return nil
			}

			if !errors.Is(err, sql.ErrNoRows) {
				return err
			}
		}

		current, err := loadBalance(ctx, sqlTx, d.PlayerID, d.Denomination)
		if err != nil {
			return err
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

		now := s.now().UTC()
		tx = &ledger.Transaction{
			ID:             uuid.New().String(),
			PlayerID:       d.PlayerID,
			Denomination:   d.Denomination,
			Type:           d.Type,
			BalanceDelta:   d.Balance,
			ReservedDelta:  d.Reserved,
			BalanceAfter:   next.Balance,
			ReservedAfter:  next.Reserved,
			Reference:      d.Reference,
			IdempotencyKey: d.IdempotencyKey,
			Metadata:       d.Metadata,
			Created:        now,
		}

		if _, err := sqlTx.ExecContext(ctx, `
INSERT INTO chip_transactions (id, player_id, denomination, tx_type, balance_delta, reserved_delta,
                               balance_after, reserved_after, reference, idempotency_key, metadata, created)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			tx.ID, d.PlayerID, string(d.Denomination), string(d.Type), d.Balance, d.Reserved,
			next.Balance, next.Reserved, d.Reference, idempotencyKey, string(metadata), now.UnixNano()); err != nil {
			return err
		}

		_, err = sqlTx.ExecContext(ctx, `
UPDATE chip_balances
SET balance = ?, reserved = ?, updated = ?
WHERE player_id = ? AND denomination = ?`, next.Balance, next.Reserved, now.UnixNano(), d.PlayerID, string(d.Denomination))
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
			bal, err := loadBalance(ctx, sqlTx, playerID, d)
			if err != nil {
				return err
			}

			b.Set(d, bal)
		}

		return nil
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
WHERE player_id = ?
  AND (? = '' OR denomination = ?)
ORDER BY seq DESC
LIMIT ?`, playerID, string(d), string(d), limit)
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

	return out, rows.Err()
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

// loadBalance reads a balance row, creating it if needed
func loadBalance(ctx context.Context, tx *sql.Tx, playerID string, d ledger.Denomination) (ledger.Balance, error) {
	if _, err := tx.ExecContext(ctx, `
INSERT INTO chip_balances (player_id, denomination)
VALUES (?, ?)
ON CONFLICT DO NOTHING`, playerID, string(d)); err != nil {
		return ledger.Balance{}, err
	}

	var b ledger.Balance
	row := tx.QueryRowContext(ctx, `SELECT balance, reserved FROM chip_balances WHERE player_id = ? AND denomination = ?`, playerID, string(d))
	if err := row.Scan(&b.Balance, &b.Reserved); err != nil {
		return ledger.Balance{}, err
	}

	return b, nil
}

func scanTransaction(row db.Scanner) (*ledger.Transaction, error) {
	var tx ledger.Transaction
	var denomination, txType, metadata string
	var created int64
	if err := row.Scan(
		&tx.ID,
		&tx.PlayerID,
		&denomination,
		&txType,
		&tx.BalanceDelta,
		&tx.ReservedDelta,
		&tx.BalanceAfter,
		&tx.ReservedAfter,
		&tx.Reference,
		&tx.IdempotencyKey,
		&metadata,
		&created,
	); err != nil {
		return nil, err
	}

	tx.Denomination = ledger.Denomination(denomination)
	tx.Type = ledger.TxType(txType)
	tx.Created = time.Unix(0, created).UTC()
	if err := json.Unmarshal([]byte(metadata), &tx.Metadata); err != nil {
		return nil, fmt.Errorf("could not decode metadata for %s: %w", tx.ID, err)
	}

	return &tx, nil
}

func mapError(err error) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "CHECK constraint failed"):
		return apperror.Wrap(apperror.InsufficientFunds, err, "balance constraint violated")
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "SQLITE_BUSY"):
		return apperror.Wrap(apperror.LedgerUnavailable, err, "ledger store is busy")
	case errors.Is(err, sql.ErrConnDone), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return apperror.Wrap(apperror.LedgerUnavailable, err, "ledger store is unavailable")
	}

	return err
}
