package pgstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"pokertable-server/pkg/apperror"
	"pokertable-server/pkg/db"
	"pokertable-server/pkg/ledger"
)

func setupStore(t *testing.T) *Store {
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("pokertable_test"),
		postgres.WithUsername("test_user"),
		postgres.WithPassword("test_password"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dbh, err := db.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = dbh.Close()
	})

	require.NoError(t, db.Migrate(dbh))
	return New(dbh)
}

func TestStore(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	t.Run("balances are created on first lookup", func(t *testing.T) {
		a := assert.New(t)

		b, err := store.Balances(ctx, "new-player")
		a.NoError(err)
		a.Equal(&ledger.Balances{PlayerID: "new-player"}, b)
	})

	t.Run("bet then win", func(t *testing.T) {
		a := assert.New(t)

		_, err := store.ApplyDelta(ctx, &ledger.Delta{PlayerID: "p1", Denomination: ledger.GLD, Type: ledger.Deposit, Balance: 500})
		require.NoError(t, err)

		_, err = store.ApplyDelta(ctx, &ledger.Delta{PlayerID: "p1", Denomination: ledger.GLD, Type: ledger.Bet, Balance: -100, Reference: "hand:1"})
		a.NoError(err)

		tx, err := store.ApplyDelta(ctx, &ledger.Delta{
			PlayerID:     "p1",
			Denomination: ledger.GLD,
			Type:         ledger.Win,
			Balance:      180,
			Reference:    "hand:1",
			Metadata:     map[string]interface{}{"hand": "Flush"},
		})
		a.NoError(err)
		a.Equal(int64(580), tx.BalanceAfter)
		a.Equal("Flush", tx.Metadata["hand"])

		b, err := store.Balances(ctx, "p1")
		a.NoError(err)
		a.Equal(int64(580), b.GLD.Balance)

		history, err := store.Transactions(ctx, "p1", ledger.GLD, 10)
		a.NoError(err)
		a.Len(history, 3)
	})

	t.Run("insufficient funds", func(t *testing.T) {
		a := assert.New(t)

		_, err := store.ApplyDelta(ctx, &ledger.Delta{PlayerID: "p2", Denomination: ledger.GLD, Type: ledger.Bet, Balance: -1})
		a.True(errors.Is(err, apperror.ErrInsufficientFunds))

		history, err := store.Transactions(ctx, "p2", "", 10)
		a.NoError(err)
		a.Len(history, 0)
	})

	t.Run("idempotency key", func(t *testing.T) {
		a := assert.New(t)

		d := &ledger.Delta{PlayerID: "p3", Denomination: ledger.PGLD, Type: ledger.Bonus, Balance: 5, IdempotencyKey: "bonus-p3"}
		first, err := store.ApplyDelta(ctx, d)
		a.NoError(err)
		second, err := store.ApplyDelta(ctx, d)
		a.NoError(err)
		a.Equal(first.ID, second.ID)

		b, _ := store.Balances(ctx, "p3")
		a.Equal(int64(5), b.PGLD.Balance)
	})

	t.Run("concurrent withdrawals", func(t *testing.T) {
		a := assert.New(t)

		_, err := store.ApplyDelta(ctx, &ledger.Delta{PlayerID: "p4", Denomination: ledger.GLD, Type: ledger.Deposit, Balance: 20})
		require.NoError(t, err)

		var wg sync.WaitGroup
		var mu sync.Mutex
		succeeded := 0
		for i := 0; i < 40; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.ApplyDelta(ctx, &ledger.Delta{PlayerID: "p4", Denomination: ledger.GLD, Type: ledger.Withdraw, Balance: -1})
				if err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		a.Equal(20, succeeded)
		b, _ := store.Balances(ctx, "p4")
		a.Equal(int64(0), b.GLD.Balance)
	})
}
