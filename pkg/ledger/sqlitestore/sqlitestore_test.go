package sqlitestore

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pokertable-server/pkg/apperror"
	"pokertable-server/pkg/ledger"
)

func openStore(t *testing.T) *Store {
	store, err := Open(filepath.Join(t.TempDir(), "ledger", "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open(" ")
	assert.EqualError(t, err, "empty sqlite database path")
}

func TestStore_Balances(t *testing.T) {
	a := assert.New(t)
	store := openStore(t)

	b, err := store.Balances(context.Background(), "new-player")
	a.NoError(err)
	a.Equal(&ledger.Balances{PlayerID: "new-player"}, b)
}

func TestStore_ApplyDelta(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()
	store := openStore(t)

	_, err := store.ApplyDelta(ctx, &ledger.Delta{PlayerID: "p1", Denomination: ledger.GLD, Type: ledger.Deposit, Balance: 500})
	require.NoError(t, err)

	tx, err := store.ApplyDelta(ctx, &ledger.Delta{
		PlayerID:     "p1",
		Denomination: ledger.GLD,
		Type:         ledger.Transfer,
		Reserved:     200,
		Reference:    "room:r1",
	})
	a.NoError(err)
	a.Equal(int64(500), tx.BalanceAfter)
	a.Equal(int64(200), tx.ReservedAfter)

	_, err = store.ApplyDelta(ctx, &ledger.Delta{PlayerID: "p1", Denomination: ledger.GLD, Type: ledger.Bet, Balance: -100, Reserved: -100})
	a.NoError(err)

	_, err = store.ApplyDelta(ctx, &ledger.Delta{
		PlayerID:     "p1",
		Denomination: ledger.GLD,
		Type:         ledger.Win,
		Balance:      180,
		Reserved:     180,
		Metadata:     map[string]interface{}{"hand": "Straight"},
	})
	a.NoError(err)

	b, err := store.Balances(ctx, "p1")
	a.NoError(err)
	a.Equal(ledger.Balance{Balance: 580, Reserved: 280}, b.GLD)

	history, err := store.Transactions(ctx, "p1", ledger.GLD, 10)
	a.NoError(err)
	a.Len(history, 4)
	a.Equal(ledger.Win, history[0].Type)
	a.Equal("Straight", history[0].Metadata["hand"])
	a.Equal(ledger.Deposit, history[3].Type)

	limited, err := store.Transactions(ctx, "p1", "", 2)
	a.NoError(err)
	a.Len(limited, 2)
}

func TestStore_InsufficientFunds(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()
	store := openStore(t)

	_, err := store.ApplyDelta(ctx, &ledger.Delta{PlayerID: "p1", Denomination: ledger.GLD, Type: ledger.Transfer, Reserved: 1})
	a.True(errors.Is(err, apperror.ErrInsufficientFunds))

	history, err := store.Transactions(ctx, "p1", "", 10)
	a.NoError(err)
	a.Len(history, 0)
}

func TestStore_Idempotent(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()
	store := openStore(t)

	d := &ledger.Delta{PlayerID: "p1", Denomination: ledger.PGLD, Type: ledger.Bonus, Balance: 10, IdempotencyKey: "bonus-1"}
	first, err := store.ApplyDelta(ctx, d)
	a.NoError(err)
	second, err := store.ApplyDelta(ctx, d)
	a.NoError(err)
	a.Equal(first.ID, second.ID)

	b, _ := store.Balances(ctx, "p1")
	a.Equal(int64(10), b.PGLD.Balance)
}

func TestStore_Concurrent(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()
	store := openStore(t)

	_, err := store.ApplyDelta(ctx, &ledger.Delta{PlayerID: "p1", Denomination: ledger.GLD, Type: ledger.Deposit, Balance: 10})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.ApplyDelta(ctx, &ledger.Delta{PlayerID: "p1", Denomination: ledger.GLD, Type: ledger.Withdraw, Balance: -1}); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	a.Equal(10, succeeded)
	b, _ := store.Balances(ctx, "p1")
	a.Equal(int64(0), b.GLD.Balance)
}
