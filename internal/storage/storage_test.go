package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pokertable-server/internal/config"
	"pokertable-server/pkg/events"
	"pokertable-server/pkg/ledger"
	"pokertable-server/pkg/ledger/sqlitestore"
)

func TestOpenStore(t *testing.T) {
	a := assert.New(t)

	cfg := config.DefaultConfig()
	store, closer, err := OpenStore(cfg)
	require.NoError(t, err)
	a.IsType(&ledger.MemoryStore{}, store)
	a.NoError(closer.Close())

	cfg.Ledger.Driver = config.DriverSQLite
	cfg.Ledger.SQLitePath = filepath.Join(t.TempDir(), "ledger", "chips.db")
	store, closer, err = OpenStore(cfg)
	require.NoError(t, err)
	a.IsType(&sqlitestore.Store{}, store)

	balances, err := store.Balances(context.Background(), "p1")
	a.NoError(err)
	a.Equal(ledger.Balance{}, balances.GLD)
	a.NoError(closer.Close())

	cfg.Ledger.Driver = "mongo"
	_, _, err = OpenStore(cfg)
	a.EqualError(err, "unknown ledger driver: mongo")
}

func TestOpenPublisher(t *testing.T) {
	a := assert.New(t)

	cfg := config.DefaultConfig()
	publisher, closer, err := OpenPublisher(cfg, "test")
	require.NoError(t, err)
	a.Equal(events.Noop{}, publisher)
	a.NoError(closer.Close())

	// nothing listens here
	cfg.NATS.URL = "nats://127.0.0.1:1"
	_, _, err = OpenPublisher(cfg, "test")
	a.Error(err)
}
