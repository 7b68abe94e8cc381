// Package storage opens the ledger store and event publisher named by the configuration.
package storage

import (
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"pokertable-server/internal/config"
	"pokertable-server/pkg/db"
	"pokertable-server/pkg/events"
	"pokertable-server/pkg/ledger"
	"pokertable-server/pkg/ledger/pgstore"
	"pokertable-server/pkg/ledger/sqlitestore"
)

// dbWait is how long to wait for postgres to come up
const dbWait = time.Second * 10

type nopCloser struct{}

func (nopCloser) Close() error {
	return nil
}

// OpenStore opens the configured ledger store. The closer releases its connections.
func OpenStore(cfg config.Config) (ledger.Store, io.Closer, error) {
	log := logrus.WithField("driver", cfg.Ledger.Driver)

	switch cfg.Ledger.Driver {
	case config.DriverMemory:
		log.Warn("using the in-memory ledger, balances will not survive a restart")
		return ledger.NewMemoryStore(), nopCloser{}, nil
	case config.DriverPostgres:
		dbh, err := db.WaitFor(cfg.Ledger.PGDSN, dbWait)
		if err != nil {
			return nil, nil, err
		}

		if err := db.Migrate(dbh); err != nil {
			_ = dbh.Close()
			return nil, nil, fmt.Errorf("could not migrate ledger database: %w", err)
		}

		log.Info("opened ledger")
		return pgstore.New(dbh), dbh, nil
	case config.DriverSQLite:
		store, err := sqlitestore.Open(cfg.Ledger.SQLitePath)
		if err != nil {
			return nil, nil, err
		}

		log.WithField("path", cfg.Ledger.SQLitePath).Info("opened ledger")
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown ledger driver: %s", cfg.Ledger.Driver)
	}
}

// OpenPublisher connects to NATS if a URL is configured, otherwise events are dropped
func OpenPublisher(cfg config.Config, name string) (events.Publisher, io.Closer, error) {
	if cfg.NATS.URL == "" {
		return events.Noop{}, nopCloser{}, nil
	}

	prefix := cfg.NATS.Prefix
	if prefix != "" {
		prefix += "."
	}

	publisher, err := events.NewNATSPublisher(cfg.NATS.URL, name, prefix)
	if err != nil {
		return nil, nil, err
	}

	return publisher, publisher, nil
}
