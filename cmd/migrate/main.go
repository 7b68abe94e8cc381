package main

import (
	"time"

	"github.com/sirupsen/logrus"
	"pokertable-server/internal/config"
	"pokertable-server/pkg/db"
)

func main() {
	cfg := config.Instance()
	if cfg.Ledger.Driver != config.DriverPostgres {
		logrus.WithField("driver", cfg.Ledger.Driver).Info("only the postgres ledger needs migrations")
		return
	}

	dbh, err := db.WaitFor(cfg.Ledger.PGDSN, time.Second*10)
	if err != nil {
		logrus.WithError(err).Fatal("could not connect to database")
	}
	defer dbh.Close()

	if err := db.Migrate(dbh); err != nil {
		logrus.WithError(err).Fatal("could not run migrations")
	}

	logrus.Info("migrations complete")
}
