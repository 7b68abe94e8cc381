package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
	"pokertable-server/internal/util"
	"pokertable-server/pkg/ledger"
	"pokertable-server/pkg/room"
	"pokertable-server/pkg/table"
)

// ledger drivers
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config is the server configuration
type Config struct {
	loaded bool

	Host         string   `yaml:"host"`
	LogLevel     string   `yaml:"logLevel" envconfig:"log_level"`
	AccessLog    bool     `yaml:"accessLog" envconfig:"access_log"`
	CORSOrigins  []string `yaml:"corsOrigins" envconfig:"cors_origins"`
	HouseAccount string   `yaml:"houseAccount" envconfig:"house_account"`
	Denomination string   `yaml:"denomination"`
	AutoStart    bool     `yaml:"autoStart" envconfig:"auto_start"`

	JWT struct {
		PublicKey  string `yaml:"publicKey" envconfig:"public_key"`
		PrivateKey string `yaml:"privateKey" envconfig:"private_key"`
	} `yaml:"jwt"`

	Ledger struct {
		Driver     string              `yaml:"driver"`
		PGDSN      string              `yaml:"pgDsn" envconfig:"pg_dsn"`
		SQLitePath string              `yaml:"sqlitePath" envconfig:"sqlite_path"`
		Retry      ledger.RetryOptions `yaml:"retry"`
	} `yaml:"ledger"`

	NATS struct {
		URL    string `yaml:"url"`
		Prefix string `yaml:"prefix"`
	} `yaml:"nats"`

	Table table.Options `yaml:"table"`

	Timeouts struct {
		ReconnectGrace time.Duration `yaml:"reconnectGrace" envconfig:"reconnect_grace"`
		Turn           time.Duration `yaml:"turn"`
		RoomGrace      time.Duration `yaml:"roomGrace" envconfig:"room_grace"`
		NextHand       time.Duration `yaml:"nextHand" envconfig:"next_hand"`
		Tick           time.Duration `yaml:"tick"`
		Ledger         time.Duration `yaml:"ledger"`
	} `yaml:"timeouts"`
}

var instance Config

// DefaultConfig returns the configuration used when nothing is overridden
func DefaultConfig() Config {
	defaults := room.DefaultOptions()

	var cfg Config
	cfg.Host = ":5000"
	cfg.LogLevel = "info"
	cfg.AccessLog = true
	cfg.CORSOrigins = []string{"*"}
	cfg.HouseAccount = defaults.HouseAccount
	cfg.Denomination = string(defaults.Denomination)
	cfg.AutoStart = defaults.AutoStart

	cfg.JWT.PublicKey = ".keys/public.pem"
	cfg.JWT.PrivateKey = ".keys/private.key"

	cfg.Ledger.Driver = DriverMemory
	cfg.Ledger.PGDSN = "postgres://postgres:@localhost:5432/postgres?sslmode=disable"
	cfg.Ledger.SQLitePath = "ledger.db"
	cfg.Ledger.Retry = ledger.DefaultRetryOptions

	cfg.NATS.Prefix = "pokertable"

	cfg.Table = defaults.Table

	cfg.Timeouts.ReconnectGrace = defaults.ReconnectGrace
	cfg.Timeouts.Turn = defaults.TurnTimeout
	cfg.Timeouts.RoomGrace = defaults.RoomGrace
	cfg.Timeouts.NextHand = defaults.NextHandDelay
	cfg.Timeouts.Tick = defaults.TickInterval
	cfg.Timeouts.Ledger = defaults.LedgerTimeout

	return cfg
}

// Instance returns the configuration, loading it on first use
func Instance() Config {
	if !instance.loaded {
		if err := Load(); err != nil {
			panic(err)
		}
	}

	return instance
}

// Load will load the configuration. The file named by PTS_CONFIG_FILE is optional,
// environment variables take precedence over it.
func Load() error {
	config := DefaultConfig()

	file, err := os.Open(util.Getenv("PTS_CONFIG_FILE", "config.yaml"))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// defaults only
	case err != nil:
		return err
	default:
		defer file.Close()

		if err := yaml.NewDecoder(file).Decode(&config); err != nil {
			return err
		}
	}

	if err := envconfig.Process("pts", &config); err != nil {
		return err
	}

	if err := config.Validate(); err != nil {
		return err
	}

	config.loaded = true
	instance = config

	return nil
}

// Validate checks the configuration is usable
func (c Config) Validate() error {
	switch c.Ledger.Driver {
	case DriverMemory, DriverPostgres, DriverSQLite:
	default:
		return errors.New("ledger.driver must be one of memory, postgres or sqlite")
	}

	if _, err := ledger.ParseDenomination(c.Denomination); err != nil {
		return err
	}

	if c.HouseAccount == "" {
		return errors.New("houseAccount is required")
	}

	return c.Table.Validate()
}

// RoomOptions returns the options every room is opened with
func (c Config) RoomOptions() room.Options {
	return room.Options{
		Table:          c.Table,
		Denomination:   ledger.Denomination(c.Denomination),
		HouseAccount:   c.HouseAccount,
		ReconnectGrace: c.Timeouts.ReconnectGrace,
		TurnTimeout:    c.Timeouts.Turn,
		RoomGrace:      c.Timeouts.RoomGrace,
		NextHandDelay:  c.Timeouts.NextHand,
		TickInterval:   c.Timeouts.Tick,
		LedgerTimeout:  c.Timeouts.Ledger,
		AutoStart:      c.AutoStart,
	}
}
