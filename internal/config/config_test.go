package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pokertable-server/internal/util"
	"pokertable-server/pkg/ledger"
	"pokertable-server/pkg/room"
)

func TestInstance(t *testing.T) {
	clear1 := util.SetEnv("PTS_CONFIG_FILE", "testdata/config.yaml")
	defer clear1()
	clear2 := util.SetEnv("PTS_JWT_PRIVATE_KEY", "private2.key")
	defer clear2()
	clear3 := util.SetEnv("PTS_TIMEOUTS_TICK", "250ms")
	defer clear3()

	a := assert.New(t)
	cfg := Instance()
	a.Equal(":6000", cfg.Host)
	a.Equal("debug", cfg.LogLevel)
	a.Equal("public.pem", cfg.JWT.PublicKey)
	a.Equal("private2.key", cfg.JWT.PrivateKey)
	a.Equal(DriverSQLite, cfg.Ledger.Driver)
	a.Equal("/tmp/chips.db", cfg.Ledger.SQLitePath)
	a.Equal(ledger.RetryOptions{MaxRetries: 2, InitialInterval: 10 * time.Millisecond, MaxInterval: 100 * time.Millisecond}, cfg.Ledger.Retry)
	a.Equal("nats://localhost:4222", cfg.NATS.URL)
	a.Equal("pokertable", cfg.NATS.Prefix)

	a.Equal(9, cfg.Table.Capacity)
	a.Equal(int64(50), cfg.Table.BigBlind)
	a.Equal(0.1, cfg.Table.Rake.Percent)
	a.Equal(int64(300), cfg.Table.Rake.Cap)

	opts := cfg.RoomOptions()
	a.Equal(ledger.PGLD, opts.Denomination)
	a.Equal("casino", opts.HouseAccount)
	a.Equal(15*time.Second, opts.TurnTimeout)
	a.Equal(2*time.Minute, opts.RoomGrace)
	a.Equal(250*time.Millisecond, opts.TickInterval)
	// untouched values keep their defaults
	a.Equal(room.DefaultOptions().ReconnectGrace, opts.ReconnectGrace)

	// ensure that it's only loaded once
	_ = os.Setenv("PTS_JWT_PRIVATE_KEY", "private3.key")
	// ensure we aren't using a pointer
	cfg.JWT.PrivateKey = "bad"
	cfg = Instance()
	a.Equal("private2.key", cfg.JWT.PrivateKey)
}

func TestDefaults(t *testing.T) {
	require.NoError(t, Load())
	cfg := Instance()

	a := assert.New(t)
	a.Equal(DriverMemory, cfg.Ledger.Driver)
	a.Equal("house", cfg.HouseAccount)
	a.Equal(room.DefaultOptions(), cfg.RoomOptions())
}

func TestLoad_Invalid(t *testing.T) {
	clear1 := util.SetEnv("PTS_LEDGER_DRIVER", "mongo")
	defer clear1()

	assert.EqualError(t, Load(), "ledger.driver must be one of memory, postgres or sqlite")

	clear2 := util.SetEnv("PTS_LEDGER_DRIVER", DriverPostgres)
	defer clear2()
	clear3 := util.SetEnv("PTS_DENOMINATION", "USD")
	defer clear3()

	assert.Error(t, Load())
}

func TestDefaultConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.HouseAccount = ""
	assert.EqualError(t, cfg.Validate(), "houseAccount is required")

	cfg = DefaultConfig()
	cfg.Table.Capacity = 12
	assert.Error(t, cfg.Validate())
}
