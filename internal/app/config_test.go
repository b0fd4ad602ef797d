package app

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"STORE_DRIVER", "REDIS_ADDR", "LEDGER_TX_TIMEOUT", "APP_ENV"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, StoreMemory, cfg.StoreDriver)
	require.Equal(t, 5*time.Second, cfg.LedgerTxTimeout)
	require.False(t, cfg.CacheEnabled())
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", StorePostgres)
	t.Setenv("PG_DSN", "postgres://u:p@db:5432/inv")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("LEDGER_TX_TIMEOUT", "2s")
	t.Setenv("TIMEZONE", "Asia/Jakarta")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, StorePostgres, cfg.StoreDriver)
	require.True(t, cfg.CacheEnabled())
	require.Equal(t, 2*time.Second, cfg.LedgerTxTimeout)

	loc, err := cfg.Location()
	require.NoError(t, err)
	require.Equal(t, "Asia/Jakarta", loc.String())
}

func TestConfigValidate(t *testing.T) {
	base := Config{StoreDriver: StoreMemory, LedgerTxTimeout: time.Second, Timezone: "UTC"}
	require.NoError(t, base.Validate())

	cases := map[string]func(*Config){
		"unknown driver": func(c *Config) { c.StoreDriver = "sqlite" },
		"missing dsn":    func(c *Config) { c.StoreDriver = StorePostgres; c.PGDSN = "" },
		"zero timeout":   func(c *Config) { c.LedgerTxTimeout = 0 },
		"bad timezone":   func(c *Config) { c.Timezone = "Mars/Olympus" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestLoggerHonoursFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{LogFormat: "json", LogLevel: "warn"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"msg":"shown"`)
}
