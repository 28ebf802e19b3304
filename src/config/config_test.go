package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"market-flipper/src/helpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	c := &Config{MConfig: Defaults()}
	require.NoError(t, c.Validate())
	assert.True(t, c.Strategies.Spread.Enable)
	assert.Equal(t, 30, c.Strategies.Discovery.ScanEveryTicks)
}

func TestParseLayersOverDefaults(t *testing.T) {
	yml := []byte(`
name: flipper-test
port: 9000
risk:
  fee_slippage_pct: 2
strategies:
  pairs_trading:
    enable: true
    pairs:
      - [1513, 1515]
`)
	c, err := Parse(yml)
	require.NoError(t, err)

	assert.Equal(t, "flipper-test", c.Name)
	assert.Equal(t, 9000, c.Port)
	assert.Equal(t, 2.0, c.Risk.FeeSlippagePercent)
	// untouched keys keep their defaults
	assert.Equal(t, 10_000_000, c.Risk.MaxCapitalPerItem)
	assert.Equal(t, 240, c.Strategies.PairsTrading.CorrelationWindow)
	assert.Equal(t, [][2]int{{1513, 1515}}, c.Strategies.PairsTrading.Pairs)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvDBDSN, "postgres://u:p@localhost/flipper")
	t.Setenv(EnvRedisAddr, "localhost:6379")
	t.Setenv(EnvUserAgent, "test-agent/1.0")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvPort, "8123")

	c, err := Parse([]byte("storage:\n  db_type: postgres\n"))
	require.NoError(t, err)

	assert.Equal(t, "postgres://u:p@localhost/flipper", c.Storage.DBConnectionString)
	assert.True(t, c.Redis.Enabled)
	assert.Equal(t, "localhost:6379", c.Redis.Addr)
	assert.Equal(t, "test-agent/1.0", c.Network.UserAgent)
	assert.Equal(t, "DEBUG", c.LogLevel)
	assert.Equal(t, 8123, c.Port)
}

func TestInvalidPortEnv(t *testing.T) {
	t.Setenv(EnvPort, "eighty")
	_, err := Parse([]byte("{}"))
	require.Error(t, err)

	var cfgErr *helpers.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"empty name", func(c *Config) { c.Name = "" }},
		{"privileged port", func(c *Config) { c.Port = 80 }},
		{"fast tick", func(c *Config) { c.TickIntervalMs = 10 }},
		{"fee too high", func(c *Config) { c.Risk.FeeSlippagePercent = 100 }},
		{"utilization too high", func(c *Config) { c.Risk.BuyLimitUtilizationPercent = 150 }},
		{"sqlite without path", func(c *Config) { c.Storage.DBType = "sqlite"; c.Storage.DBPath = "" }},
		{"postgres without dsn", func(c *Config) { c.Storage.DBType = "postgres" }},
		{"unknown db", func(c *Config) { c.Storage.DBType = "mongo" }},
		{"zero timeout", func(c *Config) { c.Network.RequestTimeout = 0 }},
		{"redis without addr", func(c *Config) { c.Redis.Enabled = true }},
		{"mr zero lookback", func(c *Config) {
			c.Strategies.MeanReversion.Enable = true
			c.Strategies.MeanReversion.LookbackTicks = 0
		}},
		{"negative scan", func(c *Config) { c.Strategies.Discovery.ScanEveryTicks = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{MConfig: Defaults()}
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)

			var vErr *helpers.ValidationError
			assert.True(t, errors.As(err, &vErr))
		})
	}
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flipper.yaml")

	c := &Config{MConfig: Defaults()}
	c.Strategies.PairsTrading.Pairs = [][2]int{{453, 440}}
	require.NoError(t, c.Save(path))

	loaded, err := NewConfig(path)
	require.NoError(t, err)
	assert.Equal(t, c.Strategies.PairsTrading.Pairs, loaded.Strategies.PairsTrading.Pairs)
	assert.Equal(t, c.Risk, loaded.Risk)
}

func TestRepositoryDefaultConfigLoads(t *testing.T) {
	path := filepath.Join("..", "..", "config", "default.yaml")
	if _, err := os.Stat(path); err != nil {
		t.Skip("default.yaml not found")
	}
	c, err := NewConfig(path)
	require.NoError(t, err)
	assert.Len(t, c.Strategies.PairsTrading.Pairs, 2)
}

func TestMissingFile(t *testing.T) {
	_, err := NewConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
