package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)
	assert.Equal(t, "XAUUSDm", cfg.Bot.Symbol)
	assert.Equal(t, 0.01, cfg.Bot.Lot)
	assert.Equal(t, 4, cfg.Bot.MaxSteps)
	assert.Equal(t, "BUY", cfg.Bot.Side)
	assert.Equal(t, 50, cfg.Bot.Deviation)
	assert.Equal(t, int64(123456), cfg.Bot.Magic)
	assert.Equal(t, 500*time.Millisecond, cfg.Engine.PollInterval)
	assert.Equal(t, 12*time.Hour, cfg.Engine.MonitorTimeout)
	assert.True(t, cfg.Engine.ExclusiveRuns)
	assert.Equal(t, "csv", cfg.Recorder.Type)
	assert.Equal(t, "mt5_orders.csv", cfg.Recorder.Path)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{
			name:   "missing broker url",
			mutate: func(c *Config) {},
			errMsg: "broker.base_url",
		},
		{
			name:   "dry run without url",
			mutate: func(c *Config) { c.Runtime.DryRun = true },
		},
		{
			name:   "zero lot",
			mutate: func(c *Config) { c.Runtime.DryRun = true; c.Bot.Lot = 0 },
			errMsg: "bot.lot",
		},
		{
			name:   "zero steps",
			mutate: func(c *Config) { c.Runtime.DryRun = true; c.Bot.MaxSteps = 0 },
			errMsg: "bot.max_steps",
		},
		{
			name:   "bad side",
			mutate: func(c *Config) { c.Runtime.DryRun = true; c.Bot.Side = "HOLD" },
			errMsg: "bot.side",
		},
		{
			name:   "negative timeout",
			mutate: func(c *Config) { c.Runtime.DryRun = true; c.Engine.MonitorTimeout = -time.Second },
			errMsg: "engine.monitor_timeout",
		},
		{
			name: "bad instrument",
			mutate: func(c *Config) {
				c.Runtime.DryRun = true
				c.Instruments = []InstrumentConfig{{Symbol: "XAUUSDm", StopOffset: 0, TakeOffset: 2}}
			},
			errMsg: "instruments.XAUUSDm",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("MT5_SECRET", "s3cr3t")
	t.Setenv("MARTINBOT_BOT_MAX_STEPS", "6")

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
broker:
  base_url: http://localhost:9000
  api_key: key
  secret: ${MT5_SECRET}
  login: 12345
bot:
  symbol: BTCUSDm
  lot: 0.02
engine:
  poll_interval: 250ms
  exclusive_runs: false
recorder:
  type: sqlite
  path: steps.db
instruments:
  - symbol: XAUUSDm
    stop_offset: 1.5
    take_offset: 3
  - symbol: "*"
    stop_offset: 5
    take_offset: 9
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000", cfg.Broker.BaseUrl)
	assert.Equal(t, "s3cr3t", cfg.Broker.Secret)
	assert.Equal(t, int64(12345), cfg.Broker.Login)
	assert.Equal(t, "BTCUSDm", cfg.Bot.Symbol)
	assert.Equal(t, 0.02, cfg.Bot.Lot)
	assert.Equal(t, 6, cfg.Bot.MaxSteps)
	assert.Equal(t, 250*time.Millisecond, cfg.Engine.PollInterval)
	assert.False(t, cfg.Engine.ExclusiveRuns)
	assert.Equal(t, "sqlite", cfg.Recorder.Type)
	require.Len(t, cfg.Instruments, 2)

	table := cfg.ProfileTable()
	gold := table.Lookup("XAUUSDm")
	assert.True(t, gold.StopOffset.Equal(decimal.RequireFromString("1.5")))
	other := table.Lookup("ZZZ")
	assert.True(t, other.TakeOffset.Equal(decimal.NewFromInt(9)))
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
