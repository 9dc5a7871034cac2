package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/parlaybot/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "engine: {}\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.SettleInterval())
	assert.Equal(t, "operator", cfg.Engine.Operator)
	assert.Equal(t, "safebox", cfg.Engine.SafeBox)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "parlaybot.db", cfg.Storage.DSN)

	params, err := cfg.Params()
	require.NoError(t, err)
	def := domain.DefaultParams()
	assert.Equal(t, def.ProtocolFee, params.ProtocolFee)
	assert.Equal(t, def.SafeBoxFee, params.SafeBoxFee)
	assert.Equal(t, def.MinStake, params.MinStake)
	assert.Equal(t, def.MinLegs, params.MinLegs)
	assert.Equal(t, def.SettlementWindow, params.SettlementWindow)
}

func TestLoadParsesValues(t *testing.T) {
	path := writeConfig(t, `
engine:
  settle_interval_seconds: 10
  operator: ops-team
  protocol_fee: "0.015"
  safe_box_fee: "0.025"
  min_stake: "50"
  max_legs: 6
  settlement_window_hours: 48
venue:
  base: http://venue.local
storage:
  dsn: /tmp/test.db
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.SettleInterval())
	assert.Equal(t, "ops-team", cfg.Engine.Operator)
	assert.Equal(t, "http://venue.local", cfg.Venue.Base)
	assert.Equal(t, "/tmp/test.db", cfg.Storage.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)

	params, err := cfg.Params()
	require.NoError(t, err)
	assert.Equal(t, domain.MustFix("0.015"), params.ProtocolFee)
	assert.Equal(t, domain.MustFix("0.025"), params.SafeBoxFee)
	assert.Equal(t, domain.Fix(50), params.MinStake)
	assert.Equal(t, 6, params.MaxLegs)
	assert.Equal(t, 48*time.Hour, params.SettlementWindow)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("VENUE_BASE", "http://override.local")
	t.Setenv("OPERATOR", "env-op")

	path := writeConfig(t, `
engine:
  operator: yaml-op
venue:
  base: http://yaml.local
log:
  level: info
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "http://override.local", cfg.Venue.Base)
	assert.Equal(t, "env-op", cfg.Engine.Operator)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParamsRejectsBadDecimal(t *testing.T) {
	path := writeConfig(t, `
engine:
  protocol_fee: "not-a-number"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	_, err = cfg.Params()
	assert.ErrorContains(t, err, "protocol_fee")
}
