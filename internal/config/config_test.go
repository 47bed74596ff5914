package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy-billing/internal/ledger"
	"energy-billing/internal/tariff"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
meters:
  forward_entity: sensor.forward_total
  reverse_entity: sensor.reverse_total
`)

	c, err := Load(path)
	require.NoError(t, err)

	assert.NotEmpty(t, c.InstanceID)
	assert.Equal(t, 1, c.IntervalMinutes)
	assert.Equal(t, 3, c.RoundDecimals)
	assert.Equal(t, ledger.ModeDaily, c.Ledger.Mode)
	assert.Equal(t, tariff.DefaultTiers(), c.Tariff.Tiers)
	assert.Equal(t, 0.08, c.Tariff.TaxRate)
	assert.Equal(t, 2275.0, c.Tariff.SellPrice)
	assert.Equal(t, time.Minute, c.Interval())
	assert.Equal(t, filepath.Join("energy", "state.json"), c.StatePath())

	s, err := c.BuySchedule()
	require.NoError(t, err)
	assert.InDelta(t, 50*1984*1.08, s.CostKWh(50).Float64(), 1e-9)
}

func TestLoadOverridesFromYAML(t *testing.T) {
	path := writeConfig(t, `
instance_id: home
timezone: Asia/Ho_Chi_Minh
meters:
  forward_entity: sensor.f
  reverse_entity: sensor.r
interval_minutes: 5
round_decimals: 0
source:
  kind: static
  timeout: 3s
  static:
    sensor.f: "10"
state:
  kind: sqlite
ledger:
  mode: timestamped
  missing: carry
tariff:
  tiers:
    - block_kwh: 100
      unit_price: 1000
    - unit_price: 2000
  tax_rate: 0.1
`)

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "home", c.InstanceID)
	assert.Equal(t, 0, c.RoundDecimals)
	assert.Equal(t, 3*time.Second, c.Source.Timeout)
	assert.Equal(t, "10", c.Source.Static["sensor.f"])
	assert.Equal(t, filepath.Join("energy", "state.db"), c.StatePath())
	assert.Equal(t, ledger.ModeTimestamped, c.Ledger.Mode)
	require.Len(t, c.Tariff.Tiers, 2)
	assert.Nil(t, c.Tariff.Tiers[1].BlockKWh)

	loc, err := c.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Ho_Chi_Minh", loc.String())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("EB_HA_TOKEN", "tok")
	t.Setenv("EB_HA_URL", "http://ha:8123")
	t.Setenv("EB_API_ADDR", ":9999")
	t.Setenv("EB_LOG_LEVEL", "debug")
	t.Setenv("EB_OUTPUT_DIR", "/data/energy")

	c, err := LoadUnchecked("")
	require.NoError(t, err)

	assert.Equal(t, "tok", c.Source.Token)
	assert.Equal(t, "http://ha:8123", c.Source.BaseURL)
	assert.Equal(t, ":9999", c.API.Addr)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, "/data/energy", c.OutputDir)
}

func TestDotEnvNextToConfig(t *testing.T) {
	path := writeConfig(t, "meters: {forward_entity: a, reverse_entity: b}\n")
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), ".env"), []byte("EB_API_ADDR=:7070\n"), 0o644))
	t.Setenv("EB_API_ADDR", "")
	require.NoError(t, os.Unsetenv("EB_API_ADDR"))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", c.API.Addr)
}

func TestFlatBillingSchedule(t *testing.T) {
	c := Default()
	c.Tariff.TieredBilling = false
	c.Tariff.FlatBuyPrice = 2000

	s, err := c.BuySchedule()
	require.NoError(t, err)
	assert.Equal(t, "200000", s.CostKWh(100).String())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := Default()
		c.Meters = MetersConfig{ForwardEntity: "sensor.f", ReverseEntity: "sensor.r"}
		return c
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		err    error
	}{
		{name: "missing forward", mutate: func(c *Config) { c.Meters.ForwardEntity = " " }, err: ErrMissingEntity},
		{name: "missing reverse", mutate: func(c *Config) { c.Meters.ReverseEntity = "" }, err: ErrMissingEntity},
		{name: "interval zero", mutate: func(c *Config) { c.IntervalMinutes = 0 }, err: ErrInterval},
		{name: "interval too long", mutate: func(c *Config) { c.IntervalMinutes = 61 }, err: ErrInterval},
		{name: "round decimals", mutate: func(c *Config) { c.RoundDecimals = 9 }, err: ErrRoundDecimals},
		{name: "source kind", mutate: func(c *Config) { c.Source.Kind = "mqtt" }, err: ErrSourceKind},
		{name: "state kind", mutate: func(c *Config) { c.State.Kind = "redis" }, err: ErrStateKind},
		{name: "ledger mode", mutate: func(c *Config) { c.Ledger.Mode = "hourly" }, err: ledger.ErrUnknownMode},
		{name: "timezone", mutate: func(c *Config) { c.Timezone = "Mars/Olympus" }, err: ErrUnknownTimezone},
		{name: "negative sell", mutate: func(c *Config) { c.Tariff.SellPrice = -1 }, err: ErrNegativePrice},
		{name: "unbounded not last", mutate: func(c *Config) {
			c.Tariff.Tiers = []tariff.Tier{tariff.Unbounded(1), tariff.Block(10, 2)}
		}, err: tariff.ErrUnboundedNotLast},
		{name: "negative tax", mutate: func(c *Config) { c.Tariff.TaxRate = -0.1 }, err: tariff.ErrNegativeTax},
	}

	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.ErrorIs(t, c.Validate(), tt.err)
		})
	}
}
