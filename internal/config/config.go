package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"energy-billing/internal/ledger"
	"energy-billing/internal/tariff"
)

var (
	ErrMissingEntity   = errors.New("meters.forward_entity and meters.reverse_entity are required")
	ErrInterval        = errors.New("interval_minutes must be between 1 and 60")
	ErrRoundDecimals   = errors.New("round_decimals must be between 0 and 6")
	ErrSourceKind      = errors.New("source.kind must be homeassistant or static")
	ErrStateKind       = errors.New("state.kind must be file or sqlite")
	ErrNegativePrice   = errors.New("tariff prices must not be negative")
	ErrUnknownTimezone = errors.New("unknown timezone")
)

const (
	SourceHomeAssistant = "homeassistant"
	SourceStatic        = "static"

	StateFile   = "file"
	StateSQLite = "sqlite"

	MinIntervalMinutes = 1
	MaxIntervalMinutes = 60
)

// Config is the on-disk configuration shape (YAML).
type Config struct {
	InstanceID      string       `yaml:"instance_id"`
	Timezone        string       `yaml:"timezone"`
	Meters          MetersConfig `yaml:"meters"`
	IntervalMinutes int          `yaml:"interval_minutes"`
	OutputDir       string       `yaml:"output_dir"`
	RoundDecimals   int          `yaml:"round_decimals"`
	Source          SourceConfig `yaml:"source"`
	State           StateConfig  `yaml:"state"`
	Ledger          LedgerConfig `yaml:"ledger"`
	Tariff          TariffConfig `yaml:"tariff"`
	API             APIConfig    `yaml:"api"`
	// OptionsFile is watched for one-shot overrides; empty disables the watcher.
	OptionsFile string    `yaml:"options_file"`
	Log         LogConfig `yaml:"log"`
}

type MetersConfig struct {
	ForwardEntity string `yaml:"forward_entity"`
	ReverseEntity string `yaml:"reverse_entity"`
}

type SourceConfig struct {
	Kind    string            `yaml:"kind"`
	BaseURL string            `yaml:"base_url"`
	Token   string            `yaml:"token"`
	Timeout time.Duration     `yaml:"timeout"`
	Static  map[string]string `yaml:"static"`
}

type StateConfig struct {
	Kind string `yaml:"kind"`
	Path string `yaml:"path"`
}

type LedgerConfig struct {
	Mode    ledger.Mode    `yaml:"mode"`
	Missing ledger.Missing `yaml:"missing"`
}

type TariffConfig struct {
	TieredBilling bool          `yaml:"tiered_billing"`
	Tiers         []tariff.Tier `yaml:"tiers"`
	TaxRate       float64       `yaml:"tax_rate"`
	SellPrice     float64       `yaml:"sell_price"`
	FlatBuyPrice  float64       `yaml:"flat_buy_price"`
	CostDecimals  int           `yaml:"cost_decimals"`
	Currency      string        `yaml:"currency"`
}

type APIConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration carrying every default. Meter entities have
// no default and must be set.
func Default() *Config {
	return &Config{
		Timezone:        "Local",
		IntervalMinutes: 1,
		OutputDir:       "energy",
		RoundDecimals:   3,
		Source: SourceConfig{
			Kind:    SourceHomeAssistant,
			Timeout: 10 * time.Second,
		},
		State:  StateConfig{Kind: StateFile},
		Ledger: LedgerConfig{Mode: ledger.ModeDaily, Missing: ledger.MissingSkip},
		Tariff: TariffConfig{
			TieredBilling: true,
			Tiers:         tariff.DefaultTiers(),
			TaxRate:       tariff.DefaultTaxRate,
			SellPrice:     tariff.DefaultSellPrice,
			CostDecimals:  1,
			Currency:      tariff.DefaultCurrency,
		},
		API: APIConfig{Addr: ":8080"},
		Log: LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads .env files, the YAML file at path (if any) over the defaults, and
// environment overrides, then validates the result.
func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not validate it.
func LoadUnchecked(path string) (*Config, error) {
	loadDotEnv(path)

	c := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(raw, c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	c.applyEnv()
	if c.InstanceID == "" {
		c.InstanceID = uuid.NewString()
	}
	return c, nil
}

// loadDotEnv loads the first .env found next to the config file or in the
// working directory. Variables already set in the environment win.
func loadDotEnv(configPath string) {
	var paths []string
	if configPath != "" {
		paths = append(paths, filepath.Join(filepath.Dir(configPath), ".env"))
	}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("EB_HA_TOKEN"); v != "" {
		c.Source.Token = v
	}
	if v := os.Getenv("EB_HA_URL"); v != "" {
		c.Source.BaseURL = v
	}
	if v := os.Getenv("EB_API_ADDR"); v != "" {
		c.API.Addr = v
	}
	if v := os.Getenv("EB_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("EB_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(c.Meters.ForwardEntity) == "" || strings.TrimSpace(c.Meters.ReverseEntity) == "" {
		return ErrMissingEntity
	}
	if c.IntervalMinutes < MinIntervalMinutes || c.IntervalMinutes > MaxIntervalMinutes {
		return fmt.Errorf("%w, got %d", ErrInterval, c.IntervalMinutes)
	}
	if c.RoundDecimals < 0 || c.RoundDecimals > 6 {
		return fmt.Errorf("%w, got %d", ErrRoundDecimals, c.RoundDecimals)
	}
	if c.Source.Kind != SourceHomeAssistant && c.Source.Kind != SourceStatic {
		return fmt.Errorf("%w, got %q", ErrSourceKind, c.Source.Kind)
	}
	if c.State.Kind != StateFile && c.State.Kind != StateSQLite {
		return fmt.Errorf("%w, got %q", ErrStateKind, c.State.Kind)
	}
	if _, err := ledger.New(c.Ledger.Mode, c.OutputDir, c.Ledger.Missing, c.RoundDecimals); err != nil {
		return fmt.Errorf("ledger config invalid: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Tariff.SellPrice < 0 || c.Tariff.FlatBuyPrice < 0 {
		return ErrNegativePrice
	}
	if _, err := c.BuySchedule(); err != nil {
		return fmt.Errorf("tariff config invalid: %w", err)
	}
	return nil
}

// Location resolves Timezone; period keys are derived in this location.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrUnknownTimezone, c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// BuySchedule is the tiered schedule, or a flat untaxed one when tiered billing is off.
func (c *Config) BuySchedule() (*tariff.Schedule, error) {
	if !c.Tariff.TieredBilling {
		return tariff.Flat(c.Tariff.FlatBuyPrice), nil
	}
	return tariff.NewSchedule(c.Tariff.Tiers, c.Tariff.TaxRate)
}

func (c *Config) SellRate() tariff.FlatRate {
	return tariff.NewFlatRate(c.Tariff.SellPrice)
}

// StatePath defaults to state.json or state.db inside OutputDir.
func (c *Config) StatePath() string {
	if c.State.Path != "" {
		return c.State.Path
	}
	if c.State.Kind == StateSQLite {
		return filepath.Join(c.OutputDir, "state.db")
	}
	return filepath.Join(c.OutputDir, "state.json")
}
