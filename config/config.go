package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// Config is the settlement daemon configuration.
type Config struct {
	Listen         string `toml:"listen" env:"SETTLED_LISTEN"`
	Env            string `toml:"env" env:"SETTLED_ENV"`
	DataDir        string `toml:"data_dir" env:"SETTLED_DATA_DIR"`
	StorageBackend string `toml:"storage_backend" env:"SETTLED_STORAGE"`
	JournalDSN     string `toml:"journal_dsn" env:"SETTLED_JOURNAL_DSN"`
	PoliciesPath   string `toml:"policies_path" env:"SETTLED_POLICIES"`
	// PausedModules lists modules (claim, distribute, admin) paused at start.
	PausedModules []string `toml:"paused_modules" env:"SETTLED_PAUSED" envSeparator:","`

	Hook      Hook      `toml:"hook"`
	Wallet    Wallet    `toml:"wallet"`
	API       API       `toml:"api"`
	Log       Log       `toml:"log"`
	Telemetry Telemetry `toml:"telemetry"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Listen:         ":8480",
		Env:            "prod",
		DataDir:        "./settled-data",
		StorageBackend: "leveldb",
		JournalDSN:     "file:settled-journal.db",
		Hook: Hook{
			MinClaim:   1_000_000,
			BoostMax:   500,
			MinAmount:  1_000_000,
			PenaltyBps: 5000,
			WeightUnit: WeightUnitPercent,
			NFTAlloc:   40,
			HoldAlloc:  30,
			TreaAlloc:  20,
			AMMAlloc:   10,
		},
		Wallet: Wallet{TimeoutSeconds: 10},
		API:    API{RateLimitPerSecond: 20, RateLimitBurst: 40},
		Log:    Log{Level: "info", MaxSizeMB: 100, MaxBackups: 5},
	}
}

// Load reads the TOML file at path, overlays SETTLED_* environment variables
// and validates the result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		if _, err := os.Stat(path); err == nil {
			meta, err := toml.DecodeFile(path, cfg)
			if err != nil {
				return nil, fmt.Errorf("config: decode %s: %w", path, err)
			}
			if undecoded := meta.Undecoded(); len(undecoded) > 0 {
				return nil, fmt.Errorf("config: unknown key %q in %s", undecoded[0].String(), path)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	cfg.normalize()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.StorageBackend = strings.ToLower(strings.TrimSpace(c.StorageBackend))
	c.Hook.WeightUnit = strings.ToLower(strings.TrimSpace(c.Hook.WeightUnit))
	if c.Hook.WeightUnit == "" {
		c.Hook.WeightUnit = WeightUnitPercent
	}
	if c.Hook.MinAmount == 0 {
		c.Hook.MinAmount = 1_000_000
	}
	paused := make([]string, 0, len(c.PausedModules))
	for _, module := range c.PausedModules {
		if trimmed := strings.ToLower(strings.TrimSpace(module)); trimmed != "" {
			paused = append(paused, trimmed)
		}
	}
	c.PausedModules = paused
	pools := make([]string, 0, len(c.Hook.HolderPools))
	for _, pool := range c.Hook.HolderPools {
		if trimmed := strings.ToLower(strings.TrimSpace(pool)); trimmed != "" {
			pools = append(pools, trimmed)
		}
	}
	c.Hook.HolderPools = pools
}
