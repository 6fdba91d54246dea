package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"vaultrisk/native/vaults"
)

// Default returns the production engine constants.
func Default() *Config {
	params := vaults.DefaultParams()
	cfg := &Config{
		SecondsPerYear:     params.SecondsPerYear,
		MkrToSkyPriceRatio: params.MkrToSkyPriceRatio.Int64(),
	}
	for _, th := range params.RiskThresholds {
		cfg.RiskThresholds = append(cfg.RiskThresholds, RiskThreshold{Level: th.Level.String(), Percentage: th.Percentage})
	}
	return cfg
}

// Load loads the engine constants from path. A missing file is created with
// the defaults. Omitted keys keep their default values.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("config: unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}

	defaults := Default()
	if !meta.IsDefined("SecondsPerYear") {
		cfg.SecondsPerYear = defaults.SecondsPerYear
	}
	if !meta.IsDefined("MkrToSkyPriceRatio") {
		cfg.MkrToSkyPriceRatio = defaults.MkrToSkyPriceRatio
	}
	if !meta.IsDefined("RiskThresholds") {
		cfg.RiskThresholds = defaults.RiskThresholds
	}
	for i := range cfg.RiskThresholds {
		cfg.RiskThresholds[i].Level = strings.ToUpper(strings.TrimSpace(cfg.RiskThresholds[i].Level))
	}

	if _, err := cfg.Params(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
