package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

const (
	defaultListen       = ":8090"
	defaultChainTimeout = 5 * time.Second
	defaultRPS          = 20
	defaultBurst        = 40
)

// Config captures the runtime settings for the vault risk daemon.
type Config struct {
	ListenAddress string          `yaml:"listen"`
	EngineConfig  string          `yaml:"engine_config"`
	ReadTimeout   time.Duration   `yaml:"read_timeout"`
	WriteTimeout  time.Duration   `yaml:"write_timeout"`
	TLS           TLSConfig       `yaml:"tls"`
	RateLimit     RateLimitConfig `yaml:"rate_limit"`
	Chain         ChainConfig     `yaml:"chain"`
	Log           LogConfig       `yaml:"log"`
}

// TLSConfig describes the TLS material for the HTTP server.
type TLSConfig struct {
	CertPath      string `yaml:"cert"`
	KeyPath       string `yaml:"key"`
	AllowInsecure bool   `yaml:"allow_insecure"`
}

// RateLimitConfig bounds per-client request rates. Zero values take defaults;
// a negative rate disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// ChainConfig points the chain reader at an RPC node and the core contracts.
// Chain reads are disabled when RPCURL is empty.
type ChainConfig struct {
	RPCURL    string          `yaml:"rpc_url"`
	Timeout   time.Duration   `yaml:"timeout"`
	Contracts ContractsConfig `yaml:"contracts"`
}

// ContractsConfig holds the hex addresses of the accounting contracts.
type ContractsConfig struct {
	Vat  string `yaml:"vat"`
	Spot string `yaml:"spot"`
	Jug  string `yaml:"jug"`
	Pot  string `yaml:"pot"`
}

// LogConfig controls verbosity and the optional rotating file sink.
type LogConfig struct {
	Level string        `yaml:"level"`
	File  LogFileConfig `yaml:"file"`
}

// LogFileConfig configures log rotation.
type LogFileConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Enabled reports whether chain reads are configured.
func (cfg ChainConfig) Enabled() bool { return cfg.RPCURL != "" }

// Load reads the YAML configuration from disk and validates the result.
func Load(path string) (Config, error) {
	cfg := Config{ListenAddress: defaultListen}
	if path == "" {
		return cfg, fmt.Errorf("config path required")
	}
	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg *Config) normalize() {
	cfg.ListenAddress = strings.TrimSpace(cfg.ListenAddress)
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = defaultListen
	}
	cfg.EngineConfig = strings.TrimSpace(cfg.EngineConfig)
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 15 * time.Second
	}
	cfg.TLS.CertPath = strings.TrimSpace(cfg.TLS.CertPath)
	cfg.TLS.KeyPath = strings.TrimSpace(cfg.TLS.KeyPath)
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = defaultRPS
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = defaultBurst
	}
	cfg.Chain.normalize()
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.File.Path = strings.TrimSpace(cfg.Log.File.Path)
	if cfg.Log.File.Path != "" && cfg.Log.File.MaxSizeMB <= 0 {
		cfg.Log.File.MaxSizeMB = 100
	}
}

func (cfg *ChainConfig) normalize() {
	cfg.RPCURL = strings.TrimSpace(cfg.RPCURL)
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultChainTimeout
	}
	cfg.Contracts.Vat = strings.TrimSpace(cfg.Contracts.Vat)
	cfg.Contracts.Spot = strings.TrimSpace(cfg.Contracts.Spot)
	cfg.Contracts.Jug = strings.TrimSpace(cfg.Contracts.Jug)
	cfg.Contracts.Pot = strings.TrimSpace(cfg.Contracts.Pot)
}

func (cfg *Config) validate() error {
	if err := cfg.TLS.validate(); err != nil {
		return fmt.Errorf("tls: %w", err)
	}
	if err := cfg.Chain.validate(); err != nil {
		return fmt.Errorf("chain: %w", err)
	}
	switch cfg.Log.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log: unknown level %q", cfg.Log.Level)
	}
	return nil
}

func (cfg TLSConfig) validate() error {
	hasCert := cfg.CertPath != ""
	hasKey := cfg.KeyPath != ""
	if hasCert != hasKey {
		return fmt.Errorf("cert and key must either both be provided or both be empty")
	}
	if !cfg.AllowInsecure && !hasCert {
		return fmt.Errorf("cert and key are required unless allow_insecure=true")
	}
	return nil
}

// Enabled reports whether TLS material is configured.
func (cfg TLSConfig) Enabled() bool { return cfg.CertPath != "" }

func (cfg ChainConfig) validate() error {
	if !cfg.Enabled() {
		return nil
	}
	contracts := map[string]string{
		"vat":  cfg.Contracts.Vat,
		"spot": cfg.Contracts.Spot,
		"jug":  cfg.Contracts.Jug,
		"pot":  cfg.Contracts.Pot,
	}
	for _, name := range []string{"vat", "spot", "jug", "pot"} {
		if !common.IsHexAddress(contracts[name]) {
			return fmt.Errorf("contracts.%s must be a hex address, got %q", name, contracts[name])
		}
	}
	return nil
}
