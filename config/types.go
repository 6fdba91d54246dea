package config

// RiskThreshold maps a proximity percentage to a risk level name.
type RiskThreshold struct {
	Level      string  `toml:"Level"`
	Percentage float64 `toml:"Percentage"`
}

// Config holds the engine constants read from risk.toml.
type Config struct {
	SecondsPerYear     uint64          `toml:"SecondsPerYear"`
	MkrToSkyPriceRatio int64           `toml:"MkrToSkyPriceRatio"`
	RiskThresholds     []RiskThreshold `toml:"RiskThresholds"`
}
