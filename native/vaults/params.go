package vaults

import (
	"fmt"
	"math/big"
	"sort"
	"strings"
)

const (
	// DefaultSecondsPerYear is the 365-day year used to annualize per-second rates.
	DefaultSecondsPerYear = 365 * 24 * 60 * 60
	// DefaultMkrToSkyPriceRatio is the fixed MKR:SKY conversion ratio.
	DefaultMkrToSkyPriceRatio = 24_000
)

// RiskLevel classifies how close a vault is to liquidation.
type RiskLevel int

const (
	RiskLevelLow RiskLevel = iota
	RiskLevelMedium
	RiskLevelHigh
	RiskLevelLiquidation
)

var riskLevelNames = map[RiskLevel]string{
	RiskLevelLow:         "LOW",
	RiskLevelMedium:      "MEDIUM",
	RiskLevelHigh:        "HIGH",
	RiskLevelLiquidation: "LIQUIDATION",
}

func (l RiskLevel) String() string {
	if name, ok := riskLevelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("RiskLevel(%d)", int(l))
}

// MarshalText encodes the level by name.
func (l RiskLevel) MarshalText() ([]byte, error) {
	if _, ok := riskLevelNames[l]; !ok {
		return nil, fmt.Errorf("vaults: unknown risk level %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText decodes a level name, case-insensitively.
func (l *RiskLevel) UnmarshalText(text []byte) error {
	parsed, err := ParseRiskLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseRiskLevel maps a level name such as "HIGH" to its RiskLevel.
func ParseRiskLevel(name string) (RiskLevel, error) {
	normalized := strings.ToUpper(strings.TrimSpace(name))
	for level, candidate := range riskLevelNames {
		if candidate == normalized {
			return level, nil
		}
	}
	return RiskLevelLow, fmt.Errorf("vaults: unknown risk level %q", name)
}

// RiskThreshold assigns Level to every proximity percentage >= Percentage.
type RiskThreshold struct {
	Level      RiskLevel
	Percentage float64
}

// DefaultRiskThresholds returns the fixed LIQUIDATION(80) HIGH(40) MEDIUM(25) LOW(0) table.
func DefaultRiskThresholds() []RiskThreshold {
	return []RiskThreshold{
		{Level: RiskLevelLiquidation, Percentage: 80},
		{Level: RiskLevelHigh, Percentage: 40},
		{Level: RiskLevelMedium, Percentage: 25},
		{Level: RiskLevelLow, Percentage: 0},
	}
}

// Params holds the engine constants.
type Params struct {
	SecondsPerYear     uint64
	MkrToSkyPriceRatio *big.Int
	RiskThresholds     []RiskThreshold
}

// DefaultParams returns the production constants.
func DefaultParams() Params {
	return Params{
		SecondsPerYear:     DefaultSecondsPerYear,
		MkrToSkyPriceRatio: big.NewInt(DefaultMkrToSkyPriceRatio),
		RiskThresholds:     DefaultRiskThresholds(),
	}
}

// Clone returns a deep copy of the parameters.
func (p Params) Clone() Params {
	clone := Params{SecondsPerYear: p.SecondsPerYear}
	if p.MkrToSkyPriceRatio != nil {
		clone.MkrToSkyPriceRatio = new(big.Int).Set(p.MkrToSkyPriceRatio)
	}
	clone.RiskThresholds = append([]RiskThreshold(nil), p.RiskThresholds...)
	return clone
}

// Validate reports the first inconsistency in the parameters.
func (p Params) Validate() error {
	if p.SecondsPerYear == 0 {
		return fmt.Errorf("vaults: seconds per year must be positive")
	}
	if p.MkrToSkyPriceRatio == nil || p.MkrToSkyPriceRatio.Sign() <= 0 {
		return fmt.Errorf("vaults: mkr to sky price ratio must be positive")
	}
	if len(p.RiskThresholds) == 0 {
		return fmt.Errorf("vaults: risk thresholds required")
	}
	seen := make(map[RiskLevel]struct{}, len(p.RiskThresholds))
	hasLow := false
	for _, th := range p.RiskThresholds {
		if _, ok := riskLevelNames[th.Level]; !ok {
			return fmt.Errorf("vaults: unknown risk level %d", int(th.Level))
		}
		if _, dup := seen[th.Level]; dup {
			return fmt.Errorf("vaults: duplicate threshold for %s", th.Level)
		}
		seen[th.Level] = struct{}{}
		if th.Percentage < 0 || th.Percentage > 100 {
			return fmt.Errorf("vaults: threshold for %s out of range: %v", th.Level, th.Percentage)
		}
		if th.Level == RiskLevelLow {
			hasLow = true
		}
	}
	if !hasLow {
		return fmt.Errorf("vaults: LOW threshold required")
	}
	return nil
}

// Calculator evaluates the math that depends on engine constants. It holds no
// mutable state and is safe for concurrent use.
type Calculator struct {
	secondsPerYear *big.Int
	ratio          *big.Int
	thresholds     []RiskThreshold
}

// NewCalculator validates params and returns a calculator bound to them.
func NewCalculator(params Params) (*Calculator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	thresholds := append([]RiskThreshold(nil), params.RiskThresholds...)
	// Scan order is high to low; the first threshold a percentage reaches wins.
	sort.SliceStable(thresholds, func(i, j int) bool {
		return thresholds[i].Percentage > thresholds[j].Percentage
	})
	return &Calculator{
		secondsPerYear: new(big.Int).SetUint64(params.SecondsPerYear),
		ratio:          new(big.Int).Set(params.MkrToSkyPriceRatio),
		thresholds:     thresholds,
	}, nil
}

var defaultCalculator = func() *Calculator {
	calc, err := NewCalculator(DefaultParams())
	if err != nil {
		panic(err)
	}
	return calc
}()

// Default returns a calculator configured with DefaultParams.
func Default() *Calculator { return defaultCalculator }

// Params returns a copy of the constants the calculator was built with.
func (c *Calculator) Params() Params {
	return Params{
		SecondsPerYear:     c.secondsPerYear.Uint64(),
		MkrToSkyPriceRatio: new(big.Int).Set(c.ratio),
		RiskThresholds:     append([]RiskThreshold(nil), c.thresholds...),
	}
}

// RiskLevelFor classifies a liquidation proximity percentage. Percentages
// below every threshold fall back to LOW.
func (c *Calculator) RiskLevelFor(percentage float64) RiskLevel {
	for _, th := range c.thresholds {
		if percentage >= th.Percentage {
			return th.Level
		}
	}
	return RiskLevelLow
}
