package config

import (
	"fmt"
	"math/big"

	"vaultrisk/native/vaults"
)

// Params converts the file representation into validated engine parameters.
func (c *Config) Params() (vaults.Params, error) {
	params := vaults.Params{
		SecondsPerYear:     c.SecondsPerYear,
		MkrToSkyPriceRatio: big.NewInt(c.MkrToSkyPriceRatio),
	}
	for _, th := range c.RiskThresholds {
		level, err := vaults.ParseRiskLevel(th.Level)
		if err != nil {
			return vaults.Params{}, fmt.Errorf("risk thresholds: %w", err)
		}
		params.RiskThresholds = append(params.RiskThresholds, vaults.RiskThreshold{Level: level, Percentage: th.Percentage})
	}
	if err := params.Validate(); err != nil {
		return vaults.Params{}, err
	}
	return params, nil
}

// Calculator builds a vaults.Calculator bound to the configured constants.
func (c *Config) Calculator() (*vaults.Calculator, error) {
	params, err := c.Params()
	if err != nil {
		return nil, err
	}
	return vaults.NewCalculator(params)
}
