package vaults

import "math/big"

// RiskParams holds the raw ilk-level values as read from Vat, Spot and Jug.
type RiskParams struct {
	Spot   *big.Int // RAY
	Rate   *big.Int // RAY
	Par    *big.Int // RAY
	Mat    *big.Int // RAY
	Dust   *big.Int // RAD
	Line   *big.Int // RAD
	Duty   *big.Int // RAY
	IlkArt *big.Int // WAD, nil until loaded
}

// PositionRaw is the raw Vat urn of one position.
type PositionRaw struct {
	Ink *big.Int // WAD
	Art *big.Int // WAD
}

// CollateralRiskParameters is the derived picture of a collateral type.
type CollateralRiskParameters struct {
	DelayedPrice           *big.Int
	DebtCeiling            *big.Int
	DebtCeilingUtilization float64
	StabilityFee           *big.Int
	// TotalDaiDebt stays nil when IlkArt was not loaded or is zero.
	TotalDaiDebt *big.Int
	// Dust is the raw RAD value.
	Dust                      *big.Int
	MinCollateralizationRatio *big.Int
}

// CalculateCollateralRiskParams derives ilk-wide risk parameters.
func (c *Calculator) CalculateCollateralRiskParams(ilk RiskParams) CollateralRiskParameters {
	ceiling := ConvertRadToWad(ilk.Line)

	var total *big.Int
	if !isZero(ilk.IlkArt) {
		total = DebtValue(ilk.IlkArt, ilk.Rate)
	}

	return CollateralRiskParameters{
		DelayedPrice:              DelayedPrice(ilk.Par, ilk.Spot, ilk.Mat),
		DebtCeiling:               ceiling,
		DebtCeilingUtilization:    DebtCeilingUtilization(ceiling, total),
		StabilityFee:              c.AnnualStabilityFee(ilk.Duty),
		TotalDaiDebt:              total,
		Dust:                      new(big.Int).Set(orZero(ilk.Dust)),
		MinCollateralizationRatio: new(big.Int).Set(orZero(ilk.Mat)),
	}
}
