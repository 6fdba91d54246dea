package vaults

import "math/big"

// VaultInput carries the raw on-chain values of one position and its ilk.
// MarketPrice is an optional WAD override for the proximity reference price.
type VaultInput struct {
	Spot        *big.Int // RAY
	Rate        *big.Int // RAY
	Art         *big.Int // WAD
	Ink         *big.Int // WAD
	Par         *big.Int // RAY
	Mat         *big.Int // RAY
	Dust        *big.Int // RAD
	MarketPrice *big.Int // WAD, optional
}

// VaultParams is the derived risk picture of a position. Every amount is a WAD.
type VaultParams struct {
	DebtValue                      *big.Int
	CollateralValue                *big.Int
	LiquidationPrice               *big.Int
	CollateralizationRatio         *big.Int
	DelayedPrice                   *big.Int
	Dust                           *big.Int
	MinSafeCollateralAmount        *big.Int
	MaxSafeBorrowableAmount        *big.Int
	MaxSafeBorrowableIntAmount     *big.Int
	LiquidationProximityPercentage float64
	RiskLevel                      RiskLevel
}

// CalculateVaultInfo derives the full risk picture of a position. It is total
// over zero inputs and never panics on chain data.
func (c *Calculator) CalculateVaultInfo(in VaultInput) VaultParams {
	debt := DebtValue(in.Art, in.Rate)
	delayed := DelayedPrice(in.Par, in.Spot, in.Mat)
	collateral := CollateralValue(in.Ink, delayed)
	maxSafe := DaiAvailable(collateral, debt, in.Mat)
	liquidation := LiquidationPrice(in.Ink, debt, in.Mat)

	reference := delayed
	if in.MarketPrice != nil {
		reference = in.MarketPrice
	}
	proximity := liquidationProximity(debt, collateral, liquidation, reference)

	dust := ConvertRadToWad(in.Dust)
	if dust.Sign() == 0 {
		dust.SetInt64(1)
	}

	return VaultParams{
		DebtValue:                      debt,
		CollateralValue:                collateral,
		LiquidationPrice:               liquidation,
		CollateralizationRatio:         CollateralizationRatio(collateral, debt),
		DelayedPrice:                   delayed,
		Dust:                           dust,
		MinSafeCollateralAmount:        MinSafeCollateralAmount(debt, in.Mat, delayed),
		MaxSafeBorrowableAmount:        maxSafe,
		MaxSafeBorrowableIntAmount:     RemoveDecimalPartOfWad(maxSafe),
		LiquidationProximityPercentage: proximity,
		RiskLevel:                      c.RiskLevelFor(proximity),
	}
}

// liquidationProximity reports how far the liquidation price has travelled
// toward the reference price, 0 meaning no debt and 100 meaning at or past
// liquidation.
func liquidationProximity(debt, collateral, liquidation, reference *big.Int) float64 {
	if debt.Sign() == 0 {
		return 0
	}
	if liquidation.Cmp(reference) >= 0 || collateral.Sign() == 0 || reference.Sign() <= 0 {
		return 100
	}
	gap := new(big.Int).Sub(reference, liquidation)
	gap.Mul(gap, big.NewInt(100))
	gap.Quo(gap, reference)
	pct := float64(100 - gap.Int64())
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}

// ilkToVaultInput binds a position to its ilk parameters.
func ilkToVaultInput(ilk RiskParams, pos PositionRaw, marketPrice *big.Int) VaultInput {
	return VaultInput{
		Spot:        ilk.Spot,
		Rate:        ilk.Rate,
		Art:         pos.Art,
		Ink:         pos.Ink,
		Par:         ilk.Par,
		Mat:         ilk.Mat,
		Dust:        ilk.Dust,
		MarketPrice: marketPrice,
	}
}

// CalculatePositionInfo is CalculateVaultInfo for a position read alongside its ilk.
func (c *Calculator) CalculatePositionInfo(ilk RiskParams, pos PositionRaw, marketPrice *big.Int) VaultParams {
	return c.CalculateVaultInfo(ilkToVaultInput(ilk, pos, marketPrice))
}
