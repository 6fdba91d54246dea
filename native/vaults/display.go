package vaults

import (
	"math/big"

	fp "vaultrisk/native/fixedpoint"
)

// Amount pairs a raw fixed-point integer with its precision and a human
// decimal rendering.
type Amount struct {
	Raw       string `json:"raw"`
	Decimals  int    `json:"decimals"`
	Formatted string `json:"formatted"`
}

// NewAmount renders raw at the given precision. A nil raw renders as nil.
func NewAmount(raw *big.Int, decimals int) *Amount {
	if raw == nil {
		return nil
	}
	v := fp.FromInteger(raw, decimals)
	return &Amount{Raw: raw.String(), Decimals: decimals, Formatted: v.String()}
}

// WadAmount renders an 18-decimal amount.
func WadAmount(raw *big.Int) *Amount { return NewAmount(raw, fp.WadPrecision) }

// VaultDisplay is the presentation form of VaultParams.
type VaultDisplay struct {
	DebtValue                      *Amount   `json:"debtValue"`
	CollateralValue                *Amount   `json:"collateralValue"`
	LiquidationPrice               *Amount   `json:"liquidationPrice"`
	CollateralizationRatio         *Amount   `json:"collateralizationRatio"`
	DelayedPrice                   *Amount   `json:"delayedPrice"`
	Dust                           *Amount   `json:"dust"`
	MinSafeCollateralAmount        *Amount   `json:"minSafeCollateralAmount"`
	MaxSafeBorrowableAmount        *Amount   `json:"maxSafeBorrowableAmount"`
	MaxSafeBorrowableIntAmount     *Amount   `json:"maxSafeBorrowableIntAmount"`
	LiquidationProximityPercentage float64   `json:"liquidationProximityPercentage"`
	RiskLevel                      RiskLevel `json:"riskLevel"`
}

// Display converts the bundle for rendering.
func (p VaultParams) Display() VaultDisplay {
	return VaultDisplay{
		DebtValue:                      WadAmount(p.DebtValue),
		CollateralValue:                WadAmount(p.CollateralValue),
		LiquidationPrice:               WadAmount(p.LiquidationPrice),
		CollateralizationRatio:         WadAmount(p.CollateralizationRatio),
		DelayedPrice:                   WadAmount(p.DelayedPrice),
		Dust:                           WadAmount(p.Dust),
		MinSafeCollateralAmount:        WadAmount(p.MinSafeCollateralAmount),
		MaxSafeBorrowableAmount:        WadAmount(p.MaxSafeBorrowableAmount),
		MaxSafeBorrowableIntAmount:     WadAmount(p.MaxSafeBorrowableIntAmount),
		LiquidationProximityPercentage: p.LiquidationProximityPercentage,
		RiskLevel:                      p.RiskLevel,
	}
}

// CollateralDisplay is the presentation form of CollateralRiskParameters.
type CollateralDisplay struct {
	DelayedPrice              *Amount `json:"delayedPrice"`
	DebtCeiling               *Amount `json:"debtCeiling"`
	DebtCeilingUtilization    float64 `json:"debtCeilingUtilization"`
	StabilityFee              *Amount `json:"stabilityFee"`
	TotalDaiDebt              *Amount `json:"totalDaiDebt,omitempty"`
	Dust                      *Amount `json:"dust"`
	MinCollateralizationRatio *Amount `json:"minCollateralizationRatio"`
}

// Display converts the bundle for rendering.
func (p CollateralRiskParameters) Display() CollateralDisplay {
	return CollateralDisplay{
		DelayedPrice:              WadAmount(p.DelayedPrice),
		DebtCeiling:               WadAmount(p.DebtCeiling),
		DebtCeilingUtilization:    p.DebtCeilingUtilization,
		StabilityFee:              WadAmount(p.StabilityFee),
		TotalDaiDebt:              WadAmount(p.TotalDaiDebt),
		Dust:                      NewAmount(p.Dust, fp.RadPrecision),
		MinCollateralizationRatio: NewAmount(p.MinCollateralizationRatio, fp.RayPrecision),
	}
}

// ValidationDisplay is the presentation form of a ValidationError.
type ValidationDisplay struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SimulationDisplay is the presentation form of Simulation.
type SimulationDisplay struct {
	Target                    VaultDisplay        `json:"target"`
	Existing                  VaultDisplay        `json:"existing"`
	MaxWithdrawableCollateral *Amount             `json:"maxWithdrawableCollateral"`
	Valid                     bool                `json:"valid"`
	Errors                    []ValidationDisplay `json:"errors"`
}

// Display converts the simulation for rendering.
func (s Simulation) Display() SimulationDisplay {
	out := SimulationDisplay{
		Target:                    s.Target.Display(),
		Existing:                  s.Existing.Display(),
		MaxWithdrawableCollateral: WadAmount(s.MaxWithdrawableCollateral),
		Valid:                     s.Valid(),
		Errors:                    make([]ValidationDisplay, 0, len(s.Errors)),
	}
	for _, e := range s.Errors {
		out.Errors = append(out.Errors, ValidationDisplay{Code: e.Code, Message: e.Message})
	}
	return out
}
