package vaults

import (
	"math/big"
	"strings"

	fp "vaultrisk/native/fixedpoint"
)

// Nil inputs are treated as zero throughout. Every division has a documented
// neutral result for a zero divisor: uninitialised ilks and empty vaults are
// normal states, not failures.

const (
	wad = fp.WadPrecision
	ray = fp.RayPrecision

	usdcPrecision = 6
	// maxFeeDoublings bounds MkrVaultStabilityFee; 2^256 already exceeds any
	// representable on-chain rate.
	maxFeeDoublings = 256
)

var (
	softCeilingAssetsWeight = fp.MustFromDecimalString("0.66", wad)
	softCeilingElixirWeight = fp.MustFromDecimalString("0.4", wad)
	feeStepFraction         = fp.MustFromDecimalString("0.2", wad)
	feeStepFactor           = fp.MustFromDecimalString("2", wad)
)

// Token identifies the origin asset of a conversion.
type Token struct {
	Symbol string
}

func orZero(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return x
}

func isZero(x *big.Int) bool { return x == nil || x.Sign() == 0 }

func toWad(v fp.Value) *big.Int { return fp.Round(v, wad).Int() }

func wadValue(x *big.Int) fp.Value { return fp.Wad(orZero(x)) }
func rayValue(x *big.Int) fp.Value { return fp.Ray(orZero(x)) }

// annualize compounds a per-second RAY rate over a year and returns the
// growth above one as a WAD. A zero rate is uninitialised and yields zero.
func (c *Calculator) annualize(rate *big.Int) *big.Int {
	if isZero(rate) {
		return new(big.Int)
	}
	compounded := fp.Pow(rayValue(rate), c.secondsPerYear.Uint64())
	return toWad(fp.Sub(compounded, fp.One(ray)))
}

// AnnualStabilityFee converts the per-second duty (RAY) into the annual fee
// (WAD): duty^secondsPerYear - 1. A duty of exactly one RAY yields zero.
func (c *Calculator) AnnualStabilityFee(duty *big.Int) *big.Int {
	return c.annualize(duty)
}

// AnnualDaiSavingsRate converts the per-second dsr (RAY) into the annual
// savings rate (WAD).
func (c *Calculator) AnnualDaiSavingsRate(dsr *big.Int) *big.Int {
	return c.annualize(dsr)
}

// LiquidationPenalty returns chop - 1 as a WAD. A zero chop is uninitialised
// and yields zero.
func LiquidationPenalty(chop *big.Int) *big.Int {
	if isZero(chop) {
		return new(big.Int)
	}
	return new(big.Int).Sub(chop, fp.WAD)
}

// DelayedPrice recovers the oracle price (WAD) from spot, par and mat (RAY).
func DelayedPrice(par, spot, mat *big.Int) *big.Int {
	return toWad(fp.Multiply(fp.Multiply(rayValue(spot), rayValue(par)), rayValue(mat)))
}

// DebtValue returns art × rate as a WAD.
func DebtValue(art, rate *big.Int) *big.Int {
	return toWad(fp.Multiply(wadValue(art), rayValue(rate)))
}

// ArtValue converts a debt amount back into normalized art. Zero rate yields zero.
func ArtValue(debtValue, rate *big.Int) *big.Int {
	art, err := fp.Divide(wadValue(debtValue), rayValue(rate))
	if err != nil {
		return new(big.Int)
	}
	return toWad(art)
}

// LiquidationPrice returns the collateral price at which the vault reaches
// mat: debt × mat / ink. Zero ink yields zero.
func LiquidationPrice(ink, debtValue, mat *big.Int) *big.Int {
	price, err := fp.Divide(fp.Multiply(wadValue(debtValue), rayValue(mat)), wadValue(ink))
	if err != nil {
		return new(big.Int)
	}
	return toWad(price)
}

// CollateralValue returns ink × price as a WAD.
func CollateralValue(ink, price *big.Int) *big.Int {
	return toWad(fp.Multiply(wadValue(ink), wadValue(price)))
}

// CollateralizationRatio returns collateral / debt as a WAD ratio. Both
// operands are first rounded to 4 decimals; a debt that rounds to zero
// yields zero.
func CollateralizationRatio(collateralValue, debtValue *big.Int) *big.Int {
	collateral := fp.Round(fp.Round(wadValue(collateralValue), 4), wad)
	debt := fp.Round(wadValue(debtValue), 4)
	ratio, err := fp.Divide(collateral, debt)
	if err != nil {
		return new(big.Int)
	}
	return ratio.Int()
}

// MinSafeCollateralAmount returns the collateral needed to keep debt at mat:
// debt × mat / price. Zero price yields zero.
func MinSafeCollateralAmount(debtValue, mat, price *big.Int) *big.Int {
	amount, err := fp.Divide(fp.Multiply(wadValue(debtValue), rayValue(mat)), wadValue(price))
	if err != nil {
		return new(big.Int)
	}
	return toWad(amount)
}

// MaxCollateralAvailable returns ink - minSafe. The result may be negative
// for an unsafe vault; callers decide how to present that.
func MaxCollateralAvailable(ink, minSafeCollateral *big.Int) *big.Int {
	return new(big.Int).Sub(orZero(ink), orZero(minSafeCollateral))
}

// DaiAvailable returns the additional debt the vault can draw while staying
// at mat, clamped at zero. Zero mat yields zero.
func DaiAvailable(collateralValue, debtValue, mat *big.Int) *big.Int {
	capacity, err := fp.Divide(wadValue(collateralValue), rayValue(mat))
	if err != nil {
		return new(big.Int)
	}
	available := new(big.Int).Sub(capacity.Int(), orZero(debtValue))
	if available.Sign() < 0 {
		return new(big.Int)
	}
	return available
}

// DsrBalance returns pie × chi as a WAD.
func DsrBalance(pie, chi *big.Int) *big.Int {
	return toWad(fp.Multiply(wadValue(pie), rayValue(chi)))
}

// CalculateAssetsFromShares is DsrBalance under its savings-vault name.
func CalculateAssetsFromShares(shares, chi *big.Int) *big.Int {
	return DsrBalance(shares, chi)
}

// CalculateSharesFromAssets returns amount / chi as a WAD. Zero chi yields zero.
func CalculateSharesFromAssets(amount, chi *big.Int) *big.Int {
	shares, err := fp.Divide(wadValue(amount), rayValue(chi))
	if err != nil {
		return new(big.Int)
	}
	return shares.Int()
}

// UpdatedChi accrues chi (RAY) from rho to now at the per-second dsr (RAY).
// A timestamp at or before rho returns chi unchanged.
func UpdatedChi(chi, dsr *big.Int, rho, now uint64) *big.Int {
	if now <= rho || isZero(dsr) {
		return new(big.Int).Set(orZero(chi))
	}
	grown := fp.Multiply(rayValue(chi), fp.Pow(rayValue(dsr), now-rho))
	return fp.Round(grown, ray).Int()
}

// GetRewardsRate annualizes a per-second reward value (WAD) against the
// value supplied (WAD) and returns the ratio as a WAD. Nothing supplied
// yields zero.
func (c *Calculator) GetRewardsRate(ratePerSecondValue, totalSuppliedValue *big.Int) *big.Int {
	yearly := fp.Wad(new(big.Int).Mul(orZero(ratePerSecondValue), c.secondsPerYear))
	rate, err := fp.Divide(yearly, wadValue(totalSuppliedValue))
	if err != nil {
		return new(big.Int)
	}
	return rate.Int()
}

// DebtCeilingUtilization returns debt / ceiling capped to [0, 1]. A zero
// ceiling is treated as fully utilised.
func DebtCeilingUtilization(debtCeiling, debt *big.Int) float64 {
	if isZero(debtCeiling) || debtCeiling.Sign() < 0 {
		return 1
	}
	if debt == nil || debt.Sign() <= 0 {
		return 0
	}
	if debt.Cmp(debtCeiling) >= 0 {
		return 1
	}
	utilisation, _ := new(big.Rat).SetFrac(debt, debtCeiling).Float64()
	return utilisation
}

// DebtCeilingHeadroom returns how much more debt fits under the ceiling,
// clamped at zero.
func DebtCeilingHeadroom(debtCeiling, totalDebt *big.Int) *big.Int {
	headroom := new(big.Int).Sub(orZero(debtCeiling), orZero(totalDebt))
	if headroom.Sign() < 0 {
		return new(big.Int)
	}
	return headroom
}

// SoftDebtCeiling returns surplusBuffer + 0.66 × assetsOwned + 0.4 × elixirOwned.
func SoftDebtCeiling(surplusBuffer, assetsOwned, elixirOwned *big.Int) *big.Int {
	assets := fp.Round(fp.Multiply(wadValue(assetsOwned), softCeilingAssetsWeight), wad)
	elixir := fp.Round(fp.Multiply(wadValue(elixirOwned), softCeilingElixirWeight), wad)
	return fp.Add(fp.Add(wadValue(surplusBuffer), assets), elixir).Int()
}

// MkrVaultStabilityFee returns the annual fee (WAD) for MKR-backed vaults.
// Below the soft ceiling the fee is dsr; above it dsr doubles once per full
// 20% of the soft ceiling that total debt exceeds it by.
func MkrVaultStabilityFee(dsr, totalDebt, softCeiling *big.Int) *big.Int {
	base := wadValue(dsr)
	if orZero(totalDebt).Cmp(orZero(softCeiling)) < 0 {
		return base.Int()
	}
	step := fp.Round(fp.Multiply(wadValue(softCeiling), feeStepFraction), wad)
	if step.Sign() <= 0 {
		return base.Int()
	}
	excess := new(big.Int).Sub(orZero(totalDebt), orZero(softCeiling))
	steps := new(big.Int).Quo(excess, step.Int())
	count := uint64(maxFeeDoublings)
	if steps.IsUint64() && steps.Uint64() < count {
		count = steps.Uint64()
	}
	return fp.RepeatedMultiply(base, feeStepFactor, count).Int()
}

// RemoveDecimalPartOfWad floors a WAD to a whole number of tokens, still
// expressed as a WAD.
func RemoveDecimalPartOfWad(value *big.Int) *big.Int {
	return fp.Round(fp.Truncate(wadValue(value), 0), wad).Int()
}

// ConvertUSDCtoWad rescales a 6-decimal USDC amount to 18 decimals.
func ConvertUSDCtoWad(amount *big.Int) *big.Int {
	return fp.Round(fp.FromInteger(orZero(amount), usdcPrecision), wad).Int()
}

// ConvertWadtoUSDC rescales an 18-decimal amount to USDC's 6 decimals,
// rounding down. Sub-USDC fractions are lost.
func ConvertWadtoUSDC(amount *big.Int) *big.Int {
	return fp.Truncate(wadValue(amount), usdcPrecision).Int()
}

// RoundDownLastTwelveDigits zeroes the digits below USDC precision.
func RoundDownLastTwelveDigits(value *big.Int) *big.Int {
	return fp.Round(fp.Truncate(wadValue(value), usdcPrecision), wad).Int()
}

// RoundUpLastTwelveDigits rounds up to the next USDC-aligned WAD unless the
// value is already aligned.
func RoundUpLastTwelveDigits(value *big.Int) *big.Int {
	return fp.Round(fp.RoundWith(wadValue(value), usdcPrecision, fp.RoundUp), wad).Int()
}

// CalculateConversion converts between the legacy and upgraded tokens: DAI
// and USDS are 1:1, MKR becomes SKY at the fixed ratio and anything else is
// treated as SKY converting back to MKR (integer division).
func (c *Calculator) CalculateConversion(origin Token, amount *big.Int) *big.Int {
	value := orZero(amount)
	switch strings.ToUpper(strings.TrimSpace(origin.Symbol)) {
	case "DAI", "USDS":
		return new(big.Int).Set(value)
	case "MKR":
		return new(big.Int).Mul(value, c.ratio)
	default:
		return new(big.Int).Quo(value, c.ratio)
	}
}

// ConvertRadToWad rescales a RAD to a WAD, rounding down.
func ConvertRadToWad(value *big.Int) *big.Int {
	return fp.Truncate(fp.Rad(orZero(value)), wad).Int()
}

// MaxWithdrawableCollateral returns the collateral that can be freed while
// staying safe, net of the exit fee (WAD fraction). Rounds down.
func MaxWithdrawableCollateral(ink, minSafeCollateral, exitFee *big.Int) *big.Int {
	available := MaxCollateralAvailable(ink, minSafeCollateral)
	if available.Sign() <= 0 {
		return new(big.Int)
	}
	fee := orZero(exitFee)
	if fee.Cmp(fp.WAD) >= 0 {
		return new(big.Int)
	}
	if fee.Sign() < 0 {
		fee = new(big.Int)
	}
	kept := fp.Wad(new(big.Int).Sub(fp.WAD, fee))
	return fp.Truncate(fp.Multiply(fp.Wad(available), kept), wad).Int()
}
