package vaults

import (
	"math/big"
	"testing"

	fp "vaultrisk/native/fixedpoint"
)

// fixtureIlk prices collateral at 2000 with a 145% liquidation ratio and a
// 1.08 accumulated rate.
func fixtureIlk() RiskParams {
	mat := rayOf("1.45")
	price := new(big.Int).Mul(big.NewInt(2000), fp.RAY)
	spot := new(big.Int).Mul(price, fp.RAY)
	spot.Quo(spot, mat)
	return RiskParams{
		Spot: spot,
		Rate: rayOf("1.08"),
		Par:  new(big.Int).Set(fp.RAY),
		Mat:  mat,
		Dust: new(big.Int).Mul(big.NewInt(7500), fp.RAD),
		Line: new(big.Int).Mul(big.NewInt(100_000), fp.RAD),
		Duty: rayOf("1.000000000472114805215157978"),
	}
}

func fixtureVault(ink, art int64) VaultInput {
	return ilkToVaultInput(fixtureIlk(), PositionRaw{Ink: ether(ink), Art: ether(art)}, nil)
}

func TestCalculateVaultInfo(t *testing.T) {
	got := Default().CalculateVaultInfo(fixtureVault(10, 5000))

	expectInt(t, "debt", got.DebtValue, ether(5400))
	expectInt(t, "delayed price", got.DelayedPrice, ether(2000))
	expectInt(t, "min safe", got.MinSafeCollateralAmount, mustInt(t, "3915000000000000000"))
	expectInt(t, "collateral value", got.CollateralValue, ether(20000))
	expectInt(t, "max safe", got.MaxSafeBorrowableAmount, mustInt(t, "8393103448275862068966"))
	expectInt(t, "max safe int", got.MaxSafeBorrowableIntAmount, ether(8393))
	expectInt(t, "ratio", got.CollateralizationRatio, mustInt(t, "3703703703703703704"))
	expectInt(t, "liquidation price", got.LiquidationPrice, ether(783))
	expectInt(t, "dust", got.Dust, ether(7500))
	if got.LiquidationProximityPercentage != 40 {
		t.Fatalf("unexpected proximity: %v", got.LiquidationProximityPercentage)
	}
	if got.RiskLevel != RiskLevelHigh {
		t.Fatalf("unexpected risk level: %s", got.RiskLevel)
	}
}

func TestCalculateVaultInfoUsesMarketPrice(t *testing.T) {
	in := fixtureVault(10, 5000)
	in.MarketPrice = ether(1000)
	got := Default().CalculateVaultInfo(in)
	if got.LiquidationProximityPercentage != 79 {
		t.Fatalf("unexpected proximity: %v", got.LiquidationProximityPercentage)
	}
	expectInt(t, "delayed price unchanged", got.DelayedPrice, ether(2000))
	expectInt(t, "liquidation price", got.LiquidationPrice, ether(783))
}

func TestCalculateVaultInfoZeroDebt(t *testing.T) {
	in := fixtureVault(10, 0)
	in.Dust = new(big.Int).Exp(big.NewInt(10), big.NewInt(26), nil)
	got := Default().CalculateVaultInfo(in)

	expectInt(t, "debt", got.DebtValue, big.NewInt(0))
	expectInt(t, "liquidation price", got.LiquidationPrice, big.NewInt(0))
	expectInt(t, "ratio", got.CollateralizationRatio, big.NewInt(0))
	expectInt(t, "min safe", got.MinSafeCollateralAmount, big.NewInt(0))
	expectInt(t, "max safe", got.MaxSafeBorrowableAmount, mustInt(t, "13793103448275862068966"))
	expectInt(t, "dust floor", got.Dust, big.NewInt(1))
	if got.LiquidationProximityPercentage != 0 || got.RiskLevel != RiskLevelLow {
		t.Fatalf("unexpected risk: %v %s", got.LiquidationProximityPercentage, got.RiskLevel)
	}
}

func TestCalculateVaultInfoNearLiquidation(t *testing.T) {
	got := Default().CalculateVaultInfo(fixtureVault(10, 12000))
	expectInt(t, "liquidation price", got.LiquidationPrice, wadOf("1879.2"))
	if got.LiquidationProximityPercentage != 94 || got.RiskLevel != RiskLevelLiquidation {
		t.Fatalf("unexpected risk: %v %s", got.LiquidationProximityPercentage, got.RiskLevel)
	}
}

func TestCalculateVaultInfoUninitialisedIlk(t *testing.T) {
	got := Default().CalculateVaultInfo(VaultInput{Art: ether(10), Ink: ether(1)})
	expectInt(t, "debt", got.DebtValue, big.NewInt(0))
	expectInt(t, "dust", got.Dust, big.NewInt(1))
	if got.RiskLevel != RiskLevelLow {
		t.Fatalf("unexpected risk level: %s", got.RiskLevel)
	}
}

func TestCalculateVaultInfoIsPure(t *testing.T) {
	in := fixtureVault(10, 5000)
	a := Default().CalculateVaultInfo(in)
	b := Default().CalculateVaultInfo(in)
	if a.LiquidationPrice.Cmp(b.LiquidationPrice) != 0 || a.MaxSafeBorrowableAmount.Cmp(b.MaxSafeBorrowableAmount) != 0 {
		t.Fatalf("results differ between calls")
	}
	a.DebtValue.SetInt64(0)
	if b.DebtValue.Sign() == 0 {
		t.Fatalf("results must not share storage")
	}
}

func TestLiquidationPriceMonotonicity(t *testing.T) {
	calc := Default()
	prev := big.NewInt(0)
	for art := int64(0); art <= 14000; art += 700 {
		got := calc.CalculateVaultInfo(fixtureVault(10, art)).LiquidationPrice
		if got.Cmp(prev) < 0 {
			t.Fatalf("liquidation price decreased at art=%d", art)
		}
		prev = got
	}

	prev = nil
	for ink := int64(1); ink <= 40; ink += 3 {
		got := calc.CalculateVaultInfo(fixtureVault(ink, 5000)).LiquidationPrice
		if prev != nil && got.Cmp(prev) > 0 {
			t.Fatalf("liquidation price increased at ink=%d", ink)
		}
		prev = got
	}
}

func TestMaxSafeIntNeverExceedsMaxSafe(t *testing.T) {
	for art := int64(0); art <= 14000; art += 1300 {
		got := Default().CalculateVaultInfo(fixtureVault(10, art))
		if got.MaxSafeBorrowableIntAmount.Cmp(got.MaxSafeBorrowableAmount) > 0 {
			t.Fatalf("int amount exceeds amount at art=%d", art)
		}
	}
}

func TestRiskLevelOrdering(t *testing.T) {
	calc := Default()
	prev := RiskLevelLow
	for pct := -5.0; pct <= 100; pct += 0.5 {
		level := calc.RiskLevelFor(pct)
		if level < prev {
			t.Fatalf("risk level decreased at %v: %s after %s", pct, level, prev)
		}
		prev = level
	}
	if calc.RiskLevelFor(85) <= calc.RiskLevelFor(30) {
		t.Fatalf("85%% must classify above 30%%")
	}
	checks := map[float64]RiskLevel{0: RiskLevelLow, 25: RiskLevelMedium, 40: RiskLevelHigh, 79.9: RiskLevelHigh, 80: RiskLevelLiquidation}
	for pct, want := range checks {
		if got := calc.RiskLevelFor(pct); got != want {
			t.Fatalf("%v: got %s want %s", pct, got, want)
		}
	}
}
