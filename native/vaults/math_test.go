package vaults

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/params"

	fp "vaultrisk/native/fixedpoint"
)

func mustInt(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		t.Fatalf("invalid integer %q", s)
	}
	return v
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(params.Ether))
}

func rayOf(s string) *big.Int { return fp.MustFromDecimalString(s, fp.RayPrecision).Int() }
func wadOf(s string) *big.Int { return fp.MustFromDecimalString(s, fp.WadPrecision).Int() }

func expectInt(t *testing.T, name string, got, want *big.Int) {
	t.Helper()
	if got == nil || got.Cmp(want) != 0 {
		t.Fatalf("%s: got %v want %s", name, got, want)
	}
}

func TestAnnualStabilityFeeCompoundsExactly(t *testing.T) {
	duty := mustInt(t, "1000000000472114805215157978")
	fee := Default().AnnualStabilityFee(duty)
	expectInt(t, "fee", fee, mustInt(t, "15000000000000000"))

	// Floating point compounding reported 14999999567561817. Conformance is
	// staying within one gwei of that figure, not matching it exactly.
	legacy := mustInt(t, "14999999567561817")
	diff := new(big.Int).Sub(fee, legacy)
	if diff.Abs(diff).Cmp(big.NewInt(params.GWei)) > 0 {
		t.Fatalf("drifted from legacy figure by %s", diff)
	}

	expectInt(t, "unit duty", Default().AnnualStabilityFee(fp.RAY), big.NewInt(0))
	expectInt(t, "zero duty", Default().AnnualStabilityFee(nil), big.NewInt(0))
}

func TestAnnualDaiSavingsRate(t *testing.T) {
	dsr := mustInt(t, "1000000001547125957863212448")
	expectInt(t, "dsr", Default().AnnualDaiSavingsRate(dsr), wadOf("0.05"))
}

func TestLiquidationPriceFixture(t *testing.T) {
	ink := mustInt(t, "170504224432949487863")
	art := mustInt(t, "169270852554661192394644")
	rate := mustInt(t, "1086194344171615624883224861")
	mat := mustInt(t, "1450000000000000000000000000")

	debt := DebtValue(art, rate)
	expectInt(t, "debt", debt, mustInt(t, "183861042677980461151043"))
	expectInt(t, "liquidation price", LiquidationPrice(ink, debt, mat), mustInt(t, "1563588895053512910785"))
}

func TestZeroGuards(t *testing.T) {
	zero := big.NewInt(0)
	one := ether(1)
	cases := []struct {
		name string
		got  *big.Int
	}{
		{"art value with zero rate", ArtValue(one, zero)},
		{"liquidation price with zero ink", LiquidationPrice(zero, one, rayOf("1.5"))},
		{"ratio with zero debt", CollateralizationRatio(one, zero)},
		{"ratio with debt rounding to zero", CollateralizationRatio(one, big.NewInt(40_000_000_000_000))},
		{"min safe with zero price", MinSafeCollateralAmount(one, rayOf("1.5"), zero)},
		{"dai available with zero mat", DaiAvailable(one, zero, zero)},
		{"dai available clamps", DaiAvailable(one, ether(10), rayOf("1.5"))},
		{"shares with zero chi", CalculateSharesFromAssets(one, zero)},
		{"rewards with nothing supplied", Default().GetRewardsRate(one, zero)},
		{"round down nil", RoundDownLastTwelveDigits(nil)},
		{"round up nil", RoundUpLastTwelveDigits(nil)},
		{"penalty with zero chop", LiquidationPenalty(zero)},
		{"nil debt value", DebtValue(nil, nil)},
	}
	for _, tc := range cases {
		if tc.got == nil || tc.got.Sign() != 0 {
			t.Fatalf("%s: got %v want 0", tc.name, tc.got)
		}
	}
}

func TestCollateralizationRatioRoundsOperands(t *testing.T) {
	// 1.00005 rounds to 1.0001 before dividing.
	got := CollateralizationRatio(wadOf("2"), wadOf("1.00005"))
	expectInt(t, "ratio", got, mustInt(t, "1999800019998000200"))
	expectInt(t, "whole ratio", CollateralizationRatio(ether(20000), ether(5400)), mustInt(t, "3703703703703703704"))
}

func TestMaxCollateralAvailableMayBeNegative(t *testing.T) {
	got := MaxCollateralAvailable(ether(1), ether(3))
	expectInt(t, "available", got, ether(-2))
}

func TestLiquidationPenalty(t *testing.T) {
	expectInt(t, "penalty", LiquidationPenalty(wadOf("1.13")), wadOf("0.13"))
}

func TestDebtCeilingUtilization(t *testing.T) {
	cases := []struct {
		name    string
		ceiling *big.Int
		debt    *big.Int
		want    float64
	}{
		{"zero ceiling", big.NewInt(0), ether(5), 1},
		{"quarter", ether(1000), ether(250), 0.25},
		{"clamped", ether(1000), ether(1500), 1},
		{"no debt", ether(1000), nil, 0},
	}
	for _, tc := range cases {
		if got := DebtCeilingUtilization(tc.ceiling, tc.debt); got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}

func TestDebtCeilingHeadroom(t *testing.T) {
	expectInt(t, "headroom", DebtCeilingHeadroom(ether(100), ether(40)), ether(60))
	expectInt(t, "exhausted", DebtCeilingHeadroom(ether(100), ether(140)), big.NewInt(0))
}

func TestSoftDebtCeiling(t *testing.T) {
	got := SoftDebtCeiling(ether(100), ether(1000), ether(500))
	expectInt(t, "soft ceiling", got, ether(960))
}

func TestMkrVaultStabilityFee(t *testing.T) {
	dsr := wadOf("0.05")
	soft := ether(1000)
	expectInt(t, "below ceiling", MkrVaultStabilityFee(dsr, ether(999), soft), dsr)
	expectInt(t, "at ceiling", MkrVaultStabilityFee(dsr, soft, soft), dsr)
	// 450 over a 1000 ceiling is two full 20% steps.
	expectInt(t, "two doublings", MkrVaultStabilityFee(dsr, ether(1450), soft), wadOf("0.2"))
	expectInt(t, "zero ceiling", MkrVaultStabilityFee(dsr, ether(1), big.NewInt(0)), dsr)
}

func TestRewardsRate(t *testing.T) {
	got := Default().GetRewardsRate(wadOf("0.001"), ether(1000))
	expectInt(t, "rewards", got, wadOf("31.536"))
}

func TestSavingsConversions(t *testing.T) {
	chi := rayOf("1.05")
	expectInt(t, "assets", CalculateAssetsFromShares(ether(100), chi), ether(105))
	expectInt(t, "balance", DsrBalance(ether(100), chi), ether(105))
	expectInt(t, "shares", CalculateSharesFromAssets(ether(105), chi), ether(100))
}

func TestUpdatedChi(t *testing.T) {
	chi := rayOf("1.05")
	dsr := mustInt(t, "1000000001547125957863212448")
	expectInt(t, "drip", UpdatedChi(chi, dsr, 1_000, 4_600), mustInt(t, "1050005848152402275007659587"))
	expectInt(t, "stale", UpdatedChi(chi, dsr, 5_000, 4_600), chi)
}

func TestRemoveDecimalPartOfWad(t *testing.T) {
	expectInt(t, "floor", RemoveDecimalPartOfWad(wadOf("8393.103448275862068966")), ether(8393))
	expectInt(t, "whole", RemoveDecimalPartOfWad(ether(7)), ether(7))
}

func TestUSDCConversions(t *testing.T) {
	expectInt(t, "to wad", ConvertUSDCtoWad(big.NewInt(1_500_000)), wadOf("1.5"))
	expectInt(t, "to usdc", ConvertWadtoUSDC(wadOf("1.5000009")), big.NewInt(1_500_000))

	aligned := wadOf("1234.567891")
	expectInt(t, "round trip", ConvertUSDCtoWad(ConvertWadtoUSDC(aligned)), aligned)

	lossy := wadOf("1234.5678919")
	if ConvertUSDCtoWad(ConvertWadtoUSDC(lossy)).Cmp(lossy) == 0 {
		t.Fatalf("sub-USDC fractions must be dropped")
	}
}

func TestLastTwelveDigits(t *testing.T) {
	value := mustInt(t, "1555555555555555555")
	expectInt(t, "down", RoundDownLastTwelveDigits(value), mustInt(t, "1555555000000000000"))
	expectInt(t, "up", RoundUpLastTwelveDigits(value), mustInt(t, "1555556000000000000"))

	aligned := mustInt(t, "1555555000000000000")
	expectInt(t, "aligned up", RoundUpLastTwelveDigits(aligned), aligned)
}

func TestCalculateConversion(t *testing.T) {
	calc := Default()
	expectInt(t, "mkr", calc.CalculateConversion(Token{Symbol: "MKR"}, big.NewInt(1)), big.NewInt(24000))
	expectInt(t, "sky", calc.CalculateConversion(Token{Symbol: "SKY"}, big.NewInt(24000)), big.NewInt(1))
	expectInt(t, "usds", calc.CalculateConversion(Token{Symbol: "USDS"}, big.NewInt(5)), big.NewInt(5))
	expectInt(t, "dai", calc.CalculateConversion(Token{Symbol: "dai"}, big.NewInt(5)), big.NewInt(5))
}

func TestConvertRadToWadRoundsDown(t *testing.T) {
	rad := new(big.Int).Sub(new(big.Int).Mul(big.NewInt(7500), fp.RAD), big.NewInt(1))
	expectInt(t, "rad", ConvertRadToWad(rad), mustInt(t, "7499999999999999999999"))
}

func TestMaxWithdrawableCollateral(t *testing.T) {
	minSafe := mustInt(t, "6525000000000000000")
	expectInt(t, "no fee", MaxWithdrawableCollateral(ether(10), minSafe, nil), mustInt(t, "3475000000000000000"))
	expectInt(t, "one percent", MaxWithdrawableCollateral(ether(10), minSafe, wadOf("0.01")), mustInt(t, "3440250000000000000"))
	expectInt(t, "full fee", MaxWithdrawableCollateral(ether(10), minSafe, ether(1)), big.NewInt(0))
	expectInt(t, "unsafe", MaxWithdrawableCollateral(ether(1), minSafe, nil), big.NewInt(0))
}

func TestMathIsIdempotent(t *testing.T) {
	art, rate := ether(5000), rayOf("1.08")
	first := DebtValue(art, rate)
	second := DebtValue(art, rate)
	if first.Cmp(second) != 0 || first == second {
		t.Fatalf("expected equal fresh results")
	}
	if art.Cmp(ether(5000)) != 0 {
		t.Fatalf("inputs must not be mutated")
	}
}
