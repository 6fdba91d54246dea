package vaults

import (
	"errors"
	"math/big"
	"strings"
	"testing"
)

func simulate(existing, desired int64) SimulationInput {
	return SimulationInput{
		Ilk:          fixtureIlk(),
		Collateral:   ether(10),
		ExistingDebt: ether(existing),
		DesiredDebt:  ether(desired),
	}
}

func TestSimulateVaultDraw(t *testing.T) {
	sim := Default().SimulateVault(simulate(5400, 9000))
	if !sim.Valid() {
		t.Fatalf("unexpected errors: %v", sim.Errors)
	}
	expectInt(t, "target debt", sim.Target.DebtValue, ether(9000))
	expectInt(t, "target liquidation", sim.Target.LiquidationPrice, ether(1305))
	expectInt(t, "target ratio", sim.Target.CollateralizationRatio, mustInt(t, "2222222222222222222"))
	expectInt(t, "existing liquidation", sim.Existing.LiquidationPrice, ether(783))
	expectInt(t, "withdrawable", sim.MaxWithdrawableCollateral, mustInt(t, "3475000000000000000"))
	if sim.Target.LiquidationProximityPercentage != 66 || sim.Target.RiskLevel != RiskLevelHigh {
		t.Fatalf("unexpected risk: %v %s", sim.Target.LiquidationProximityPercentage, sim.Target.RiskLevel)
	}
}

func TestSimulateVaultInsufficientCollateral(t *testing.T) {
	sim := Default().SimulateVault(simulate(5400, 14000))
	if len(sim.Errors) != 1 {
		t.Fatalf("expected one error, got %v", sim.Errors)
	}
	if !errors.Is(sim.Errors[0], ErrInsufficientCollateral) || sim.Errors[0].Code != CodeInsufficientCollateral {
		t.Fatalf("unexpected error: %v", sim.Errors[0])
	}
	if sim.Target.RiskLevel != RiskLevelLiquidation {
		t.Fatalf("unexpected risk level: %s", sim.Target.RiskLevel)
	}
}

func TestSimulateVaultDust(t *testing.T) {
	draw := Default().SimulateVault(simulate(0, 1000))
	if len(draw.Errors) != 1 || !errors.Is(draw.Errors[0], ErrDebtBelowDust) {
		t.Fatalf("expected dust error, got %v", draw.Errors)
	}
	if !strings.Contains(draw.Errors[0].Message, "minimum borrow is 7500") {
		t.Fatalf("unexpected draw message: %s", draw.Errors[0].Message)
	}

	repay := Default().SimulateVault(simulate(9000, 1000))
	if len(repay.Errors) != 1 || !errors.Is(repay.Errors[0], ErrDebtBelowDust) {
		t.Fatalf("expected dust error, got %v", repay.Errors)
	}
	if !strings.Contains(repay.Errors[0].Message, "repay the full debt") {
		t.Fatalf("unexpected repay message: %s", repay.Errors[0].Message)
	}

	closed := Default().SimulateVault(simulate(9000, 0))
	if !closed.Valid() {
		t.Fatalf("full repayment must be valid, got %v", closed.Errors)
	}
}

func TestSimulateVaultDebtCeiling(t *testing.T) {
	in := simulate(5400, 9000)
	in.DebtCeiling = ether(100_000)
	in.IlkDebt = ether(99_000)

	sim := Default().SimulateVault(in)
	if len(sim.Errors) != 1 || !errors.Is(sim.Errors[0], ErrDebtCeilingExceeded) {
		t.Fatalf("expected ceiling error, got %v", sim.Errors)
	}
	if !strings.Contains(sim.Errors[0].Message, "at most 1000 ") {
		t.Fatalf("unexpected message: %s", sim.Errors[0].Message)
	}

	in.IlkDebt = ether(90_000)
	if sim := Default().SimulateVault(in); !sim.Valid() {
		t.Fatalf("unexpected errors: %v", sim.Errors)
	}
}

func TestSimulateVaultExitFee(t *testing.T) {
	in := simulate(5400, 9000)
	in.ExitFee = wadOf("0.01")
	sim := Default().SimulateVault(in)
	expectInt(t, "withdrawable", sim.MaxWithdrawableCollateral, mustInt(t, "3440250000000000000"))
}

func TestSimulateVaultNilAmounts(t *testing.T) {
	sim := Default().SimulateVault(SimulationInput{Ilk: fixtureIlk()})
	if !sim.Valid() {
		t.Fatalf("unexpected errors: %v", sim.Errors)
	}
	expectInt(t, "debt", sim.Target.DebtValue, big.NewInt(0))
	expectInt(t, "withdrawable", sim.MaxWithdrawableCollateral, big.NewInt(0))
}
