package vaults

import (
	"fmt"
	"math/big"

	fp "vaultrisk/native/fixedpoint"
)

// SimulationInput describes a hypothetical position against an ilk.
type SimulationInput struct {
	Ilk          RiskParams
	Collateral   *big.Int // WAD, hypothetical ink
	DesiredDebt  *big.Int // WAD
	ExistingDebt *big.Int // WAD
	MarketPrice  *big.Int // WAD, optional
	ExitFee      *big.Int // WAD fraction, optional
	// DebtCeiling and IlkDebt enable the debt ceiling check when both are set.
	DebtCeiling *big.Int // WAD
	IlkDebt     *big.Int // WAD
}

// Simulation is the outcome of SimulateVault. Target is the post-transaction
// picture with DebtValue replaced by the literal desired debt.
type Simulation struct {
	Target                    VaultParams
	Existing                  VaultParams
	MaxWithdrawableCollateral *big.Int
	Errors                    []*ValidationError
}

// Valid reports whether the simulation produced no validation errors.
func (s Simulation) Valid() bool { return len(s.Errors) == 0 }

// SimulateVault evaluates the position at the existing and the desired debt
// and validates the move between them.
func (c *Calculator) SimulateVault(in SimulationInput) Simulation {
	existingDebt := orZero(in.ExistingDebt)
	desiredDebt := orZero(in.DesiredDebt)
	position := func(debt *big.Int) VaultParams {
		pos := PositionRaw{Ink: in.Collateral, Art: ArtValue(debt, in.Ilk.Rate)}
		return c.CalculatePositionInfo(in.Ilk, pos, in.MarketPrice)
	}

	existing := position(existingDebt)
	target := position(desiredDebt)
	target.DebtValue = new(big.Int).Set(desiredDebt)

	sim := Simulation{
		Target:                    target,
		Existing:                  existing,
		MaxWithdrawableCollateral: MaxWithdrawableCollateral(in.Collateral, target.MinSafeCollateralAmount, in.ExitFee),
	}

	delta := new(big.Int).Sub(desiredDebt, existingDebt)
	if delta.Cmp(existing.MaxSafeBorrowableAmount) > 0 {
		sim.Errors = append(sim.Errors, newValidationError(ErrInsufficientCollateral, CodeInsufficientCollateral,
			fmt.Sprintf("insufficient collateral: at most %s can be borrowed", fp.Wad(existing.MaxSafeBorrowableAmount))))
	}

	if desiredDebt.Sign() > 0 && desiredDebt.Cmp(target.Dust) < 0 {
		dust := fp.Wad(target.Dust)
		msg := fmt.Sprintf("minimum borrow is %s", dust)
		if desiredDebt.Cmp(existingDebt) < 0 {
			msg = fmt.Sprintf("repay the full debt or keep at least %s outstanding", dust)
		}
		sim.Errors = append(sim.Errors, newValidationError(ErrDebtBelowDust, CodeDust, msg))
	}

	if delta.Sign() > 0 && in.DebtCeiling != nil && in.IlkDebt != nil {
		after := new(big.Int).Add(in.IlkDebt, delta)
		if after.Cmp(in.DebtCeiling) > 0 {
			headroom := DebtCeilingHeadroom(in.DebtCeiling, in.IlkDebt)
			sim.Errors = append(sim.Errors, newValidationError(ErrDebtCeilingExceeded, CodeDebtCeiling,
				fmt.Sprintf("debt ceiling reached: at most %s can be drawn", fp.Wad(headroom))))
		}
	}

	return sim
}
