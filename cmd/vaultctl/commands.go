package main

import (
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	fp "vaultrisk/native/fixedpoint"
	"vaultrisk/native/vaults"
	"vaultrisk/observability/logging"
	"vaultrisk/services/vaultd/chain"
)

func (a *cli) vaultCommand() *cobra.Command {
	names := []string{"spot", "rate", "par", "mat", "dust", "ink", "art", "market-price"}
	c := &cobra.Command{
		Use:   "vault",
		Short: "Derives the risk picture of one position",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			values, err := uintFlags(c.Flags(), names...)
			if err != nil {
				return err
			}
			info := a.calc.CalculateVaultInfo(vaults.VaultInput{
				Spot:        values["spot"],
				Rate:        values["rate"],
				Art:         values["art"],
				Ink:         values["ink"],
				Par:         values["par"],
				Mat:         values["mat"],
				Dust:        values["dust"],
				MarketPrice: values["market-price"],
			})
			return a.print(info.Display())
		},
	}
	addUintFlags(c.Flags(), flagUsage, names...)
	return c
}

func (a *cli) simulateCommand() *cobra.Command {
	position := []string{"collateral", "desired-debt", "existing-debt", "market-price", "exit-fee", "debt-ceiling", "ilk-debt"}
	c := &cobra.Command{
		Use:   "simulate",
		Short: "Validates a hypothetical debt or collateral change",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			values, err := uintFlags(c.Flags(), append(append([]string{}, ilkFlagNames...), position...)...)
			if err != nil {
				return err
			}
			sim := a.calc.SimulateVault(vaults.SimulationInput{
				Ilk:          ilkFromFlags(values),
				Collateral:   values["collateral"],
				DesiredDebt:  values["desired-debt"],
				ExistingDebt: values["existing-debt"],
				MarketPrice:  values["market-price"],
				ExitFee:      values["exit-fee"],
				DebtCeiling:  values["debt-ceiling"],
				IlkDebt:      values["ilk-debt"],
			})
			for _, verr := range sim.Errors {
				a.logger.Info("simulation rejected", "code", verr.Code, "message", verr.Message)
			}
			return a.print(sim.Display())
		},
	}
	addUintFlags(c.Flags(), flagUsage, ilkFlagNames...)
	addUintFlags(c.Flags(), flagUsage, position...)
	return c
}

func (a *cli) collateralCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "collateral",
		Short: "Derives collateral-type risk parameters",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			values, err := uintFlags(c.Flags(), ilkFlagNames...)
			if err != nil {
				return err
			}
			return a.print(a.calc.CalculateCollateralRiskParams(ilkFromFlags(values)).Display())
		},
	}
	addUintFlags(c.Flags(), flagUsage, ilkFlagNames...)
	return c
}

func (a *cli) ratesCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "rates",
		Short: "Annualises per-second stability fee and savings rates",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			values, err := uintFlags(c.Flags(), "duty", "dsr")
			if err != nil {
				return err
			}
			if values["duty"] == nil && values["dsr"] == nil {
				return errors.New("--duty or --dsr is required")
			}
			out := map[string]*vaults.Amount{}
			if values["duty"] != nil {
				out["stabilityFee"] = vaults.WadAmount(a.calc.AnnualStabilityFee(values["duty"]))
			}
			if values["dsr"] != nil {
				out["savingsRate"] = vaults.WadAmount(a.calc.AnnualDaiSavingsRate(values["dsr"]))
			}
			return a.print(out)
		},
	}
	addUintFlags(c.Flags(), flagUsage, "duty", "dsr")
	return c
}

func (a *cli) convertCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "convert",
		Short: "Converts an amount between MKR and SKY denominations",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			from, err := c.Flags().GetString("from")
			if err != nil {
				return err
			}
			from = strings.ToUpper(strings.TrimSpace(from))
			if from == "" {
				return errors.New("--from is required")
			}
			values, err := uintFlags(c.Flags(), "amount")
			if err != nil {
				return err
			}
			out := a.calc.CalculateConversion(vaults.Token{Symbol: from}, values["amount"])
			return a.print(map[string]string{"from": from, "amount": out.String()})
		},
	}
	c.Flags().String("from", "", "Source token symbol (MKR, SKY, DAI or USDS)")
	addUintFlags(c.Flags(), flagUsage, "amount")
	return c
}

func (a *cli) fetchCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "fetch <ilk> [urn]",
		Short: "Reads an ilk, and optionally one urn, from a node and evaluates it",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(c *cobra.Command, args []string) error {
			flags := c.Flags()
			rpcURL, err := flags.GetString("rpc")
			if err != nil {
				return err
			}
			var addrs [4]string
			for i, name := range []string{"vat", "spot-contract", "jug", "pot"} {
				if addrs[i], err = flags.GetString(name); err != nil {
					return err
				}
			}
			timeout, err := flags.GetDuration("timeout")
			if err != nil {
				return err
			}
			values, err := uintFlags(flags, "market-price")
			if err != nil {
				return err
			}
			if len(args) == 2 && !common.IsHexAddress(args[1]) {
				return errors.New("urn must be a hex address")
			}

			contracts, err := chain.ParseContracts(addrs[0], addrs[1], addrs[2], addrs[3])
			if err != nil {
				return err
			}
			client, err := chain.DialClient(rpcURL)
			if err != nil {
				return err
			}
			defer client.Close()
			a.logger.Debug("reading chain state", "rpc", logging.MaskURL(rpcURL), "ilk", args[0])

			reader := chain.NewReader(client, contracts, chain.WithTimeout(timeout))
			return a.fetch(c, reader, args, values["market-price"])
		},
	}
	flags := c.Flags()
	flags.String("rpc", "http://127.0.0.1:8545", "JSON-RPC endpoint")
	flags.String("vat", "", "Vat contract address")
	flags.String("spot-contract", "", "Spotter contract address")
	flags.String("jug", "", "Jug contract address")
	flags.String("pot", "", "Pot contract address")
	flags.Duration("timeout", chain.DefaultTimeout, "Per-call timeout")
	addUintFlags(flags, flagUsage, "market-price")
	return c
}

type fetchedState struct {
	Collateral vaults.CollateralDisplay `json:"collateral"`
	Vault      *vaults.VaultDisplay     `json:"vault,omitempty"`
	SavingsChi *vaults.Amount           `json:"savingsChi,omitempty"`
}

func (a *cli) fetch(c *cobra.Command, reader *chain.Reader, args []string, marketPrice *big.Int) error {
	ctx := c.Context()
	ilk, err := reader.Ilk(ctx, args[0])
	if err != nil {
		return err
	}
	out := fetchedState{Collateral: a.calc.CalculateCollateralRiskParams(ilk).Display()}
	if len(args) == 2 {
		pos, err := reader.Urn(ctx, args[0], common.HexToAddress(args[1]))
		if err != nil {
			return err
		}
		display := a.calc.CalculatePositionInfo(ilk, pos, marketPrice).Display()
		out.Vault = &display
	}
	if savings, err := reader.Savings(ctx); err == nil {
		out.SavingsChi = vaults.NewAmount(savings.Chi, fp.RayPrecision)
	} else {
		a.logger.Warn("savings read failed", "error", err)
	}
	return a.print(out)
}
