package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	engineconfig "vaultrisk/config"
	"vaultrisk/native/vaults"
	"vaultrisk/observability/logging"
	"vaultrisk/services/vaultd/server"
)

const (
	engineConfigKey = "engine-config"
	logLevelKey     = "log-level"
)

type cli struct {
	stdout io.Writer
	stderr io.Writer
	calc   *vaults.Calculator
	logger *slog.Logger
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	app := &cli{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:           "vaultctl",
		Short:         "Evaluates vault positions with the fixed-point risk engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			return app.init(c.Flags())
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().String(engineConfigKey, "", "TOML file with engine constants (defaults apply when empty)")
	root.PersistentFlags().String(logLevelKey, "warn", "Log level written to stderr")

	root.AddCommand(
		app.vaultCommand(),
		app.simulateCommand(),
		app.collateralCommand(),
		app.ratesCommand(),
		app.convertCommand(),
		app.fetchCommand(),
	)
	return root
}

func (a *cli) init(flags *pflag.FlagSet) error {
	rawLevel, err := flags.GetString(logLevelKey)
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(rawLevel)
	if err != nil {
		return err
	}
	a.logger = logging.New(a.stderr, "vaultctl", "", level)

	path, err := flags.GetString(engineConfigKey)
	if err != nil {
		return err
	}
	if path == "" {
		a.calc = vaults.Default()
		return nil
	}
	cfg, err := engineconfig.Load(path)
	if err != nil {
		return err
	}
	if a.calc, err = cfg.Calculator(); err != nil {
		return err
	}
	a.logger.Debug("engine constants loaded", "path", path)
	return nil
}

func (a *cli) print(v any) error {
	encoder := json.NewEncoder(a.stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// uintFlags reads each named flag as a decimal or 0x-hex integer. Empty flags
// yield nil.
func uintFlags(flags *pflag.FlagSet, names ...string) (map[string]*big.Int, error) {
	out := make(map[string]*big.Int, len(names))
	for _, name := range names {
		raw, err := flags.GetString(name)
		if err != nil {
			return nil, err
		}
		if raw == "" {
			out[name] = nil
			continue
		}
		value, err := server.ParseUint256(raw)
		if err != nil {
			return nil, fmt.Errorf("--%s: %w", name, err)
		}
		out[name] = value
	}
	return out, nil
}

func addUintFlags(flags *pflag.FlagSet, usage map[string]string, names ...string) {
	for _, name := range names {
		flags.String(name, "", usage[name])
	}
}

var flagUsage = map[string]string{
	"spot":          "Ilk spot price (RAY)",
	"rate":          "Accumulated rate (RAY)",
	"par":           "Reference price (RAY)",
	"mat":           "Liquidation ratio (RAY)",
	"dust":          "Debt floor (RAD)",
	"line":          "Debt ceiling (RAD)",
	"duty":          "Per-second stability fee (RAY)",
	"dsr":           "Per-second savings rate (RAY)",
	"ilk-art":       "Total normalised ilk debt (WAD)",
	"ink":           "Locked collateral (WAD)",
	"art":           "Normalised debt (WAD)",
	"market-price":  "Market price used for liquidation proximity (WAD)",
	"collateral":    "Collateral after the change (WAD)",
	"desired-debt":  "Target debt (WAD)",
	"existing-debt": "Current debt (WAD)",
	"exit-fee":      "Collateral exit fee (WAD fraction)",
	"debt-ceiling":  "Debt ceiling for the ilk (WAD)",
	"ilk-debt":      "Debt already drawn against the ilk (WAD)",
	"amount":        "Amount to convert",
}

var ilkFlagNames = []string{"spot", "rate", "par", "mat", "dust", "line", "duty", "ilk-art"}

func ilkFromFlags(values map[string]*big.Int) vaults.RiskParams {
	return vaults.RiskParams{
		Spot:   values["spot"],
		Rate:   values["rate"],
		Par:    values["par"],
		Mat:    values["mat"],
		Dust:   values["dust"],
		Line:   values["line"],
		Duty:   values["duty"],
		IlkArt: values["ilk-art"],
	}
}
