package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vaultrisk/native/vaults"
)

var fixtureIlkArgs = []string{
	"--spot", "1379310344827586206896551724137",
	"--rate", "1080000000000000000000000000",
	"--par", "1000000000000000000000000000",
	"--mat", "1450000000000000000000000000",
	"--dust", "7500000000000000000000000000000000000000000000000",
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCommand(&stdout, &stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVaultCommand(t *testing.T) {
	args := append([]string{"vault"}, fixtureIlkArgs...)
	args = append(args, "--ink", "10000000000000000000", "--art", "0x10f0cf064dd59200000")
	out, _, err := run(t, args...)
	if err != nil {
		t.Fatalf("vault: %v", err)
	}
	var display vaults.VaultDisplay
	if err := json.Unmarshal([]byte(out), &display); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if display.DebtValue.Formatted != "5400" || display.RiskLevel != vaults.RiskLevelHigh {
		t.Fatalf("unexpected display: %+v", display)
	}
}

func TestSimulateCommandReportsErrors(t *testing.T) {
	args := append([]string{"simulate"}, fixtureIlkArgs...)
	args = append(args, "--collateral", "10000000000000000000", "--desired-debt", "1000000000000000000000")
	out, _, err := run(t, args...)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	var display vaults.SimulationDisplay
	if err := json.Unmarshal([]byte(out), &display); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if display.Valid || len(display.Errors) != 1 || display.Errors[0].Code != vaults.CodeDust {
		t.Fatalf("unexpected errors: %+v", display.Errors)
	}
}

func TestConvertUsesEngineConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "risk.toml")
	if err := os.WriteFile(path, []byte("MkrToSkyPriceRatio = 1000\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	out, _, err := run(t, "--engine-config", path, "convert", "--from", "mkr", "--amount", "3")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !strings.Contains(out, `"amount": "3000"`) || !strings.Contains(out, `"from": "MKR"`) {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestRatesCommand(t *testing.T) {
	out, _, err := run(t, "rates", "--duty", "1000000000472114805215157978")
	if err != nil {
		t.Fatalf("rates: %v", err)
	}
	if !strings.Contains(out, `"formatted": "0.015"`) {
		t.Fatalf("unexpected output: %s", out)
	}
	if _, _, err := run(t, "rates"); err == nil {
		t.Fatalf("expected missing rate error")
	}
}

func TestCommandErrors(t *testing.T) {
	cases := map[string][]string{
		"negative":   {"vault", "--ink", "-5"},
		"garbage":    {"collateral", "--spot", "abc"},
		"no from":    {"convert", "--amount", "1"},
		"bad urn":    {"fetch", "ETH-A", "nope"},
		"bad level":  {"--log-level", "loud", "vault"},
		"extra args": {"vault", "surplus"},
	}
	for name, args := range cases {
		if _, _, err := run(t, args...); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
