package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"

	gethmath "github.com/ethereum/go-ethereum/common/math"
	"github.com/holiman/uint256"

	"vaultrisk/native/vaults"
)

const requestLimit = 1 << 20

var errBadRequest = errors.New("bad request")

// Uint is a JSON integer accepted as a decimal or 0x-prefixed hex string (or a
// bare JSON number) and bounded to the uint256 range.
type Uint struct {
	gethmath.HexOrDecimal256
}

// UnmarshalJSON decodes the value and rejects negatives.
func (u *Uint) UnmarshalJSON(input []byte) error {
	if len(input) > 1 && input[0] == '"' {
		input = input[1 : len(input)-1]
	}
	if err := u.HexOrDecimal256.UnmarshalText(input); err != nil {
		return err
	}
	return checkUint256(u.Int())
}

// Int returns the value as a big integer, or nil for a nil receiver.
func (u *Uint) Int() *big.Int {
	if u == nil {
		return nil
	}
	return (*big.Int)(&u.HexOrDecimal256)
}

// ParseUint256 parses a decimal or 0x-hex string into a non-negative
// integer that fits 256 bits.
func ParseUint256(s string) (*big.Int, error) {
	value, ok := gethmath.ParseBig256(strings.TrimSpace(s))
	if !ok {
		return nil, fmt.Errorf("invalid hex or decimal integer %q", s)
	}
	if err := checkUint256(value); err != nil {
		return nil, err
	}
	return value, nil
}

func checkUint256(value *big.Int) error {
	if value.Sign() < 0 {
		return fmt.Errorf("negative integer %s", value)
	}
	if _, overflow := uint256.FromBig(value); overflow {
		return fmt.Errorf("integer %s exceeds 256 bits", value)
	}
	return nil
}

// IlkRequest carries raw ilk values.
type IlkRequest struct {
	Spot   *Uint `json:"spot"`
	Rate   *Uint `json:"rate"`
	Par    *Uint `json:"par"`
	Mat    *Uint `json:"mat"`
	Dust   *Uint `json:"dust"`
	Line   *Uint `json:"line"`
	Duty   *Uint `json:"duty"`
	IlkArt *Uint `json:"ilkArt"`
}

func (r IlkRequest) params() vaults.RiskParams {
	return vaults.RiskParams{
		Spot:   r.Spot.Int(),
		Rate:   r.Rate.Int(),
		Par:    r.Par.Int(),
		Mat:    r.Mat.Int(),
		Dust:   r.Dust.Int(),
		Line:   r.Line.Int(),
		Duty:   r.Duty.Int(),
		IlkArt: r.IlkArt.Int(),
	}
}

// VaultInfoRequest carries the raw values of one position.
type VaultInfoRequest struct {
	Spot        *Uint `json:"spot"`
	Rate        *Uint `json:"rate"`
	Art         *Uint `json:"art"`
	Ink         *Uint `json:"ink"`
	Par         *Uint `json:"par"`
	Mat         *Uint `json:"mat"`
	Dust        *Uint `json:"dust"`
	MarketPrice *Uint `json:"marketPrice,omitempty"`
}

func (r VaultInfoRequest) input() vaults.VaultInput {
	return vaults.VaultInput{
		Spot:        r.Spot.Int(),
		Rate:        r.Rate.Int(),
		Art:         r.Art.Int(),
		Ink:         r.Ink.Int(),
		Par:         r.Par.Int(),
		Mat:         r.Mat.Int(),
		Dust:        r.Dust.Int(),
		MarketPrice: r.MarketPrice.Int(),
	}
}

// SimulateRequest describes a hypothetical position change.
type SimulateRequest struct {
	Ilk          IlkRequest `json:"ilk"`
	Collateral   *Uint      `json:"collateral"`
	DesiredDebt  *Uint      `json:"desiredDebt"`
	ExistingDebt *Uint      `json:"existingDebt"`
	MarketPrice  *Uint      `json:"marketPrice,omitempty"`
	ExitFee      *Uint      `json:"exitFee,omitempty"`
	DebtCeiling  *Uint      `json:"debtCeiling,omitempty"`
	IlkDebt      *Uint      `json:"ilkDebt,omitempty"`
}

func (r SimulateRequest) input() vaults.SimulationInput {
	return vaults.SimulationInput{
		Ilk:          r.Ilk.params(),
		Collateral:   r.Collateral.Int(),
		DesiredDebt:  r.DesiredDebt.Int(),
		ExistingDebt: r.ExistingDebt.Int(),
		MarketPrice:  r.MarketPrice.Int(),
		ExitFee:      r.ExitFee.Int(),
		DebtCeiling:  r.DebtCeiling.Int(),
		IlkDebt:      r.IlkDebt.Int(),
	}
}

// AnnualRatesRequest converts per-second rates. Either field may be omitted.
type AnnualRatesRequest struct {
	Duty *Uint `json:"duty,omitempty"`
	Dsr  *Uint `json:"dsr,omitempty"`
}

// AnnualRatesResponse reports WAD annual rates.
type AnnualRatesResponse struct {
	StabilityFee *vaults.Amount `json:"stabilityFee,omitempty"`
	SavingsRate  *vaults.Amount `json:"savingsRate,omitempty"`
}

// RewardsRequest carries WAD reward and supply values.
type RewardsRequest struct {
	RatePerSecond *Uint `json:"ratePerSecond"`
	TotalSupplied *Uint `json:"totalSupplied"`
}

// RewardsResponse reports the annual rewards rate.
type RewardsResponse struct {
	Rate *vaults.Amount `json:"rate"`
}

// SavingsRequest values a savings position. When Dsr and Rho are supplied,
// chi is first accrued to Now (seconds, defaulting to the server clock).
type SavingsRequest struct {
	Pie *Uint   `json:"pie"`
	Chi *Uint   `json:"chi"`
	Dsr *Uint   `json:"dsr,omitempty"`
	Rho *uint64 `json:"rho,omitempty"`
	Now *uint64 `json:"now,omitempty"`
}

// SavingsResponse reports the savings balance and the chi it used.
type SavingsResponse struct {
	Balance *vaults.Amount `json:"balance"`
	Chi     *vaults.Amount `json:"chi"`
	Shares  *vaults.Amount `json:"shares"`
}

// ConvertRequest converts Amount of the From token.
type ConvertRequest struct {
	From   string `json:"from"`
	Amount *Uint  `json:"amount"`
}

// ConvertResponse reports the converted amount.
type ConvertResponse struct {
	From   string `json:"from"`
	Amount string `json:"amount"`
}

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return fmt.Errorf("%w: missing request body", errBadRequest)
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(io.LimitReader(r.Body, requestLimit))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", errBadRequest)
		}
		return fmt.Errorf("%w: decode request: %v", errBadRequest, err)
	}
	return nil
}
