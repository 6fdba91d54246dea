package vaults

import "errors"

var (
	ErrInsufficientCollateral = errors.New("vaults: insufficient collateral")
	ErrDebtBelowDust          = errors.New("vaults: debt below dust")
	ErrDebtCeilingExceeded    = errors.New("vaults: debt ceiling exceeded")
)

// Validation codes carried by ValidationError.
const (
	CodeInsufficientCollateral = "insufficient_collateral"
	CodeDust                   = "dust"
	CodeDebtCeiling            = "debt_ceiling"
)

// ValidationError is a user-correctable problem with a simulated position.
type ValidationError struct {
	Code    string
	Message string
	err     error
}

func (e *ValidationError) Error() string { return e.Message }

// Unwrap exposes the sentinel matching Code.
func (e *ValidationError) Unwrap() error { return e.err }

func newValidationError(sentinel error, code, message string) *ValidationError {
	return &ValidationError{Code: code, Message: message, err: sentinel}
}
