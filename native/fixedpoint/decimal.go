package fixedpoint

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ToDecimalString renders x as a plain decimal with exactly its precision's
// number of fractional digits, e.g. "1.500000000000000000" for 1.5 WAD.
func ToDecimalString(x Value) string {
	return x.decimal().StringFixed(int32(x.precision))
}

// String renders x as a decimal with trailing zeros removed.
func (x Value) String() string {
	if x.v == nil {
		return "<nil>"
	}
	return x.decimal().String()
}

// FromDecimalString parses a human decimal ("1.015", "24000") into a Value at
// precision. Digits beyond precision are rounded half-up.
func FromDecimalString(s string, precision int) (Value, error) {
	if precision < 0 {
		panic(fmt.Sprintf("fixedpoint: negative precision %d", precision))
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Value{}, fmt.Errorf("fixedpoint: parse %q: %w", s, err)
	}
	scaled := d.Shift(int32(precision)).Round(0)
	return FromInteger(scaled.BigInt(), precision), nil
}

// MustFromDecimalString is FromDecimalString for constants; it panics on error.
func MustFromDecimalString(s string, precision int) Value {
	v, err := FromDecimalString(s, precision)
	if err != nil {
		panic(err)
	}
	return v
}

// Float64 returns the nearest float64. It is meant for display ratios only and
// must never feed back into fixed-point arithmetic.
func (x Value) Float64() float64 {
	f, _ := x.decimal().Float64()
	return f
}

// Decimal exposes x as a shopspring decimal for presentation code.
func (x Value) Decimal() decimal.Decimal { return x.decimal() }

func (x Value) decimal() decimal.Decimal {
	x.mustInit()
	return decimal.NewFromBigInt(x.v, -int32(x.precision))
}
