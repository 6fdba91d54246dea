package fixedpoint

import (
	"errors"
	"fmt"
	"math/big"
)

// Precisions used by the modeled accounting system.
const (
	WadPrecision = 18
	RayPrecision = 27
	RadPrecision = 45
)

var (
	// ErrDivisionByZero is returned by Divide when the divisor is zero.
	ErrDivisionByZero = errors.New("fixedpoint: division by zero")

	// WAD, RAY and RAD hold one unit at their precisions. Callers must not mutate them.
	WAD = pow10(WadPrecision)
	RAY = pow10(RayPrecision)
	RAD = pow10(RadPrecision)
)

// Rounding selects how digits are dropped when reducing precision.
type Rounding int

const (
	// RoundHalfUp rounds to nearest, ties away from zero.
	RoundHalfUp Rounding = iota
	// RoundDown truncates toward zero.
	RoundDown
	// RoundUp rounds away from zero whenever a non-zero remainder is dropped.
	RoundUp
)

// Value is an integer tagged with its implicit number of decimal places.
// Values are immutable; every operation returns a fresh Value.
type Value struct {
	v         *big.Int
	precision uint
}

// FromInteger wraps value with the given decimal precision. The integer is
// copied. A nil value or negative precision is a caller bug and panics.
func FromInteger(value *big.Int, precision int) Value {
	if value == nil {
		panic("fixedpoint: nil integer")
	}
	if precision < 0 {
		panic(fmt.Sprintf("fixedpoint: negative precision %d", precision))
	}
	return Value{v: new(big.Int).Set(value), precision: uint(precision)}
}

// Wad, Ray and Rad are shorthands for FromInteger at the named precision.
func Wad(value *big.Int) Value { return FromInteger(value, WadPrecision) }
func Ray(value *big.Int) Value { return FromInteger(value, RayPrecision) }
func Rad(value *big.Int) Value { return FromInteger(value, RadPrecision) }

// One returns 1.0 at the given precision.
func One(precision int) Value {
	return FromInteger(pow10(uint(precision)), precision)
}

// Int returns a copy of the underlying integer.
func (x Value) Int() *big.Int {
	x.mustInit()
	return new(big.Int).Set(x.v)
}

// Precision returns the number of implied decimal places.
func (x Value) Precision() int { return int(x.precision) }

// Sign returns -1, 0 or +1.
func (x Value) Sign() int {
	x.mustInit()
	return x.v.Sign()
}

// IsZero reports whether the value is zero.
func (x Value) IsZero() bool { return x.Sign() == 0 }

// Cmp compares two values, aligning precisions first.
func (x Value) Cmp(y Value) int {
	a, b := align(x, y)
	return a.Cmp(b)
}

// Add returns x + y at the larger of the two precisions.
func Add(x, y Value) Value {
	a, b := align(x, y)
	return Value{v: a.Add(a, b), precision: maxPrecision(x, y)}
}

// Sub returns x - y at the larger of the two precisions.
func Sub(x, y Value) Value {
	a, b := align(x, y)
	return Value{v: a.Sub(a, b), precision: maxPrecision(x, y)}
}

// Multiply returns the exact product. The result precision is the sum of the
// operand precisions; callers round explicitly.
func Multiply(a, b Value) Value {
	a.mustInit()
	b.mustInit()
	return Value{v: new(big.Int).Mul(a.v, b.v), precision: a.precision + b.precision}
}

// Divide returns a / b at a's precision, rounded half-up.
func Divide(a, b Value) (Value, error) {
	a.mustInit()
	b.mustInit()
	if b.v.Sign() == 0 {
		return Value{}, ErrDivisionByZero
	}
	numerator := new(big.Int).Mul(a.v, pow10(b.precision))
	return Value{v: quo(numerator, b.v, RoundHalfUp), precision: a.precision}, nil
}

// Round rescales x to target decimal places using half-up rounding.
func Round(x Value, target int) Value { return RoundWith(x, target, RoundHalfUp) }

// Truncate rescales x to target decimal places rounding toward zero.
func Truncate(x Value, target int) Value { return RoundWith(x, target, RoundDown) }

// RoundWith rescales x to target decimal places with the given rounding mode.
// Increasing precision is always exact.
func RoundWith(x Value, target int, mode Rounding) Value {
	x.mustInit()
	if target < 0 {
		panic(fmt.Sprintf("fixedpoint: negative precision %d", target))
	}
	t := uint(target)
	if t >= x.precision {
		return Value{v: new(big.Int).Mul(x.v, pow10(t-x.precision)), precision: t}
	}
	return Value{v: quo(x.v, pow10(x.precision-t), mode), precision: t}
}

// Pow raises base to the n-th power at base's precision using exponentiation
// by squaring, rounding half-up after every multiplication (the on-chain rpow).
func Pow(base Value, n uint64) Value {
	base.mustInit()
	unit := pow10(base.precision)
	z := new(big.Int).Set(unit)
	if n&1 == 1 {
		z.Set(base.v)
	}
	x := new(big.Int).Set(base.v)
	for n >>= 1; n > 0; n >>= 1 {
		x = quo(new(big.Int).Mul(x, x), unit, RoundHalfUp)
		if n&1 == 1 {
			z = quo(new(big.Int).Mul(z, x), unit, RoundHalfUp)
		}
	}
	return Value{v: z, precision: base.precision}
}

// RepeatedMultiply multiplies base by factor count times. All operands share
// one precision; mixing precisions panics.
func RepeatedMultiply(base, factor Value, count uint64) Value {
	base.mustInit()
	factor.mustInit()
	if base.precision != factor.precision {
		panic(fmt.Sprintf("fixedpoint: precision mismatch %d != %d", base.precision, factor.precision))
	}
	if count == 0 {
		return FromInteger(base.v, int(base.precision))
	}
	return Round(Multiply(base, Pow(factor, count)), int(base.precision))
}

func (x Value) mustInit() {
	if x.v == nil {
		panic("fixedpoint: uninitialised value")
	}
}

func align(x, y Value) (*big.Int, *big.Int) {
	x.mustInit()
	y.mustInit()
	p := maxPrecision(x, y)
	a := new(big.Int).Mul(x.v, pow10(p-x.precision))
	b := new(big.Int).Mul(y.v, pow10(p-y.precision))
	return a, b
}

func maxPrecision(x, y Value) uint {
	if x.precision > y.precision {
		return x.precision
	}
	return y.precision
}

// quo divides n by d (d != 0) with the requested rounding, symmetric around zero.
func quo(n, d *big.Int, mode Rounding) *big.Int {
	q, r := new(big.Int).QuoRem(n, d, new(big.Int))
	if r.Sign() == 0 || mode == RoundDown {
		return q
	}
	negative := (n.Sign() < 0) != (d.Sign() < 0)
	bump := mode == RoundUp
	if mode == RoundHalfUp {
		twice := new(big.Int).Abs(r)
		twice.Lsh(twice, 1)
		bump = twice.Cmp(new(big.Int).Abs(d)) >= 0
	}
	if !bump {
		return q
	}
	if negative {
		return q.Sub(q, big.NewInt(1))
	}
	return q.Add(q, big.NewInt(1))
}

// powers caches 10^0 through 10^90, enough for any RAY×RAY×RAY product.
var powers = func() [91]*big.Int {
	var out [91]*big.Int
	out[0] = big.NewInt(1)
	ten := big.NewInt(10)
	for i := 1; i < len(out); i++ {
		out[i] = new(big.Int).Mul(out[i-1], ten)
	}
	return out
}()

func pow10(n uint) *big.Int {
	if n < uint(len(powers)) {
		return new(big.Int).Set(powers[n])
	}
	return new(big.Int).Exp(big.NewInt(10), new(big.Int).SetUint64(uint64(n)), nil)
}
