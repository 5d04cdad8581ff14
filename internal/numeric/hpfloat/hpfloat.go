// Package hpfloat implements the arbitrary-precision real arithmetic used
// to walk the high-precision reference orbit (one pass, one point) while
// every per-pixel delta is evaluated in extended-range low-precision
// arithmetic elsewhere (see internal/numeric/hdr).
package hpfloat

import (
	"fmt"
	"math/big"
)

// Float wraps math/big.Float with the precision-propagation rule the
// reference orbit depends on: every operation returns a result rounded to
// the greater of the operands' precisions, never silently dropping bits.
type Float struct {
	v *big.Float
}

// New returns the zero value at the given precision, in bits.
func New(precBits uint) *Float {
	return &Float{v: new(big.Float).SetPrec(precBits)}
}

// FromString parses a decimal string (the job-submission grammar in
// spec.md §6: "[-]digits[.digits][eE[-]digits]") at the given precision.
func FromString(s string, precBits uint) (*Float, error) {
	v, _, err := big.ParseFloat(s, 10, precBits, big.ToNearestEven)
	if err != nil {
		return nil, fmt.Errorf("hpfloat: parse %q: %w", s, err)
	}
	return &Float{v: v}, nil
}

// FromFloat64 lifts a float64 to the given precision.
func FromFloat64(x float64, precBits uint) *Float {
	return &Float{v: new(big.Float).SetPrec(precBits).SetFloat64(x)}
}

// Prec returns the working precision in bits.
func (a *Float) Prec() uint { return a.v.Prec() }

func maxPrec(a, b *Float) uint {
	if a.Prec() > b.Prec() {
		return a.Prec()
	}
	return b.Prec()
}

// Add returns a+b rounded to the greater operand precision.
func (a *Float) Add(b *Float) *Float {
	r := new(big.Float).SetPrec(maxPrec(a, b))
	r.Add(a.v, b.v)
	return &Float{v: r}
}

// Sub returns a-b rounded to the greater operand precision.
func (a *Float) Sub(b *Float) *Float {
	r := new(big.Float).SetPrec(maxPrec(a, b))
	r.Sub(a.v, b.v)
	return &Float{v: r}
}

// Mul returns a*b rounded to the greater operand precision.
func (a *Float) Mul(b *Float) *Float {
	r := new(big.Float).SetPrec(maxPrec(a, b))
	r.Mul(a.v, b.v)
	return &Float{v: r}
}

// Square returns a*a.
func (a *Float) Square() *Float {
	r := new(big.Float).SetPrec(a.Prec())
	r.Mul(a.v, a.v)
	return &Float{v: r}
}

// Neg returns -a.
func (a *Float) Neg() *Float {
	r := new(big.Float).SetPrec(a.Prec())
	r.Neg(a.v)
	return &Float{v: r}
}

// CmpAbs compares |a| to a constant float64, returning -1, 0, or 1.
func (a *Float) CmpAbs(c float64) int {
	abs := new(big.Float).SetPrec(a.Prec()).Abs(a.v)
	return abs.Cmp(new(big.Float).SetPrec(a.Prec()).SetFloat64(c))
}

// Sign returns -1, 0, or 1 per math/big.Float.Sign.
func (a *Float) Sign() int { return a.v.Sign() }

// Float64 converts to float64, per math/big.Float.Float64 (±Inf on overflow).
func (a *Float) Float64() float64 {
	f, _ := a.v.Float64()
	return f
}

// MantExp returns the normalized mantissa m in [0.5, 1) and exponent exp
// such that a == m * 2^exp, following the frexp convention math/big.Float
// already implements natively. Zero returns (0, 0).
func (a *Float) MantExp() (mant float64, exp int) {
	if a.v.Sign() == 0 {
		return 0, 0
	}
	m := new(big.Float).SetPrec(53)
	e := a.v.MantExp(m)
	mf, _ := m.Float64()
	return mf, e
}

// ToHDRComponents decomposes a into a double-double (head, tail) mantissa
// pair plus a binary exponent, exact to float64 double-double precision
// (~106 bits) rather than the single float64 MantExp gives. This is the
// conversion the reference-orbit builder uses to store each HPFloat
// orbit point as an HDRFloat without ever clamping to float64's native
// exponent range (spec.md §4.3).
func (a *Float) ToHDRComponents() (head, tail float64, exp int) {
	if a.v.Sign() == 0 {
		return 0, 0, 0
	}
	m := new(big.Float).SetPrec(a.v.Prec())
	e := a.v.MantExp(m)
	head, _ = m.Float64()

	residual := new(big.Float).SetPrec(a.v.Prec())
	residual.SetFloat64(head)
	residual.Sub(m, residual)
	tail, _ = residual.Float64()

	return head, tail, e
}

// String renders the value in decimal.
func (a *Float) String() string {
	return a.v.Text('e', int(a.Prec()/3)+10)
}

// Copy returns an independent copy of a.
func (a *Float) Copy() *Float {
	r := new(big.Float).SetPrec(a.Prec())
	r.Copy(a.v)
	return &Float{v: r}
}
