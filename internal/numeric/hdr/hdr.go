// Package hdr implements HDRFloat, the extended-range double-double float
// used for per-pixel delta arithmetic and for orbit storage: a mantissa
// pair (head, tail) carrying ~106 bits of precision (double-double over
// float64) paired with an int32 binary exponent that extends dynamic
// range to roughly 2^(±2*10^9). See spec.md §3/§4.2.
//
// All operations are total: exponent arithmetic saturates instead of
// wrapping, and over/underflow convert silently to ±Inf/0 exactly as
// plain float64 does. No operation here ever returns an error — higher
// layers (rebasing, BLA validity radii) are responsible for keeping
// values in a regime where that silence is safe.
package hdr

import (
	"math"
	"strconv"
)

// HDR is (Head+Tail) * 2^Exp. Invariant after Normalize: Head == 0 implies
// Tail == 0 and Exp == 0; otherwise 0.5 <= |Head| < 1.
type HDR struct {
	Head float64
	Tail float64
	Exp  int32
}

// Zero is the canonical zero value, handled specially throughout.
var Zero = HDR{}

// IsZero reports whether h is the canonical zero.
func (h HDR) IsZero() bool { return h.Head == 0 }

// saturatingAddI32 adds two int32 exponents, clamping to the int32 range
// instead of wrapping. A naive 32-bit add overflows at exponents around
// 10^600-equivalent magnitude, which deep-zoom orbits reach routinely.
func saturatingAddI32(a, b int32) int32 {
	sum := int64(a) + int64(b)
	if sum > math.MaxInt32 {
		return math.MaxInt32
	}
	if sum < math.MinInt32 {
		return math.MinInt32
	}
	return int32(sum)
}

// normalize shifts head into [0.5, 1) and folds the shift into exp.
// Idempotent: normalizing an already-normalized triple is a no-op.
func normalize(head, tail float64, exp int32) HDR {
	if head == 0 {
		if tail == 0 {
			return Zero
		}
		// Promote a zero head with a nonzero residual into the head slot.
		head, tail = tail, 0
	}
	m, e := math.Frexp(head)
	if e == 0 {
		return HDR{Head: m, Tail: tail, Exp: exp}
	}
	return HDR{
		Head: m,
		Tail: math.Ldexp(tail, -e),
		Exp:  saturatingAddI32(exp, int32(e)),
	}
}

// New builds a normalized HDR from a raw mantissa and exponent.
func New(mantissa float64, exp int32) HDR {
	return normalize(mantissa, 0, exp)
}

// FromComponents builds a normalized HDR from an explicit (head, tail, exp)
// triple, e.g. one produced by hpfloat.Float.ToHDRComponents.
func FromComponents(head, tail float64, exp int32) HDR {
	return normalize(head, tail, exp)
}

// FromFloat64 lifts a float64 via frexp-like decomposition, preserving
// the full value exactly rather than clamping to float64's native range
// — orbit values near zero can have HDR exponents below -1000 at deep
// zoom even though their float64 mantissa is representable.
func FromFloat64(x float64) HDR {
	if x == 0 {
		return Zero
	}
	m, e := math.Frexp(x)
	return HDR{Head: m, Tail: 0, Exp: int32(e)}
}

// Float64 converts to float64. Exponents outside the native float64
// range silently saturate to 0 or ±Inf, matching plain float64 overflow
// semantics — this is load-bearing, not a shortcut: the kernel runs
// billions of times per render and cannot afford a fallible conversion.
func (h HDR) Float64() float64 {
	if h.IsZero() {
		return 0
	}
	return math.Ldexp(h.Head+h.Tail, int(h.Exp))
}

// twoSum performs Knuth's error-free transformation: a+b == s+err exactly
// in infinite precision, with s the rounded float64 sum.
func twoSum(a, b float64) (s, err float64) {
	s = a + b
	bb := s - a
	err = (a - (s - bb)) + (b - bb)
	return s, err
}

// mantissaWidthBits bounds how many bits of precision the (head, tail)
// pair can carry — beyond this exponent gap the smaller operand cannot
// affect the sum at all.
const mantissaWidthBits = 106

// Add returns a+b. If the operands' exponents differ by more than the
// double-double mantissa width, the larger operand is returned unchanged
// (the smaller is below its precision floor and would vanish anyway).
func (a HDR) Add(b HDR) HDR {
	if a.IsZero() {
		return b
	}
	if b.IsZero() {
		return a
	}

	big, small := a, b
	if CmpAbs(a, b) < 0 {
		big, small = b, a
	}

	delta := int64(big.Exp) - int64(small.Exp)
	if delta > mantissaWidthBits {
		return big
	}

	scale := math.Ldexp(1, int(-delta))
	smallHead := small.Head * scale
	smallTail := small.Tail * scale

	s, err := twoSum(big.Head, smallHead)
	tail := err + big.Tail + smallTail
	return normalize(s, tail, big.Exp)
}

// Neg returns -a.
func (a HDR) Neg() HDR {
	if a.IsZero() {
		return Zero
	}
	return HDR{Head: -a.Head, Tail: -a.Tail, Exp: a.Exp}
}

// Sub returns a-b.
func (a HDR) Sub(b HDR) HDR {
	return a.Add(b.Neg())
}

// Mul returns a*b using an FMA-recovered error term folded into tail.
func (a HDR) Mul(b HDR) HDR {
	if a.IsZero() || b.IsZero() {
		return Zero
	}
	head := a.Head * b.Head
	err := math.FMA(a.Head, b.Head, -head)
	tail := err + a.Head*b.Tail + a.Tail*b.Head
	exp := saturatingAddI32(a.Exp, b.Exp)
	return normalize(head, tail, exp)
}

// Square returns a*a, skipping the cross term Mul would otherwise redo.
func (a HDR) Square() HDR {
	if a.IsZero() {
		return Zero
	}
	head := a.Head * a.Head
	err := math.FMA(a.Head, a.Head, -head)
	tail := err + 2*a.Head*a.Tail
	exp := saturatingAddI32(a.Exp, a.Exp)
	return normalize(head, tail, exp)
}

// MulFloat64 multiplies by a native scalar. The scalar is itself
// frexp-decomposed so the operation stays correct for any magnitude,
// not just order-1 scalars, while keeping the "multiply mantissa, fold
// exponent" shape spec.md describes.
func (a HDR) MulFloat64(s float64) HDR {
	if a.IsZero() || s == 0 {
		return Zero
	}
	sm, se := math.Frexp(s)
	head := a.Head * sm
	tail := a.Tail * sm
	exp := saturatingAddI32(a.Exp, int32(se))
	return normalize(head, tail, exp)
}

// Sign returns -1, 0, or 1.
func (a HDR) Sign() int {
	switch {
	case a.IsZero():
		return 0
	case a.Head < 0:
		return -1
	default:
		return 1
	}
}

// CmpAbs compares |a| to |b|, returning -1, 0, or 1.
func CmpAbs(a, b HDR) int {
	if a.IsZero() && b.IsZero() {
		return 0
	}
	if a.IsZero() {
		return -1
	}
	if b.IsZero() {
		return 1
	}
	if a.Exp != b.Exp {
		if a.Exp < b.Exp {
			return -1
		}
		return 1
	}
	av := math.Abs(a.Head + a.Tail)
	bv := math.Abs(b.Head + b.Tail)
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	default:
		return 0
	}
}

// Sqrt returns the square root of a, preserving exponent range rather
// than routing through Float64 (which would underflow for the tiny
// validity radii deep zooms produce). Negative input returns Zero —
// callers in this module only ever take the square root of a quantity
// that is mathematically nonnegative (a validity radius), so a negative
// input indicates an upstream invariant violation, not a domain the
// caller should handle symbolically (e.g. as a complex result).
func Sqrt(a HDR) HDR {
	if a.IsZero() || a.Sign() < 0 {
		return Zero
	}
	m := a.Head + a.Tail
	e := a.Exp
	if e%2 != 0 {
		m *= 2
		e--
	}
	return New(math.Sqrt(m), e/2)
}

// Div returns a/b. Precision is limited to a single float64 division of
// the combined mantissa — adequate for the BLA validity-radius geometry
// this is used for, which only needs correct order of magnitude and
// sign, not full double-double accuracy. Division by zero returns Zero,
// matching the "never fires" fallback spec.md already requires when a
// BLA entry's radius degenerates to zero.
func Div(a, b HDR) HDR {
	if a.IsZero() || b.IsZero() {
		return Zero
	}
	q := (a.Head + a.Tail) / (b.Head + b.Tail)
	exp := saturatingAddI32(a.Exp, -b.Exp)
	return normalize(q, 0, exp)
}

// Min returns whichever of a, b has the smaller magnitude. Both values
// in this codebase's call sites are nonnegative viewport extents, so
// magnitude comparison is equivalent to a numeric minimum.
func Min(a, b HDR) HDR {
	if CmpAbs(a, b) <= 0 {
		return a
	}
	return b
}

// Log2 returns an ordinary float64 approximation of log2(|a|), used only
// for precision-policy decisions (how many bits, how many iterations) —
// never in the per-pixel hot path, so the float64 precision loss here is
// immaterial. Zero returns negative infinity.
func (a HDR) Log2() float64 {
	if a.IsZero() {
		return math.Inf(-1)
	}
	return math.Log2(math.Abs(a.Head+a.Tail)) + float64(a.Exp)
}

// Fingerprint renders h exactly via hex float formatting, for use in
// cache keys that must be stable across processes and any intermediate
// serialization the caller performs (spec.md §4.7) — unlike a decimal
// rendering, this round-trips bit-for-bit.
func (h HDR) Fingerprint() string {
	return strconv.FormatFloat(h.Head, 'x', -1, 64) + ":" +
		strconv.FormatFloat(h.Tail, 'x', -1, 64) + ":" +
		strconv.FormatInt(int64(h.Exp), 10)
}

// Cmp compares signed values a and b, returning -1, 0, or 1.
func Cmp(a, b HDR) int {
	sa, sb := a.Sign(), b.Sign()
	if sa != sb {
		if sa < sb {
			return -1
		}
		return 1
	}
	if sa == 0 {
		return 0
	}
	c := CmpAbs(a, b)
	if sa < 0 {
		return -c
	}
	return c
}
