// Package cplx implements a single generic complex-number type shared by
// the numeric backends (HPFloat, HDRFloat, and plain float64), per
// spec.md §3/§9: "the exact same perturbation loop must compile for
// three backing numeric types." Rather than hand-writing
// three near-identical complex types, the arithmetic is expressed once
// against a small scalar protocol and instantiated with Go generics.
package cplx

// Ops is the scalar protocol every backing numeric type implements:
// add, sub, mul, square, neg. This is deliberately small — just enough
// for the perturbation recurrence and the BLA composition law, nothing
// a backend would need to special-case.
type Ops[T any] interface {
	Add(T) T
	Sub(T) T
	Mul(T) T
	Square() T
	Neg() T
}

// Complex is a generic (re, im) pair over any scalar implementing Ops.
type Complex[T Ops[T]] struct {
	Re, Im T
}

// New builds a Complex from components.
func New[T Ops[T]](re, im T) Complex[T] {
	return Complex[T]{Re: re, Im: im}
}

// Add returns a+b.
func Add[T Ops[T]](a, b Complex[T]) Complex[T] {
	return Complex[T]{Re: a.Re.Add(b.Re), Im: a.Im.Add(b.Im)}
}

// Sub returns a-b.
func Sub[T Ops[T]](a, b Complex[T]) Complex[T] {
	return Complex[T]{Re: a.Re.Sub(b.Re), Im: a.Im.Sub(b.Im)}
}

// Mul returns a*b: (re1*re2 - im1*im2) + i(re1*im2 + im1*re2).
func Mul[T Ops[T]](a, b Complex[T]) Complex[T] {
	re := a.Re.Mul(b.Re).Sub(a.Im.Mul(b.Im))
	im := a.Re.Mul(b.Im).Add(a.Im.Mul(b.Re))
	return Complex[T]{Re: re, Im: im}
}

// Square returns a*a, sharing the cross term rather than calling Mul.
func Square[T Ops[T]](a Complex[T]) Complex[T] {
	re := a.Re.Mul(a.Re).Sub(a.Im.Mul(a.Im))
	crossTerm := a.Re.Mul(a.Im)
	im := crossTerm.Add(crossTerm)
	return Complex[T]{Re: re, Im: im}
}

// NormSq returns |a|^2 = re^2+im^2, in the same scalar type, preserving
// range for HDRFloat operands (a plain float64 norm would overflow long
// before a zoomed-in HDRFloat delta does).
func NormSq[T Ops[T]](a Complex[T]) T {
	return a.Re.Mul(a.Re).Add(a.Im.Mul(a.Im))
}

// Neg returns -a.
func Neg[T Ops[T]](a Complex[T]) Complex[T] {
	return Complex[T]{Re: a.Re.Neg(), Im: a.Im.Neg()}
}

// Scale multiplies both components by a scalar-producing function,
// useful for "multiply by 2" (2*Z*delta terms in the derivative
// recurrence) without constructing a full Complex operand.
func Scale[T Ops[T]](a Complex[T], f func(T) T) Complex[T] {
	return Complex[T]{Re: f(a.Re), Im: f(a.Im)}
}
