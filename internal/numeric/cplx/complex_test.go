package cplx

import (
	"math"
	"testing"

	"github.com/cwbudde/mandelcore/internal/numeric/f64"
	"github.com/cwbudde/mandelcore/internal/numeric/hdr"
)

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol*math.Max(1, math.Abs(b))
}

func TestMulF64MatchesComplex128(t *testing.T) {
	a := New(f64.From(3), f64.From(4))
	b := New(f64.From(1), f64.From(-2))
	got := Mul(a, b)

	want := complex(3, 4) * complex(1, -2)
	if !approxEqual(float64(got.Re), real(want), 1e-12) || !approxEqual(float64(got.Im), imag(want), 1e-12) {
		t.Errorf("Mul = (%v,%v), want (%v,%v)", got.Re, got.Im, real(want), imag(want))
	}
}

func TestSquareMatchesMul(t *testing.T) {
	a := New(f64.From(2), f64.From(-3))
	sq := Square(a)
	mul := Mul(a, a)
	if sq != mul {
		t.Errorf("Square(a) = %+v, Mul(a,a) = %+v", sq, mul)
	}
}

func TestNormSqHDR(t *testing.T) {
	a := New(hdr.FromFloat64(3), hdr.FromFloat64(4))
	n := NormSq(a)
	got := n.Float64()
	if !approxEqual(got, 25, 1e-12) {
		t.Errorf("NormSq = %v, want 25", got)
	}
}

func TestMandelbrotRecurrenceHDR(t *testing.T) {
	// z <- z^2 + c at c=0: fixed point is 0.
	c := New(hdr.FromFloat64(0), hdr.FromFloat64(0))
	z := c
	for i := 0; i < 5; i++ {
		z = Add(Square(z), c)
	}
	if z.Re.Float64() != 0 || z.Im.Float64() != 0 {
		t.Errorf("expected fixed point at origin, got (%v,%v)", z.Re.Float64(), z.Im.Float64())
	}
}
