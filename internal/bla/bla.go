// Package bla builds the bivariate-linear-approximation table that lets
// the perturbation kernel skip many reference iterations at once instead
// of walking the delta recurrence one step at a time (spec.md §4.4).
package bla

import (
	"github.com/cwbudde/mandelcore/internal/numeric/cplx"
	"github.com/cwbudde/mandelcore/internal/numeric/hdr"
	"github.com/cwbudde/mandelcore/internal/orbit"
)

// hc is shorthand for the HDRFloat-backed complex type every BLA
// coefficient is stored in.
type hc = cplx.Complex[hdr.HDR]

// Entry is one node of the leveled BLA tree: (A, B, D, E, L, r²). C_coef
// coincides with A at every level (spec.md §4.4) so it is not stored
// separately.
type Entry struct {
	A, B, D, E hc
	L          uint32
	R2         hdr.HDR
}

// valid reports whether the entry ever applies — a zero radius means the
// reference passed through (or near) zero at some point this entry
// covers, and spec.md §4.4 requires such entries to simply never fire
// rather than be special-cased away.
func (e Entry) valid() bool { return !e.R2.IsZero() }

var one = hdr.FromFloat64(1)

// level0 builds the single-step entry at reference index m from the
// orbit point (Z_m, dZ/dc_m), per spec.md §4.3/§4.4:
// A = 2*Z_m, B = 1, D = 2*(dZ/dc)_m, E = 0, L = 1, r² = (ε*|Z_m|)².
func level0(p orbit.Point, eps float64) Entry {
	two := func(z hc) hc { return cplx.Add(z, z) }
	r2 := cplx.NormSq(p.Z).MulFloat64(eps * eps)
	return Entry{
		A:  two(p.Z),
		B:  hc{Re: one, Im: hdr.Zero},
		D:  two(p.DZdC),
		E:  hc{Re: hdr.Zero, Im: hdr.Zero},
		L:  1,
		R2: r2,
	}
}

// merge composes entry x (applied first) with entry y (applied second),
// following the composition rule in spec.md §4.4. Degenerate entries
// (zero radius) still compose algebraically — only the radius clamps to
// zero, per the "will simply never apply" edge case.
func merge(x, y Entry, dcMax hdr.HDR) Entry {
	absBx := hdr.Sqrt(cplx.NormSq(x.B))
	absAx := hdr.Sqrt(cplx.NormSq(x.A))

	r2 := x.R2
	if x.valid() {
		shrink := hdr.Sqrt(y.R2).Sub(absBx.Mul(dcMax))
		if shrink.Sign() < 0 {
			shrink = hdr.Zero
		}
		if !absAx.IsZero() {
			ratio := hdr.Div(shrink, absAx)
			candidate := ratio.Square()
			if hdr.CmpAbs(candidate, r2) < 0 {
				r2 = candidate
			}
		} else {
			r2 = hdr.Zero
		}
	}

	return Entry{
		A:  cplx.Mul(y.A, x.A),
		B:  cplx.Add(cplx.Mul(y.A, x.B), y.B),
		D:  cplx.Add(cplx.Mul(y.A, x.D), cplx.Mul(y.D, x.A)),
		E:  cplx.Add(cplx.Add(cplx.Mul(y.A, x.E), cplx.Mul(y.D, x.B)), y.E),
		L:  x.L + y.L,
		R2: r2,
	}
}
