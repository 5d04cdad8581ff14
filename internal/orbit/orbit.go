// Package orbit builds and stores the high-precision reference orbit that
// every pixel's perturbation delta is measured against (spec.md §3/§4.3).
package orbit

import (
	"github.com/cwbudde/mandelcore/internal/numeric/cplx"
	"github.com/cwbudde/mandelcore/internal/numeric/hdr"
	"github.com/cwbudde/mandelcore/internal/numeric/hpfloat"
)

// Point is one stored reference-orbit entry: Z_n and its derivative with
// respect to the center coordinate, both in HDRFloat.
type Point struct {
	Z    cplx.Complex[hdr.HDR]
	DZdC cplx.Complex[hdr.HDR]
}

// Orbit is the ordered sequence {Z_n, dZ_n/dc}, built once and immutable
// for the lifetime of the longest renderer still holding it.
type Orbit struct {
	Points []Point

	// EscapedAt is the least n for which |Z_n|^2 > R^2, or nil if the
	// iteration cap was reached first.
	EscapedAt *uint32

	// Center is the HPFloat coordinate the orbit was built from, kept for
	// cache-key fingerprinting.
	CenterRe, CenterIm *hpfloat.Float

	PrecisionBits  uint
	EscapeRadiusSq float64
}

// Len returns the number of stored orbit points.
func (o *Orbit) Len() int { return len(o.Points) }

// Escaped reports whether the reference point itself ever escaped.
func (o *Orbit) Escaped() bool { return o.EscapedAt != nil }

// At returns the orbit point at index n, wrapping modulo the orbit length
// per spec.md §7 ("reference exhausted ... orbit wraps to index 0").
// Callers must not invoke this on an empty orbit.
func (o *Orbit) At(n uint32) Point {
	return o.Points[int(n)%len(o.Points)]
}
