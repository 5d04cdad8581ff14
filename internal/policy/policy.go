// Package policy centralizes the numeric tuning spec.md §4.8 describes:
// given how far a viewport has zoomed in, it decides how many bits of
// reference precision to ask for, what iteration cap to use, how
// aggressively to flag glitches, and what BLA tolerance applies.
package policy

import (
	"math"

	"github.com/cwbudde/mandelcore/internal/numeric/hdr"
)

// Config holds the tunable constants behind the precision/budget curve.
// The zero value is not meaningful; use Default.
type Config struct {
	// SafetyMarginBits is added on top of the bits strictly required to
	// resolve the viewport half-extent (s in spec.md §4.8, typically 64).
	SafetyMarginBits uint

	// MinPrecisionBits floors the reference precision regardless of zoom.
	MinPrecisionBits uint

	// GlitchThresholdSq is τ², the Pauldelbrot glitch-detection threshold.
	GlitchThresholdSq float64

	// BLAEpsilonF32 and BLAEpsilonF64 are the BLA validity tolerance ε
	// for an f32-backed vs. f64-backed HDRFloat mantissa.
	BLAEpsilonF32 float64
	BLAEpsilonF64 float64

	// IterationCapCurve maps -log2(d) (how many halvings deep the
	// viewport half-extent d is) to an iteration cap. The core accepts
	// whatever cap a job names explicitly; this curve is only the
	// default spec.md §4.8 says callers may omit.
	IterationCapCurve func(log2Depth float64) uint32
}

// Default returns the policy this core uses absent caller overrides.
func Default() Config {
	return Config{
		SafetyMarginBits:  64,
		MinPrecisionBits:  64,
		GlitchThresholdSq: 1e-6,
		BLAEpsilonF32:     1.0 / (1 << 24), // 2^-24
		BLAEpsilonF64:     math.Ldexp(1, -53),
		IterationCapCurve: defaultIterationCapCurve,
	}
}

// defaultIterationCapCurve grows the iteration budget with zoom depth: a
// shallow zoom needs few iterations to resolve detail, a deep one needs
// many. The curve is monotone and caps at a generous ceiling so a
// pathological request can't allocate an unbounded result buffer.
func defaultIterationCapCurve(log2Depth float64) uint32 {
	if log2Depth < 0 {
		log2Depth = 0
	}
	iterCap := 1000.0 + log2Depth*250.0
	if iterCap > 1_000_000 {
		iterCap = 1_000_000
	}
	return uint32(iterCap)
}

// PrecisionBits returns the reference-orbit precision for a viewport
// half-extent d: max(64, ceil(-log2(d)) + s).
func (c Config) PrecisionBits(halfExtent hdr.HDR) uint {
	depth := -halfExtent.Log2()
	bits := math.Ceil(depth) + float64(c.SafetyMarginBits)
	if bits < float64(c.MinPrecisionBits) {
		return c.MinPrecisionBits
	}
	return uint(bits)
}

// IterationCap returns the default iteration cap for a viewport
// half-extent d, via the configured curve.
func (c Config) IterationCap(halfExtent hdr.HDR) uint32 {
	depth := -halfExtent.Log2()
	return c.IterationCapCurve(depth)
}

// BLAEpsilon returns ε for the requested HDRFloat mantissa width.
func (c Config) BLAEpsilon(f32Backed bool) float64 {
	if f32Backed {
		return c.BLAEpsilonF32
	}
	return c.BLAEpsilonF64
}

// DCMax computes half the diagonal of a rectangular viewport in
// HDRFloat, per spec.md §4.8: dc_max = half-diagonal = sqrt(w²+h²)/2
// where w, h are the viewport's full width and height.
func DCMax(width, height hdr.HDR) hdr.HDR {
	wSq := width.Mul(width)
	hSq := height.Mul(height)
	diag := hdr.Sqrt(wSq.Add(hSq))
	return diag.MulFloat64(0.5)
}
