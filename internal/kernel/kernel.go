// Package kernel implements the perturbation delta recurrence: the
// per-pixel, per-iteration-chunk loop that advances (δz, δρ) against a
// shared reference orbit, with rebasing, Pauldelbrot glitch detection,
// and BLA dispatch (spec.md §4.5).
//
// The recurrence is expressed directly against HDRFloat rather than
// re-parameterized over internal/numeric/cplx's Ops protocol a second
// time: HDRFloat is the one backend every pixel can use regardless of
// zoom depth (the protocol itself is instantiated over HPFloat by the
// orbit builder and over float64 and HDRFloat in internal/numeric/cplx's
// tests), and BLA entries are always HDRFloat-valued per spec.md's data
// model, so a delta type
// other than HDRFloat would need a conversion layer at every BLA
// dispatch for no correctness benefit.
package kernel

import (
	"github.com/cwbudde/mandelcore/internal/bla"
	"github.com/cwbudde/mandelcore/internal/numeric/cplx"
	"github.com/cwbudde/mandelcore/internal/numeric/hdr"
	"github.com/cwbudde/mandelcore/internal/orbit"
)

// hc is the HDRFloat-backed complex type the kernel operates on.
type hc = cplx.Complex[hdr.HDR]

// Flags records the two non-exclusive per-pixel outcomes spec.md §6
// defines.
type Flags uint8

const (
	FlagEscaped  Flags = 0x1
	FlagGlitched Flags = 0x2
)

// PixelState is the persistent per-pixel state carried across chunks
// (spec.md §3). The zero value is the correct initial state: all zero,
// flags clear, m = 0.
type PixelState struct {
	DeltaZ, DeltaRho hc
	N, M             uint32
	Flags            Flags

	// Populated only once FlagEscaped is set, per spec.md §4.5 step 3.
	ZNormSq          float64
	FinalZRe         float64
	FinalZIm         float64
	FinalDerRe       float64
	FinalDerIm       float64
}

// Escaped reports whether this pixel has already escaped; once true a
// caller must not invoke Step on this state again (spec.md §8,
// "escape idempotence").
func (s *PixelState) Escaped() bool { return s.Flags&FlagEscaped != 0 }

// Params bundles the per-job constants a chunk step needs.
type Params struct {
	DeltaC       hc
	TauSq        float64 // glitch threshold τ²
	EscapeRSq    float64 // R²
	EpsGuard     float64 // Pauldelbrot guard: only test glitch where |Z_m|² exceeds this
	ChunkEnd     uint32  // advance state.N up to this value
	IterationCap uint32
	BLAEnabled   bool
}

// DefaultEpsGuard is the Pauldelbrot guard threshold below which a
// reference point is considered too close to zero for the glitch ratio
// test to be meaningful (spec.md §4.5 step 4 leaves the exact value to
// the implementation).
const DefaultEpsGuard = 1e-9

// Step advances state by running the delta recurrence until
// state.N >= p.ChunkEnd or the pixel escapes, per spec.md §4.5. It is a
// no-op on an already-escaped pixel.
func Step(state *PixelState, orb *orbit.Orbit, table *bla.Table, p Params) {
	if state.Escaped() {
		return
	}

	startN := state.N
	chunkSize := uint64(p.ChunkEnd) - uint64(startN)
	safetyBound := chunkSize * 4
	if safetyBound == 0 {
		safetyBound = 4
	}

	escapeRSq := hdr.FromFloat64(p.EscapeRSq)
	epsGuard := hdr.FromFloat64(p.EpsGuard)

	orbLen := uint32(orb.Len())
	loopIterations := uint64(0)

	for state.N < p.ChunkEnd && !state.Escaped() {
		loopIterations++
		if loopIterations > safetyBound {
			state.Flags |= FlagGlitched
			return
		}

		// 1. Reference-exhaustion guard. Flag and fall through — the
		// rest of the step still runs against the wrapped index.
		if orb.Escaped() && state.M >= orbLen {
			state.Flags |= FlagGlitched
		}

		// 2. Full value.
		pt := orb.At(state.M)
		z := cplx.Add(pt.Z, state.DeltaZ)
		zNormSq := cplx.NormSq(z)

		// 3. Escape.
		if hdr.CmpAbs(zNormSq, escapeRSq) > 0 {
			rho := cplx.Add(pt.DZdC, state.DeltaRho)
			state.ZNormSq = zNormSq.Float64()
			state.FinalZRe = z.Re.Float64()
			state.FinalZIm = z.Im.Float64()
			state.FinalDerRe = rho.Re.Float64()
			state.FinalDerIm = rho.Im.Float64()
			state.Flags |= FlagEscaped
			return
		}

		// 4. Glitch detection (Pauldelbrot).
		zmNormSq := cplx.NormSq(pt.Z)
		if hdr.CmpAbs(zmNormSq, epsGuard) > 0 {
			threshold := zmNormSq.MulFloat64(p.TauSq)
			if hdr.CmpAbs(zNormSq, threshold) < 0 {
				state.Flags |= FlagGlitched
			}
		}

		// 5. Rebase.
		deltaZNormSq := cplx.NormSq(state.DeltaZ)
		if hdr.CmpAbs(zNormSq, deltaZNormSq) < 0 {
			state.DeltaZ = z
			state.DeltaRho = cplx.Add(pt.DZdC, state.DeltaRho)
			state.M = 0
			continue
		}

		// 6. BLA attempt. Looping back to the top after a skip re-runs
		// step 5 against the post-skip reference point, which is the
		// post-BLA-skip rebase check spec.md §9's open question asks
		// about — no separate inhibition or extra check is needed
		// because the control flow already provides it.
		if p.BLAEnabled && table != nil {
			if entry, ok := table.Lookup(state.M, deltaZNormSq, state.N, p.IterationCap); ok {
				deltaZOld := state.DeltaZ
				state.DeltaZ = cplx.Add(cplx.Mul(entry.A, state.DeltaZ), cplx.Mul(entry.B, p.DeltaC))
				state.DeltaRho = cplx.Add(cplx.Add(cplx.Mul(entry.A, state.DeltaRho), cplx.Mul(entry.D, deltaZOld)), cplx.Mul(entry.E, p.DeltaC))
				state.M += entry.L
				state.N += entry.L
				continue
			}
		}

		// 7. Exact step.
		deltaZOld := state.DeltaZ
		twoZm := cplx.Add(pt.Z, pt.Z)
		twoDeltaZOld := cplx.Add(deltaZOld, deltaZOld)

		state.DeltaZ = cplx.Add(cplx.Add(cplx.Mul(twoZm, state.DeltaZ), cplx.Square(state.DeltaZ)), p.DeltaC)
		state.DeltaRho = cplx.Add(
			cplx.Add(cplx.Mul(twoZm, state.DeltaRho), cplx.Mul(twoDeltaZOld, pt.DZdC)),
			cplx.Mul(twoDeltaZOld, state.DeltaRho),
		)
		state.M++
		state.N++
	}
}
