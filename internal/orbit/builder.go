package orbit

import (
	"fmt"
	"log/slog"

	"github.com/cwbudde/mandelcore/internal/numeric/cplx"
	"github.com/cwbudde/mandelcore/internal/numeric/hdr"
	"github.com/cwbudde/mandelcore/internal/numeric/hpfloat"
)

// BuildParams describes a reference-orbit request (spec.md §4.3).
type BuildParams struct {
	// CenterRe, CenterIm are decimal strings in the grammar
	// "[-]digits[.digits][eE[-]digits]" (spec.md §6).
	CenterRe, CenterIm string

	PrecisionBits  uint
	IterationCap   uint32
	EscapeRadiusSq float64 // default 2^16 if zero
}

func (p BuildParams) escapeRadiusSq() float64 {
	if p.EscapeRadiusSq > 0 {
		return p.EscapeRadiusSq
	}
	return 65536 // 2^16
}

// hpComplex is the HPFloat-backed complex type used only inside the
// builder — cplx.Complex instantiates directly over *hpfloat.Float since
// it already satisfies cplx.Ops.
type hpComplex = cplx.Complex[*hpfloat.Float]

// Build walks the Mandelbrot recurrence in HPFloat precision, storing each
// point (and its c-derivative) converted once to HDRFloat. The derivative
// is advanced before Z at each step because it depends on the current Z_n
// (spec.md §4.3 step ordering).
func Build(p BuildParams) (*Orbit, error) {
	centerRe, err := hpfloat.FromString(p.CenterRe, p.PrecisionBits)
	if err != nil {
		return nil, fmt.Errorf("orbit: center real part: %w", err)
	}
	centerIm, err := hpfloat.FromString(p.CenterIm, p.PrecisionBits)
	if err != nil {
		return nil, fmt.Errorf("orbit: center imaginary part: %w", err)
	}

	c := hpComplex{Re: centerRe, Im: centerIm}
	z := hpComplex{Re: hpfloat.New(p.PrecisionBits), Im: hpfloat.New(p.PrecisionBits)}
	dzdc := hpComplex{Re: hpfloat.New(p.PrecisionBits), Im: hpfloat.New(p.PrecisionBits)}
	one := hpfloat.FromFloat64(1, p.PrecisionBits)

	r2 := p.escapeRadiusSq()
	iterCap := p.IterationCap

	points := make([]Point, 0, iterCap+1)
	var escapedAt *uint32

	for n := uint32(0); ; n++ {
		points = append(points, Point{
			Z:    toHDRComplex(z),
			DZdC: toHDRComplex(dzdc),
		})

		normSq := cplx.NormSq(z)
		if normSq.CmpAbs(r2) > 0 {
			e := n
			escapedAt = &e
			slog.Debug("reference orbit escaped", "n", n, "cap", iterCap)
			break
		}

		// dZ/dc_{n+1} = 2*Z_n*(dZ/dc)_n + 1, computed before Z_{n+1}.
		twoZ := hpComplex{Re: z.Re.Add(z.Re), Im: z.Im.Add(z.Im)}
		dzdc = cplx.Add(cplx.Mul(twoZ, dzdc), hpComplex{Re: one, Im: hpfloat.New(p.PrecisionBits)})

		// Z_{n+1} = Z_n^2 + C
		z = cplx.Add(cplx.Square(z), c)

		if n+1 >= iterCap {
			break
		}
	}

	slog.Debug("reference orbit built", "points", len(points), "escaped", escapedAt != nil, "precision_bits", p.PrecisionBits)

	return &Orbit{
		Points:         points,
		EscapedAt:      escapedAt,
		CenterRe:       centerRe,
		CenterIm:       centerIm,
		PrecisionBits:  p.PrecisionBits,
		EscapeRadiusSq: r2,
	}, nil
}

func toHDRComplex(z hpComplex) cplx.Complex[hdr.HDR] {
	return cplx.Complex[hdr.HDR]{
		Re: hdrFromHP(z.Re),
		Im: hdrFromHP(z.Im),
	}
}

func hdrFromHP(a *hpfloat.Float) hdr.HDR {
	head, tail, exp := a.ToHDRComponents()
	if head == 0 && tail == 0 {
		return hdr.Zero
	}
	return hdr.FromComponents(head, tail, int32(exp))
}
