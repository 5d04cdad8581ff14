// Package gpu implements the GPU-side buffer layouts spec.md §6
// defines and the backend dispatch boundary between the CPU driver and
// a GPU implementation, grounded on the teacher's renderer-backend
// split (internal/fit/renderer/backend.go).
package gpu

import (
	"math"

	"github.com/cwbudde/mandelcore/internal/bla"
	"github.com/cwbudde/mandelcore/internal/numeric/hdr"
	"github.com/cwbudde/mandelcore/internal/orbit"
)

// WordsPerOrbitPoint and WordsPerBLAEntry are the fixed per-record
// sizes spec.md §6 names for the GPU buffer layouts.
const (
	WordsPerOrbitPoint = 12
	WordsPerBLAEntry   = 16
)

// packHDR32 renders an HDRFloat value as the f32-backed (head, tail,
// exp) triple the GPU wire format uses — a GPU compute kernel works in
// f32-pair HDRFloat for throughput, per spec.md §3/§8's f32-backed
// mantissa width, even though this module's CPU-side internal/numeric/hdr
// is float64-pair throughout; the precision loss here is a property of
// the GPU buffer format, not of the in-process representation.
func packHDR32(h hdr.HDR) (head, tail, exp uint32) {
	return math.Float32bits(float32(h.Head)), math.Float32bits(float32(h.Tail)), uint32(h.Exp)
}

// PackOrbitPoint renders one reference-orbit point into the 12-word GPU
// layout spec.md §6 defines: Z.re.(head,tail), Z.im.(head,tail),
// Z.re.exp, Z.im.exp, dZdc.re.(head,tail), dZdc.im.(head,tail),
// dZdc.re.exp, dZdc.im.exp.
func PackOrbitPoint(pt orbit.Point) [WordsPerOrbitPoint]uint32 {
	zReHead, zReTail, zReExp := packHDR32(pt.Z.Re)
	zImHead, zImTail, zImExp := packHDR32(pt.Z.Im)
	dReHead, dReTail, dReExp := packHDR32(pt.DZdC.Re)
	dImHead, dImTail, dImExp := packHDR32(pt.DZdC.Im)

	return [WordsPerOrbitPoint]uint32{
		zReHead, zReTail, zImHead, zImTail, zReExp, zImExp,
		dReHead, dReTail, dImHead, dImTail, dReExp, dImExp,
	}
}

// PackOrbit renders every stored point of o into the flat GPU buffer.
func PackOrbit(o *orbit.Orbit) []uint32 {
	buf := make([]uint32, 0, o.Len()*WordsPerOrbitPoint)
	for _, pt := range o.Points {
		words := PackOrbitPoint(pt)
		buf = append(buf, words[:]...)
	}
	return buf
}

// PackBLAEntry renders one BLA entry into the 16-word GPU layout
// spec.md §6 defines: A.re.(head,tail,exp), A.im.(head,tail,exp),
// B.re.(head,tail,exp), B.im.(head,tail,exp), r².(head,tail,exp), L.
// The derivative-chain coefficients D and E are CPU-only: the GPU
// layout spec.md names carries only the (A, B, r², L) a pixel needs to
// advance δz, not the δρ bookkeeping a GPU renderer that only produces
// escape iteration counts (no derivative-based coloring) never reads.
func PackBLAEntry(e bla.Entry) [WordsPerBLAEntry]uint32 {
	aReHead, aReTail, aReExp := packHDR32(e.A.Re)
	aImHead, aImTail, aImExp := packHDR32(e.A.Im)
	bReHead, bReTail, bReExp := packHDR32(e.B.Re)
	bImHead, bImTail, bImExp := packHDR32(e.B.Im)
	r2Head, r2Tail, r2Exp := packHDR32(e.R2)

	return [WordsPerBLAEntry]uint32{
		aReHead, aReTail, aReExp,
		aImHead, aImTail, aImExp,
		bReHead, bReTail, bReExp,
		bImHead, bImTail, bImExp,
		r2Head, r2Tail, r2Exp,
		e.L,
	}
}

// PackBLATable renders every entry of t, across all levels, into the
// flat GPU buffer, alongside the level offsets a GPU dispatch needs to
// find each level's entries (spec.md §6: "level offsets supplied in a
// side array").
func PackBLATable(t *bla.Table) (entries []uint32, levelOffsets []uint32) {
	levelOffsets = make([]uint32, 0, t.NumLevels()+1)
	offset := uint32(0)
	for l := 0; l < t.NumLevels(); l++ {
		levelOffsets = append(levelOffsets, offset)
		lvl := t.Level(l)
		for _, e := range lvl {
			words := PackBLAEntry(e)
			entries = append(entries, words[:]...)
		}
		offset += uint32(len(lvl))
	}
	levelOffsets = append(levelOffsets, offset)
	return entries, levelOffsets
}
