package gpu

import (
	"math"
	"testing"

	"github.com/cwbudde/mandelcore/internal/bla"
	"github.com/cwbudde/mandelcore/internal/numeric/cplx"
	"github.com/cwbudde/mandelcore/internal/numeric/hdr"
	"github.com/cwbudde/mandelcore/internal/orbit"
)

func buildTestOrbit(t *testing.T) *orbit.Orbit {
	t.Helper()
	o, err := orbit.Build(orbit.BuildParams{
		CenterRe:      "-0.75",
		CenterIm:      "0.1",
		PrecisionBits: 64,
		IterationCap:  64,
	})
	if err != nil {
		t.Fatalf("build orbit: %v", err)
	}
	return o
}

func TestPackOrbitPointRoundTripsHeadTailExp(t *testing.T) {
	h := hdr.New(0.75, -12345)
	head, tail, exp := packHDR32(h)

	if math.Float32frombits(head) != float32(h.Head) {
		t.Fatalf("head mismatch: got %v want %v", math.Float32frombits(head), float32(h.Head))
	}
	if math.Float32frombits(tail) != float32(h.Tail) {
		t.Fatalf("tail mismatch: got %v want %v", math.Float32frombits(tail), float32(h.Tail))
	}
	if int32(exp) != h.Exp {
		t.Fatalf("exp mismatch: got %d want %d", int32(exp), h.Exp)
	}
}

func TestPackOrbitProducesExpectedWordCount(t *testing.T) {
	o := buildTestOrbit(t)
	words := PackOrbit(o)

	wantLen := o.Len() * WordsPerOrbitPoint
	if len(words) != wantLen {
		t.Fatalf("want %d words for %d points, got %d", wantLen, o.Len(), len(words))
	}
}

func TestPackBLAEntryProducesSixteenWords(t *testing.T) {
	e := bla.Entry{
		A:  cplx.Complex[hdr.HDR]{Re: hdr.New(0.5, 3), Im: hdr.Zero},
		B:  cplx.Complex[hdr.HDR]{Re: hdr.New(0.25, -7), Im: hdr.Zero},
		R2: hdr.New(0.9, 2),
		L:  4,
	}
	words := PackBLAEntry(e)

	if len(words) != WordsPerBLAEntry {
		t.Fatalf("want %d words, got %d", WordsPerBLAEntry, len(words))
	}
	if words[15] != e.L {
		t.Fatalf("want last word to carry L=%d, got %d", e.L, words[15])
	}
}

func TestPackBLATableLevelOffsetsCoverAllEntries(t *testing.T) {
	o := buildTestOrbit(t)
	table := bla.Build(o, bla.Params{
		DCMax:        hdr.FromFloat64(1e-3),
		Eps:          1e-6,
		IterationCap: 64,
	})

	entries, levelOffsets := PackBLATable(table)

	if len(levelOffsets) != table.NumLevels()+1 {
		t.Fatalf("want %d level offsets, got %d", table.NumLevels()+1, len(levelOffsets))
	}

	for l := 0; l < table.NumLevels(); l++ {
		start, end := levelOffsets[l], levelOffsets[l+1]
		if end < start {
			t.Fatalf("level %d: offsets decrease: %d -> %d", l, start, end)
		}
		wantEntries := end - start
		if wantEntries != uint32(len(table.Level(l))) {
			t.Fatalf("level %d: offset span %d does not match %d actual entries", l, wantEntries, len(table.Level(l)))
		}
	}

	lastOffset := levelOffsets[len(levelOffsets)-1]
	if int(lastOffset)*WordsPerBLAEntry != len(entries) {
		t.Fatalf("final offset %d * %d words does not match packed length %d", lastOffset, WordsPerBLAEntry, len(entries))
	}
}

func TestPackBLATableEmptyOrbitYieldsNoEntries(t *testing.T) {
	empty := &orbit.Orbit{}
	table := bla.Build(empty, bla.Params{DCMax: hdr.FromFloat64(1e-3), Eps: 1e-6, IterationCap: 64})

	entries, levelOffsets := PackBLATable(table)
	if len(entries) != 0 {
		t.Fatalf("want no entries for an empty orbit, got %d", len(entries))
	}
	if len(levelOffsets) != 1 || levelOffsets[0] != 0 {
		t.Fatalf("want a single zero level offset, got %v", levelOffsets)
	}
}
