package render

import (
	"context"
	"testing"

	"github.com/cwbudde/mandelcore/internal/cache"
	"github.com/cwbudde/mandelcore/internal/kernel"
	"github.com/cwbudde/mandelcore/internal/numeric/hdr"
	"github.com/cwbudde/mandelcore/internal/policy"
)

func newTestDriver() *Driver {
	return NewDriver(cache.NewOrbitCache(64<<20), cache.NewTableCache(64<<20), policy.Default())
}

// Origin membership: C = 0, half-extent 2, 4x4 image, cap 1000.
func TestOriginMembership(t *testing.T) {
	d := newTestDriver()
	spec := JobSpec{
		CenterRe: "0", CenterIm: "0",
		Width: hdr.FromFloat64(4), Height: hdr.FromFloat64(4),
		ImageWidthPx: 4, ImageHeightPx: 4,
		IterationCap:   1000,
		EscapeRadiusSq: 4,
		TauSq:          1e-6,
	}

	buf, err := d.Render(spec, nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	center := buf.At(1, 1)
	if center.Flags&kernel.FlagEscaped != 0 {
		t.Fatalf("center pixel escaped unexpectedly, flags=%d", center.Flags)
	}
	if center.Iterations != spec.IterationCap {
		t.Fatalf("center pixel: want iterations=%d, got %d", spec.IterationCap, center.Iterations)
	}

	corner := buf.At(0, 0)
	if corner.Flags&kernel.FlagEscaped == 0 {
		t.Fatalf("corner pixel did not escape")
	}
	if corner.ZNormSq <= 4 {
		t.Fatalf("corner pixel: want z_norm_sq > 4, got %f", corner.ZNormSq)
	}
}

// Cardioid interior: C = -0.5 as reference, deep enough that every
// pixel stays in the set through the whole cap, BLA enabled.
func TestCardioidInteriorNeverEscapes(t *testing.T) {
	d := newTestDriver()
	spec := JobSpec{
		CenterRe: "-0.5", CenterIm: "0",
		Width: hdr.FromFloat64(2e-6), Height: hdr.FromFloat64(2e-6),
		ImageWidthPx: 16, ImageHeightPx: 16,
		IterationCap:   2000,
		EscapeRadiusSq: 4,
		TauSq:          1e-6,
		BLAEnabled:     true,
	}

	buf, err := d.Render(spec, nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	for y := uint32(0); y < spec.ImageHeightPx; y++ {
		for x := uint32(0); x < spec.ImageWidthPx; x++ {
			rec := buf.At(x, y)
			if rec.Flags&kernel.FlagEscaped != 0 {
				t.Fatalf("pixel (%d,%d) escaped unexpectedly", x, y)
			}
			if rec.Flags&kernel.FlagGlitched != 0 {
				t.Fatalf("pixel (%d,%d) flagged glitched unexpectedly", x, y)
			}
			if rec.Iterations != spec.IterationCap {
				t.Fatalf("pixel (%d,%d): want iterations=%d, got %d", x, y, spec.IterationCap, rec.Iterations)
			}
		}
	}
}

// Shallow escape stripe: every pixel escapes well before the cap, with
// no glitch flags.
func TestShallowEscapeStripe(t *testing.T) {
	d := newTestDriver()
	spec := JobSpec{
		CenterRe: "0.3", CenterIm: "0",
		Width: hdr.FromFloat64(2e-3), Height: hdr.FromFloat64(2e-3),
		ImageWidthPx: 8, ImageHeightPx: 8,
		IterationCap:   200,
		EscapeRadiusSq: 4,
		TauSq:          1e-6,
	}

	buf, err := d.Render(spec, nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	for y := uint32(0); y < spec.ImageHeightPx; y++ {
		for x := uint32(0); x < spec.ImageWidthPx; x++ {
			rec := buf.At(x, y)
			if rec.Flags&kernel.FlagEscaped == 0 {
				t.Fatalf("pixel (%d,%d) did not escape within cap", x, y)
			}
			if rec.Flags&kernel.FlagGlitched != 0 {
				t.Fatalf("pixel (%d,%d) flagged glitched unexpectedly", x, y)
			}
			if rec.Iterations >= spec.IterationCap {
				t.Fatalf("pixel (%d,%d): escaped at cap, want well before it", x, y)
			}
		}
	}
}

// Deep valid zoom: a documented seahorse-valley coordinate, deep enough
// that BLA is load-bearing; glitch rate must stay under 1% and results
// must be deterministic across a fresh render of the same job.
func TestDeepValidZoomIsDeterministicAndMostlyClean(t *testing.T) {
	spec := JobSpec{
		CenterRe: "-0.7436438870371587",
		CenterIm: "0.13182590420533012",
		Width:    hdr.New(1, -45),
		Height:   hdr.New(1, -45),

		ImageWidthPx: 16, ImageHeightPx: 16,
		IterationCap:   5000,
		EscapeRadiusSq: 4,
		TauSq:          1e-6,
		BLAEnabled:     true,
	}

	d1 := newTestDriver()
	buf1, err := d1.Render(spec, nil)
	if err != nil {
		t.Fatalf("render 1: %v", err)
	}

	d2 := newTestDriver()
	buf2, err := d2.Render(spec, nil)
	if err != nil {
		t.Fatalf("render 2: %v", err)
	}

	glitched := 0
	total := len(buf1.Records)
	for i, rec := range buf1.Records {
		if rec.Flags&kernel.FlagGlitched != 0 {
			glitched++
		}
		other := buf2.Records[i]
		if rec.Iterations != other.Iterations || rec.Flags != other.Flags {
			t.Fatalf("pixel %d: non-deterministic result across fresh renders: %+v vs %+v", i, rec, other)
		}
	}
	if float64(glitched)/float64(total) >= 0.01 {
		t.Fatalf("glitch rate too high: %d/%d", glitched, total)
	}
}

// BLA-off must equal BLA-on (same orbit/table, deterministic HDRFloat
// arithmetic) to within one iteration.
func TestBLAOffEqualsBLAOn(t *testing.T) {
	d := newTestDriver()
	base := JobSpec{
		CenterRe: "-0.7436438870371587",
		CenterIm: "0.13182590420533012",
		Width:    hdr.New(1, -45),
		Height:   hdr.New(1, -45),

		ImageWidthPx: 16, ImageHeightPx: 16,
		IterationCap:   5000,
		EscapeRadiusSq: 4,
		TauSq:          1e-6,
	}

	withBLA := base
	withBLA.BLAEnabled = true
	withoutBLA := base
	withoutBLA.BLAEnabled = false

	bufOn, err := d.Render(withBLA, nil)
	if err != nil {
		t.Fatalf("render with BLA: %v", err)
	}
	bufOff, err := d.Render(withoutBLA, nil)
	if err != nil {
		t.Fatalf("render without BLA: %v", err)
	}

	for i := range bufOn.Records {
		on, off := bufOn.Records[i], bufOff.Records[i]
		diff := int64(on.Iterations) - int64(off.Iterations)
		if diff < -1 || diff > 1 {
			t.Fatalf("pixel %d: BLA on/off iteration mismatch: %d vs %d", i, on.Iterations, off.Iterations)
		}
	}
}

// A job cancelled after its first row-set must retain that row-set's
// results and report the rest as not-yet-computed.
func TestCancellationAfterFirstRowSet(t *testing.T) {
	d := newTestDriver()
	d.RowSets = 4

	ctx, cancel := context.WithCancel(context.Background())
	spec := JobSpec{
		CenterRe: "-0.75", CenterIm: "0.1",
		Width: hdr.New(1, -30), Height: hdr.New(1, -30),

		ImageWidthPx: 16, ImageHeightPx: 16,
		IterationCap:   200_000,
		EscapeRadiusSq: 4,
		TauSq:          1e-6,
		BLAEnabled:     true,
		Cancel:         ctx,
	}

	rowSetsSeen := 0
	buf, err := d.Render(spec, func(rs RowSet, b *Buffer) {
		rowSetsSeen++
		if rowSetsSeen == 1 {
			cancel()
		}
	})
	if err != ErrCancelled {
		t.Fatalf("want ErrCancelled, got %v", err)
	}
	if rowSetsSeen != 1 {
		t.Fatalf("want exactly one row-set emitted before cancellation, got %d", rowSetsSeen)
	}

	doneRows, totalRows := 0, int(spec.ImageHeightPx)
	for _, done := range buf.Done {
		if done {
			doneRows++
		}
	}
	if doneRows == 0 || doneRows == totalRows {
		t.Fatalf("want partial completion, got %d/%d rows done", doneRows, totalRows)
	}
}

// Progressive consistency: the same job rendered in one row-set versus
// several interleaved row-sets must produce identical buffers.
func TestProgressiveConsistencyAcrossRowSetCounts(t *testing.T) {
	spec := JobSpec{
		CenterRe: "0.3", CenterIm: "0",
		Width: hdr.FromFloat64(2e-3), Height: hdr.FromFloat64(2e-3),
		ImageWidthPx: 8, ImageHeightPx: 8,
		IterationCap:   200,
		EscapeRadiusSq: 4,
		TauSq:          1e-6,
	}

	single := newTestDriver()
	single.RowSets = 1
	bufSingle, err := single.Render(spec, nil)
	if err != nil {
		t.Fatalf("single row-set render: %v", err)
	}

	progressive := newTestDriver()
	progressive.RowSets = 4
	bufProgressive, err := progressive.Render(spec, nil)
	if err != nil {
		t.Fatalf("progressive render: %v", err)
	}

	for i := range bufSingle.Records {
		a, b := bufSingle.Records[i], bufProgressive.Records[i]
		if a != b {
			t.Fatalf("pixel %d: single-row-set result %+v != progressive result %+v", i, a, b)
		}
	}
}

func TestRenderRejectsInvalidJob(t *testing.T) {
	d := newTestDriver()
	_, err := d.Render(JobSpec{}, nil)
	if err == nil {
		t.Fatal("want an error for a zero-value job spec")
	}
}

// countdownContext cancels on its Nth Err() check, for deterministically
// landing cancellation at a specific point inside runRowSet's chunk loop
// instead of racing a timer against it.
type countdownContext struct {
	context.Context
	calls    int
	cancelAt int
}

func (c *countdownContext) Err() error {
	c.calls++
	if c.calls >= c.cancelAt {
		return context.Canceled
	}
	return nil
}

// A row-set cancelled partway through its chunks must not publish any of
// that row-set's pixels: they are mid-iteration, neither escaped nor at
// the cap, so Buffer.Done must stay false and Records must stay zeroed
// for every row in the interrupted set.
func TestCancellationMidChunkDiscardsPartialRowSet(t *testing.T) {
	d := newTestDriver()
	d.RowSets = 1
	d.ChunkSize = 1

	ctx := &countdownContext{Context: context.Background(), cancelAt: 3}
	spec := JobSpec{
		CenterRe: "0", CenterIm: "0",
		Width: hdr.FromFloat64(4), Height: hdr.FromFloat64(4),
		ImageWidthPx: 4, ImageHeightPx: 4,
		IterationCap:   20,
		EscapeRadiusSq: 4,
		TauSq:          1e-6,
		Cancel:         ctx,
	}

	buf, err := d.Render(spec, nil)
	if err != ErrCancelled {
		t.Fatalf("want ErrCancelled, got %v", err)
	}

	for _, done := range buf.Done {
		if done {
			t.Fatalf("want no rows marked done after a mid-chunk cancellation")
		}
	}
	for i, rec := range buf.Records {
		if rec != (kernel.Record{}) {
			t.Fatalf("pixel %d: want zero-value record for a discarded row-set, got %+v", i, rec)
		}
	}
}

func TestBatchRowIndicesCoversEveryIndexExactlyOnce(t *testing.T) {
	for _, batchSize := range []int{1, 3, 4, 7} {
		batches := batchRowIndices(10, batchSize)
		seen := make(map[int]bool)
		for _, batch := range batches {
			if len(batch) > batchSize {
				t.Fatalf("batch size %d: batch %v exceeds limit", batchSize, batch)
			}
			for _, idx := range batch {
				if seen[idx] {
					t.Fatalf("batch size %d: index %d claimed twice", batchSize, idx)
				}
				seen[idx] = true
			}
		}
		if len(seen) != 10 {
			t.Fatalf("batch size %d: want 10 indices covered, got %d", batchSize, len(seen))
		}
	}
}

func TestBatchRowIndicesEmptyInput(t *testing.T) {
	if batches := batchRowIndices(0, 4); batches != nil {
		t.Fatalf("want no batches for zero rows, got %v", batches)
	}
}
