package render

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/cwbudde/mandelcore/internal/bla"
	"github.com/cwbudde/mandelcore/internal/cache"
	"github.com/cwbudde/mandelcore/internal/kernel"
	"github.com/cwbudde/mandelcore/internal/numeric/cplx"
	"github.com/cwbudde/mandelcore/internal/numeric/hdr"
	"github.com/cwbudde/mandelcore/internal/orbit"
	"github.com/cwbudde/mandelcore/internal/policy"
)

// Driver is the progressive row-set/iteration-chunk scheduler (spec.md
// §4.6). One Driver can render many jobs; its caches are shared and
// safe for concurrent use across jobs.
type Driver struct {
	Orbits *cache.OrbitCache
	Tables *cache.TableCache
	Policy policy.Config

	// RowSets is K, the number of interleaved row-sets; row r belongs
	// to set r mod K.
	RowSets uint32
	// ChunkSize is S, iterations advanced per chunk before the cancel
	// token is checked.
	ChunkSize uint32
	// Workers bounds the row-worker pool size per chunk dispatch.
	Workers int
	// RowBatchSize is how many rows a worker claims per channel receive;
	// set from detected CPU vector width (see simd.go).
	RowBatchSize int
}

// NewDriver returns a Driver with the teacher-repo-style defaults: a
// worker count matched to available CPUs, 8 interleaved row-sets, and a
// 256-iteration chunk size (small enough to keep cancellation latency
// low, large enough to amortize the per-chunk dispatch overhead).
func NewDriver(orbits *cache.OrbitCache, tables *cache.TableCache, pol policy.Config) *Driver {
	hint := detectVectorHint()
	slog.Debug("cpu feature detection", "vector_hint", string(hint))
	return &Driver{
		Orbits:       orbits,
		Tables:       tables,
		Policy:       pol,
		RowSets:      8,
		ChunkSize:    256,
		Workers:      runtime.NumCPU(),
		RowBatchSize: rowBatchSizeFor(hint),
	}
}

// Render runs a job to completion (or cancellation), calling emit after
// each row-set finishes. emit may be nil.
func (d *Driver) Render(spec JobSpec, emit func(RowSet, *Buffer)) (*Buffer, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	halfExtent := hdr.Min(spec.Width, spec.Height).MulFloat64(0.5)
	precisionBits := d.Policy.PrecisionBits(halfExtent)

	orbitKey := cache.OrbitKey(spec.CenterRe, spec.CenterIm, spec.IterationCap, float64(spec.EscapeRadiusSq))
	orb, err := d.Orbits.GetOrCreate(orbitKey, func() (*orbit.Orbit, error) {
		return orbit.Build(orbit.BuildParams{
			CenterRe:       spec.CenterRe,
			CenterIm:       spec.CenterIm,
			PrecisionBits:  precisionBits,
			IterationCap:   spec.IterationCap,
			EscapeRadiusSq: float64(spec.EscapeRadiusSq),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("render: build reference orbit: %w", err)
	}

	dcMax := policy.DCMax(spec.Width, spec.Height)
	eps := d.Policy.BLAEpsilon(false)
	tableKey := cache.TableKey(orbitKey, dcMax, eps)
	table, err := d.Tables.GetOrCreate(tableKey, func() (*bla.Table, error) {
		return bla.Build(orb, bla.Params{DCMax: dcMax, Eps: eps, IterationCap: spec.IterationCap}), nil
	})
	if err != nil {
		return nil, fmt.Errorf("render: build BLA table: %w", err)
	}

	buf := NewBuffer(spec.ImageWidthPx, spec.ImageHeightPx)
	ctx := spec.cancelCtx()

	rowSetCount := d.RowSets
	if rowSetCount == 0 {
		rowSetCount = 1
	}

	for rs := uint32(0); rs < rowSetCount; rs++ {
		if err := ctx.Err(); err != nil {
			return buf, ErrCancelled
		}

		rows := rowsInSet(spec.ImageHeightPx, rowSetCount, rs)
		if len(rows) == 0 {
			continue
		}

		states := make([]kernel.PixelState, len(rows)*int(spec.ImageWidthPx))
		deltaCs := precomputeDeltaC(spec, rows)

		cancelled, err := d.runRowSet(ctx, orb, table, spec, states, deltaCs, rows)
		if err != nil {
			return buf, err
		}
		if cancelled {
			// Rows in this set stopped mid-chunk: their PixelState is
			// neither escaped nor at the iteration cap, so it is not a
			// final result and must not be written into buf or marked
			// Done (spec.md §5 "in-flight pixels are discarded"). Only
			// row-sets that ran every chunk to completion get published.
			return buf, ErrCancelled
		}

		writeRowSet(buf, spec.ImageWidthPx, rows, states)

		if emit != nil {
			emit(RowSet{Index: int(rs), Rows: rows}, buf)
		}
	}

	return buf, nil
}

// rowsInSet returns the rows belonging to row-set rs out of rowSetCount.
func rowsInSet(height, rowSetCount, rs uint32) []uint32 {
	var rows []uint32
	for r := rs; r < height; r += rowSetCount {
		rows = append(rows, r)
	}
	return rows
}

// precomputeDeltaC computes each pixel's δc (offset from viewport
// center) once per row-set, in HDRFloat, preserving range at any zoom.
func precomputeDeltaC(spec JobSpec, rows []uint32) []cplx.Complex[hdr.HDR] {
	w, h := float64(spec.ImageWidthPx), float64(spec.ImageHeightPx)
	out := make([]cplx.Complex[hdr.HDR], len(rows)*int(spec.ImageWidthPx))
	for ri, y := range rows {
		fracY := (float64(y)+0.5)/h - 0.5
		dcIm := spec.Height.MulFloat64(fracY)
		base := ri * int(spec.ImageWidthPx)
		for x := uint32(0); x < spec.ImageWidthPx; x++ {
			fracX := (float64(x)+0.5)/w - 0.5
			dcRe := spec.Width.MulFloat64(fracX)
			out[base+int(x)] = cplx.Complex[hdr.HDR]{Re: dcRe, Im: dcIm}
		}
	}
	return out
}

// runRowSet advances every pixel in rows through iteration chunks until
// the iteration cap is reached or the cancel token fires, using a
// worker pool over rows per chunk (the teacher corpus's channel-of-rows
// + sync.WaitGroup pattern).
func (d *Driver) runRowSet(
	ctx context.Context,
	orb *orbit.Orbit,
	table *bla.Table,
	spec JobSpec,
	states []kernel.PixelState,
	deltaCs []cplx.Complex[hdr.HDR],
	rows []uint32,
) (cancelled bool, err error) {
	workers := d.Workers
	if workers <= 0 {
		workers = 1
	}
	batchSize := d.RowBatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	width := int(spec.ImageWidthPx)

	for chunkStart := uint32(0); chunkStart < spec.IterationCap; chunkStart += d.ChunkSize {
		if err := ctx.Err(); err != nil {
			return true, nil
		}

		chunkEnd := chunkStart + d.ChunkSize
		if chunkEnd > spec.IterationCap {
			chunkEnd = spec.IterationCap
		}

		batches := batchRowIndices(len(rows), batchSize)
		batchIdx := make(chan []int, len(batches))
		for _, b := range batches {
			batchIdx <- b
		}
		close(batchIdx)

		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for batch := range batchIdx {
					for _, ri := range batch {
						base := ri * width
						for x := 0; x < width; x++ {
							idx := base + x
							kernel.Step(&states[idx], orb, table, kernel.Params{
								DeltaC:       deltaCs[idx],
								TauSq:        float64(spec.TauSq),
								EscapeRSq:    float64(spec.EscapeRadiusSq),
								EpsGuard:     kernel.DefaultEpsGuard,
								ChunkEnd:     chunkEnd,
								IterationCap: spec.IterationCap,
								BLAEnabled:   spec.BLAEnabled,
							})
						}
					}
				}
			}()
		}
		wg.Wait()
	}

	return false, nil
}

// batchRowIndices groups [0, n) into contiguous batches of at most
// batchSize row indices, for a worker to claim as one channel receive.
func batchRowIndices(n, batchSize int) [][]int {
	var batches [][]int
	for start := 0; start < n; start += batchSize {
		end := start + batchSize
		if end > n {
			end = n
		}
		batch := make([]int, end-start)
		for i := range batch {
			batch[i] = start + i
		}
		batches = append(batches, batch)
	}
	return batches
}

// writeRowSet copies final per-pixel state into the shared buffer.
func writeRowSet(buf *Buffer, width uint32, rows []uint32, states []kernel.PixelState) {
	w := int(width)
	for ri, y := range rows {
		base := ri * w
		for x := 0; x < w; x++ {
			buf.Set(uint32(x), y, states[base+x].ToRecord())
		}
		buf.Done[y] = true
	}
}
