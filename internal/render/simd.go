package render

import (
	"golang.org/x/sys/cpu"
)

// vectorHint names the widest SIMD tier detected on this CPU, the way
// the teacher's SSD/SAD kernels detect AVX2/NEON at init() time. The
// delta recurrence in internal/kernel stays on double-double HDRFloat
// arithmetic regardless of what's detected here — there is no safe
// hand-written SIMD double-double kernel to dispatch to — so the hint
// only changes the row-worker batching shape, via rowBatchSizeFor.
type vectorHint string

const (
	vectorHintAVX2   vectorHint = "AVX2"
	vectorHintNEON   vectorHint = "NEON"
	vectorHintScalar vectorHint = "scalar"
)

func detectVectorHint() vectorHint {
	switch {
	case cpu.X86.HasAVX2:
		return vectorHintAVX2
	case cpu.ARM64.HasASIMD:
		return vectorHintNEON
	default:
		return vectorHintScalar
	}
}

// rowBatchSize picks how many rows a worker claims per channel receive
// in runRowSet's dispatch loop. This is the one place vectorHint
// actually changes behavior rather than just being logged: a wider
// detected tier claims rows in larger batches, amortizing channel
// overhead across more per-pixel work before the next receive, the
// same "fewer, larger units of dispatch" shape the teacher's AVX2/NEON
// split gives its cost kernel — expressed here as plain Go loop
// structure rather than as actual vector instructions.
func rowBatchSizeFor(hint vectorHint) int {
	switch hint {
	case vectorHintAVX2:
		return 8
	case vectorHintNEON:
		return 4
	default:
		return 1
	}
}
