// Package render implements the progressive driver (spec.md §4.6): it
// partitions a render job into interleaved row-sets, advances each
// row-set's pixels through the perturbation kernel in iteration chunks,
// and emits result buffers as rows complete.
package render

import (
	"context"
	"errors"
	"fmt"

	"github.com/cwbudde/mandelcore/internal/numeric/hdr"
)

// JobSpec is the caller-facing render job (spec.md §6 job submission).
// Immutable once submitted.
type JobSpec struct {
	CenterRe, CenterIm string // decimal strings, grammar: [-]digits[.digits][eE[-]digits]

	Width, Height hdr.HDR

	ImageWidthPx, ImageHeightPx uint32

	IterationCap   uint32
	EscapeRadiusSq float32
	TauSq          float32
	BLAEnabled     bool

	// Cancel is consulted between chunks and between row-sets
	// (spec.md §5). A nil context is treated as context.Background().
	Cancel context.Context
}

// ErrInvalidJob reports a synchronously-rejected job (spec.md §7):
// non-positive extent, zero image, or a zero iteration cap.
var ErrInvalidJob = errors.New("render: invalid job")

// ErrCancelled reports a job that was cancelled mid-render (spec.md §7).
// Partial results already written into the returned Buffer remain valid.
var ErrCancelled = errors.New("render: cancelled")

// Validate checks the synchronous-rejection conditions spec.md §7 names.
func (s JobSpec) Validate() error {
	if s.Width.IsZero() || s.Width.Sign() <= 0 {
		return fmt.Errorf("%w: width must be positive", ErrInvalidJob)
	}
	if s.Height.IsZero() || s.Height.Sign() <= 0 {
		return fmt.Errorf("%w: height must be positive", ErrInvalidJob)
	}
	if s.ImageWidthPx == 0 || s.ImageHeightPx == 0 {
		return fmt.Errorf("%w: image dimensions must be nonzero", ErrInvalidJob)
	}
	if s.IterationCap == 0 {
		return fmt.Errorf("%w: iteration_cap must be nonzero", ErrInvalidJob)
	}
	return nil
}

// cancelCtx returns a non-nil context for internal use.
func (s JobSpec) cancelCtx() context.Context {
	if s.Cancel != nil {
		return s.Cancel
	}
	return context.Background()
}
