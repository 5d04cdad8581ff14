//go:build !gpu

package gpu

import "fmt"

// newOpenCLRenderer is the non-GPU build's stand-in: the OpenCL compute
// path exists only behind the gpu build tag, matching the teacher's
// renderer_opencl_stub.go stance for an unavailable GPU backend.
func newOpenCLRenderer() (Renderer, func(), error) {
	return nil, noopCleanup, fmt.Errorf("%w: build without gpu tag", ErrBackendUnavailable)
}
