package server

import (
	"image"

	"github.com/cwbudde/mandelcore/internal/render"
)

// previewImage delegates to the shared grayscale preview renderer so the
// CLI's one-shot render command and the HTTP preview route stay in sync.
func previewImage(buf *render.Buffer, iterationCap uint32) *image.Gray {
	return render.PreviewImage(buf, iterationCap)
}
