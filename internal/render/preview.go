package render

import (
	"image"
	"image/color"

	"github.com/cwbudde/mandelcore/internal/kernel"
)

// PreviewImage renders a grayscale debug preview of buf: escaped pixels
// get a ramp proportional to iteration count (bright = escaped early,
// dark = escaped late), pixels still in the set (or not yet computed)
// render black. This is a debugging aid, not a color-mapping feature —
// spec.md leaves color schemes to the caller.
func PreviewImage(buf *Buffer, iterationCap uint32) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, int(buf.Width), int(buf.Height)))
	for y := uint32(0); y < buf.Height; y++ {
		for x := uint32(0); x < buf.Width; x++ {
			rec := buf.At(x, y)
			var v uint8
			if rec.Flags&kernel.FlagEscaped != 0 && iterationCap > 0 {
				frac := float64(rec.Iterations) / float64(iterationCap)
				if frac > 1 {
					frac = 1
				}
				v = uint8(255 * (1 - frac))
			}
			img.SetGray(int(x), int(y), color.Gray{Y: v})
		}
	}
	return img
}
