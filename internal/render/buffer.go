package render

import "github.com/cwbudde/mandelcore/internal/kernel"

// Buffer is the dense per-pixel result-stream buffer spec.md §6
// describes, aligned row-major, width*height entries.
type Buffer struct {
	Width, Height uint32
	Records       []kernel.Record

	// Done marks which rows have been fully computed and written;
	// useful for a caller inspecting a partially-cancelled render
	// (spec.md §7 "Cancelled").
	Done []bool
}

// NewBuffer allocates a zeroed buffer for a width x height image.
func NewBuffer(width, height uint32) *Buffer {
	return &Buffer{
		Width:   width,
		Height:  height,
		Records: make([]kernel.Record, int(width)*int(height)),
		Done:    make([]bool, height),
	}
}

// At returns the record for pixel (x, y).
func (b *Buffer) At(x, y uint32) kernel.Record {
	return b.Records[int(y)*int(b.Width)+int(x)]
}

// Set stores the record for pixel (x, y).
func (b *Buffer) Set(x, y uint32, r kernel.Record) {
	b.Records[int(y)*int(b.Width)+int(x)] = r
}

// RowSet describes one emission: the rows newly completed by this
// row-set's render pass, for a caller building a progressive display.
type RowSet struct {
	Index int
	Rows  []uint32
}
