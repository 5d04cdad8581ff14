package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cwbudde/mandelcore/internal/kernel"
	"github.com/cwbudde/mandelcore/internal/render"
)

// TraceEntry summarizes one row-set's worth of results for the
// iteration-histogram/glitch-rate inspection spec.md §8 scenario 4
// names: a smooth histogram and a glitch rate under 1%.
type TraceEntry struct {
	RowSetIndex int       `json:"rowSetIndex"`
	RowsDone    int       `json:"rowsDone"`
	PixelsDone  int       `json:"pixelsDone"`
	Escaped     int       `json:"escaped"`
	Glitched    int       `json:"glitched"`
	GlitchRate  float64   `json:"glitchRate"`
	Timestamp   time.Time `json:"timestamp"`

	// Histogram buckets iteration counts into IterationBucketWidth-wide
	// ranges, keyed by the bucket's lower bound, so adjacent pixels'
	// counts can be checked for smoothness without shipping one entry
	// per pixel.
	Histogram map[uint32]int `json:"histogram"`
}

// IterationBucketWidth is the histogram bucket size TraceEntry uses.
const IterationBucketWidth = 50

// Summarize computes a TraceEntry from the rows newly completed in a
// row-set, given the full buffer they were written into.
func Summarize(rowSetIndex int, rows []uint32, buf *render.Buffer) TraceEntry {
	entry := TraceEntry{
		RowSetIndex: rowSetIndex,
		RowsDone:    len(rows),
		Histogram:   make(map[uint32]int),
	}

	for _, y := range rows {
		for x := uint32(0); x < buf.Width; x++ {
			rec := buf.At(x, y)
			entry.PixelsDone++
			if rec.Flags&kernel.FlagEscaped != 0 {
				entry.Escaped++
			}
			if rec.Flags&kernel.FlagGlitched != 0 {
				entry.Glitched++
			}
			bucket := (rec.Iterations / IterationBucketWidth) * IterationBucketWidth
			entry.Histogram[bucket]++
		}
	}

	if entry.PixelsDone > 0 {
		entry.GlitchRate = float64(entry.Glitched) / float64(entry.PixelsDone)
	}
	return entry
}

// TraceWriter appends TraceEntry values as JSON lines, buffered and
// safe for concurrent use, matching the teacher's trace.jsonl shape.
type TraceWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	path   string
}

// NewTraceWriter creates (or truncates) <baseDir>/jobs/<jobID>/trace.jsonl.
func NewTraceWriter(baseDir, jobID string) (*TraceWriter, error) {
	dir := filepath.Join(baseDir, "jobs", jobID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("store: create job directory: %w", err)
	}

	path := filepath.Join(dir, "trace.jsonl")
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("store: open trace file: %w", err)
	}

	return &TraceWriter{
		file:   file,
		writer: bufio.NewWriterSize(file, 64*1024),
		path:   path,
	}, nil
}

// Write appends one trace entry as a JSON line.
func (tw *TraceWriter) Write(entry TraceEntry) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("store: marshal trace entry: %w", err)
	}
	if _, err := tw.writer.Write(data); err != nil {
		return fmt.Errorf("store: write trace entry: %w", err)
	}
	return tw.writer.WriteByte('\n')
}

// Flush writes buffered data to disk.
func (tw *TraceWriter) Flush() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.writer.Flush()
}

// Close flushes and closes the trace file.
func (tw *TraceWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if err := tw.writer.Flush(); err != nil {
		tw.file.Close()
		return fmt.Errorf("store: flush on close: %w", err)
	}
	return tw.file.Close()
}

// Path returns the trace file's filesystem path.
func (tw *TraceWriter) Path() string { return tw.path }
