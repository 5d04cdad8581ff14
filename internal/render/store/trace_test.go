package store

import (
	"bufio"
	"encoding/json"
	"os"
	"testing"

	"github.com/cwbudde/mandelcore/internal/kernel"
	"github.com/cwbudde/mandelcore/internal/render"
)

func TestSummarizeComputesGlitchRateAndHistogram(t *testing.T) {
	buf := render.NewBuffer(4, 1)
	buf.Set(0, 0, kernel.Record{Iterations: 10})
	buf.Set(1, 0, kernel.Record{Iterations: 60, Flags: kernel.FlagGlitched})
	buf.Set(2, 0, kernel.Record{Iterations: 65})
	buf.Set(3, 0, kernel.Record{Iterations: 200, Flags: kernel.FlagEscaped})

	entry := Summarize(0, []uint32{0}, buf)

	if entry.PixelsDone != 4 {
		t.Fatalf("want 4 pixels done, got %d", entry.PixelsDone)
	}
	if entry.Glitched != 1 {
		t.Fatalf("want 1 glitched pixel, got %d", entry.Glitched)
	}
	if entry.Escaped != 1 {
		t.Fatalf("want 1 escaped pixel, got %d", entry.Escaped)
	}
	if entry.GlitchRate != 0.25 {
		t.Fatalf("want glitch rate 0.25, got %f", entry.GlitchRate)
	}
	if entry.Histogram[0] != 1 || entry.Histogram[50] != 2 || entry.Histogram[200] != 1 {
		t.Fatalf("unexpected histogram: %+v", entry.Histogram)
	}
}

func TestTraceWriterProducesValidJSONLines(t *testing.T) {
	dir := t.TempDir()
	tw, err := NewTraceWriter(dir, "job-1")
	if err != nil {
		t.Fatalf("new trace writer: %v", err)
	}

	if err := tw.Write(TraceEntry{RowSetIndex: 0, PixelsDone: 16}); err != nil {
		t.Fatalf("write entry 1: %v", err)
	}
	if err := tw.Write(TraceEntry{RowSetIndex: 1, PixelsDone: 16}); err != nil {
		t.Fatalf("write entry 2: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(tw.Path())
	if err != nil {
		t.Fatalf("open trace file: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lines := 0
	for scanner.Scan() {
		var entry TraceEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("line %d: invalid JSON: %v", lines, err)
		}
		if entry.RowSetIndex != lines {
			t.Fatalf("line %d: want rowSetIndex=%d, got %d", lines, lines, entry.RowSetIndex)
		}
		lines++
	}
	if lines != 2 {
		t.Fatalf("want 2 trace lines, got %d", lines)
	}
}
