package bla

import (
	"log/slog"

	"github.com/cwbudde/mandelcore/internal/numeric/hdr"
	"github.com/cwbudde/mandelcore/internal/orbit"
)

// Table is the flat, leveled BLA tree spec.md §4.4 describes: level 0
// holds one entry per orbit point, each subsequent level holds half as
// many (rounding down) by merging adjacent pairs, forming a perfect
// binary forest — level ℓ entry i always starts at reference index
// i*2^ℓ, since every merge combines two equal-L adjacent entries.
type Table struct {
	// entries is all levels concatenated; offsets[l] is the index of
	// level l's first entry, offsets[len(offsets)-1] == len(entries).
	entries []Entry
	offsets []int

	DCMax hdr.HDR
}

// Params bundles the BLA build inputs named in spec.md §4.4.
type Params struct {
	DCMax hdr.HDR
	Eps   float64
	// IterationCap bounds how deep the tree needs to go: once a level's
	// entries skip more than this many iterations, no pixel can ever use
	// them, so building further levels would be wasted work.
	IterationCap uint32
}

// levelCount returns how many entries level l holds.
func (t *Table) levelCount(l int) int {
	if l+1 >= len(t.offsets) {
		return 0
	}
	return t.offsets[l+1] - t.offsets[l]
}

func (t *Table) level(l int) []Entry {
	if l < 0 || l+1 >= len(t.offsets) {
		return nil
	}
	return t.entries[t.offsets[l]:t.offsets[l+1]]
}

// Level exposes level l's entries, for callers packing a table into a
// flat GPU buffer (internal/gpu) that need per-level slices directly.
func (t *Table) Level(l int) []Entry { return t.level(l) }

// EntryCount reports the total number of entries across all levels, used
// by cache byte-cost accounting.
func (t *Table) EntryCount() int { return len(t.entries) }

// NumLevels reports how many levels the table holds (0 for an empty table).
func (t *Table) NumLevels() int {
	if len(t.offsets) == 0 {
		return 0
	}
	return len(t.offsets) - 1
}

// Build constructs a leveled BLA table from a reference orbit, following
// spec.md §4.4: level 0 from single-step entries, each subsequent level
// from pairwise merges, stopping once a level's skip length would exceed
// the iteration cap or fewer than two entries remain. An empty or
// degenerate orbit yields an empty table.
func Build(o *orbit.Orbit, p Params) *Table {
	t := &Table{DCMax: p.DCMax, offsets: []int{0}}

	if o.Len() == 0 {
		return t
	}

	cur := make([]Entry, 0, o.Len())
	for _, pt := range o.Points {
		cur = append(cur, level0(pt, p.Eps))
	}
	t.entries = append(t.entries, cur...)
	t.offsets = append(t.offsets, len(t.entries))

	for len(cur) >= 2 && cur[0].L*2 <= p.IterationCap {
		next := make([]Entry, 0, len(cur)/2)
		for i := 0; i+1 < len(cur); i += 2 {
			next = append(next, merge(cur[i], cur[i+1], p.DCMax))
		}
		t.entries = append(t.entries, next...)
		t.offsets = append(t.offsets, len(t.entries))
		cur = next
	}

	slog.Debug("bla table built", "levels", t.NumLevels(), "level0_entries", t.levelCount(0))
	return t
}

// Lookup finds the highest-level entry covering reference index m whose
// validity radius satisfies deltaZNormSq < r² and whose skip keeps
// n+L <= iterationCap, per spec.md §4.5 step 6. Levels are tried from
// highest to lowest so the largest available skip is always preferred.
func (t *Table) Lookup(m uint32, deltaZNormSq hdr.HDR, n, iterationCap uint32) (Entry, bool) {
	for l := t.NumLevels() - 1; l >= 0; l-- {
		stride := uint32(1) << uint(l)
		if m%stride != 0 {
			continue
		}
		idx := int(m / stride)
		lvl := t.level(l)
		if idx >= len(lvl) {
			continue
		}
		e := lvl[idx]
		if !e.valid() {
			continue
		}
		if uint64(n)+uint64(e.L) > uint64(iterationCap) {
			continue
		}
		if hdr.CmpAbs(deltaZNormSq, e.R2) < 0 {
			return e, true
		}
	}
	return Entry{}, false
}
