package cache

import (
	"unsafe"

	"github.com/cwbudde/mandelcore/internal/bla"
)

var tableEntrySize = int64(unsafe.Sizeof(bla.Entry{}))

// TableCache caches built BLA tables by fingerprint.
type TableCache struct {
	*Cache[*bla.Table]
}

// NewTableCache returns a BLA-table cache with the given byte budget.
func NewTableCache(maxBytes int64) *TableCache {
	return &TableCache{Cache: New(maxBytes, tableCost)}
}

func tableCost(t *bla.Table) int64 {
	if t == nil {
		return 0
	}
	return int64(t.EntryCount()) * tableEntrySize
}
