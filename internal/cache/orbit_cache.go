package cache

import (
	"unsafe"

	"github.com/cwbudde/mandelcore/internal/orbit"
)

var orbitPointSize = int64(unsafe.Sizeof(orbit.Point{}))

// OrbitCache caches built reference orbits by fingerprint.
type OrbitCache struct {
	*Cache[*orbit.Orbit]
}

// NewOrbitCache returns an orbit cache with the given byte budget.
func NewOrbitCache(maxBytes int64) *OrbitCache {
	return &OrbitCache{Cache: New(maxBytes, orbitCost)}
}

func orbitCost(o *orbit.Orbit) int64 {
	if o == nil {
		return 0
	}
	return int64(len(o.Points)) * orbitPointSize
}
