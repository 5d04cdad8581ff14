package cache

import (
	"fmt"

	"github.com/cwbudde/mandelcore/internal/numeric/hdr"
)

// OrbitKey builds the reference-orbit fingerprint spec.md §4.7 names:
// (C_decimal_string, iteration_cap, R²). centerRe/centerIm are the exact
// decimal strings the job submitted, not a re-rendering of a parsed
// value, so two jobs naming the same center text always collide.
func OrbitKey(centerRe, centerIm string, iterationCap uint32, escapeRadiusSq float64) string {
	return fmt.Sprintf("orbit:%s:%s:%d:%x", centerRe, centerIm, iterationCap, escapeRadiusSq)
}

// TableKey builds the BLA-table fingerprint: the owning orbit's key plus
// (dc_max, ε).
func TableKey(orbitKey string, dcMax hdr.HDR, eps float64) string {
	return fmt.Sprintf("table:%s:%s:%x", orbitKey, dcMax.Fingerprint(), eps)
}
