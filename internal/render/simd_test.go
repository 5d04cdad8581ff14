package render

import "testing"

func TestDetectVectorHintReturnsKnownTier(t *testing.T) {
	switch detectVectorHint() {
	case vectorHintAVX2, vectorHintNEON, vectorHintScalar:
	default:
		t.Fatalf("unexpected vector hint: %q", detectVectorHint())
	}
}

func TestRowBatchSizeForOrdersByVectorWidth(t *testing.T) {
	if rowBatchSizeFor(vectorHintAVX2) <= rowBatchSizeFor(vectorHintNEON) {
		t.Fatalf("want AVX2 batch size to exceed NEON's")
	}
	if rowBatchSizeFor(vectorHintNEON) <= rowBatchSizeFor(vectorHintScalar) {
		t.Fatalf("want NEON batch size to exceed scalar's")
	}
	if rowBatchSizeFor(vectorHintScalar) != 1 {
		t.Fatalf("want scalar batch size of 1, got %d", rowBatchSizeFor(vectorHintScalar))
	}
}
