package apperr

import (
	"fmt"
	"testing"
)

func TestKindOf_RecoversWrappedKind(t *testing.T) {
	base := New(KindVectorIndexUnavailable, "qdrant down")
	wrapped := fmt.Errorf("search failed: %w", base)

	if got := KindOf(wrapped); got != KindVectorIndexUnavailable {
		t.Fatalf("expected %q, got %q", KindVectorIndexUnavailable, got)
	}
}

func TestKindOf_DefaultsToInternal(t *testing.T) {
	if got := KindOf(fmt.Errorf("plain error")); got != KindInternal {
		t.Fatalf("expected internal, got %q", got)
	}
}

func TestIs(t *testing.T) {
	err := Wrap(KindCircuitOpen, "embedder breaker open", nil)
	if !Is(err, KindCircuitOpen) {
		t.Fatalf("expected Is to match circuit_open")
	}
	if Is(err, KindInternal) {
		t.Fatalf("did not expect internal match")
	}
}
