package breaker

import (
	"errors"
	"testing"

	"github.com/intelligencedev/clinical-core/internal/apperr"
)

func TestCall_PassesThroughSuccess(t *testing.T) {
	r := NewRegistry()
	v, err := Call(r, Embedder, func() (int, error) { return 42, nil })
	if err != nil || v != 42 {
		t.Fatalf("expected 42, nil, got %d, %v", v, err)
	}
}

func TestCall_OpensAfterThreshold(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")

	for i := 0; i < failureThreshold; i++ {
		_, _ = Call(r, Generator, func() (int, error) { return 0, boom })
	}

	_, err := Call(r, Generator, func() (int, error) { return 1, nil })
	if err == nil {
		t.Fatalf("expected circuit_open error after threshold failures")
	}
	if !apperr.Is(err, apperr.KindCircuitOpen) {
		t.Fatalf("expected circuit_open kind, got %v", apperr.KindOf(err))
	}
}

func TestCall_IndependentPerName(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")
	for i := 0; i < failureThreshold; i++ {
		_, _ = Call(r, VectorIndex, func() (int, error) { return 0, boom })
	}
	// metadata_store breaker is unaffected by vector_index's failures.
	v, err := Call(r, MetadataStore, func() (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Fatalf("expected independent breaker to remain closed, got %d, %v", v, err)
	}
}
