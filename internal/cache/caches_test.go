package cache

import (
	"errors"
	"sync"
	"testing"

	"github.com/intelligencedev/clinical-core/internal/model"
)

func TestEmbeddingCache_NormalizesKey(t *testing.T) {
	c := NewEmbeddingCache()
	c.Set("  Metformin Dose  ", model.Embedding{ChunkID: "c1", Vector: []float32{0.1}})

	v, ok := c.Get("metformin dose")
	if !ok || v.ChunkID != "c1" {
		t.Fatalf("expected normalized-key hit, got %+v ok=%v", v, ok)
	}
}

func TestQueryResultCache_FilterOrderIndependent(t *testing.T) {
	c := NewQueryResultCache()
	f1 := model.QueryFilters{ArtifactTypes: []model.ArtifactType{"lab_result", "medication_order"}}
	f2 := model.QueryFilters{ArtifactTypes: []model.ArtifactType{"medication_order", "lab_result"}}

	c.Set("what meds", "p1", f1, []model.RetrievalCandidate{{Chunk: model.Chunk{ChunkID: "x"}}})

	if _, ok := c.Get("what meds", "p1", f2); !ok {
		t.Fatalf("expected identical filters in different order to hit the same cache entry")
	}
}

func TestPatientIndexCache_GetOrBuild_CollapsesConcurrentBuilds(t *testing.T) {
	c := NewPatientIndexCache()
	var calls int32
	var mu sync.Mutex

	build := func() (PatientIndex, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return PatientIndex{ChunkIDs: []string{"c1", "c2"}}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.GetOrBuild("p1", build); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if calls != 1 {
		t.Fatalf("expected exactly one build call, got %d", calls)
	}
}

func TestPatientIndexCache_GetOrBuild_PropagatesError(t *testing.T) {
	c := NewPatientIndexCache()
	_, err := c.GetOrBuild("p1", func() (PatientIndex, error) {
		return PatientIndex{}, errors.New("boom")
	})
	if err == nil {
		t.Fatalf("expected error to propagate")
	}
	if _, ok := c.Get("p1"); ok {
		t.Fatalf("expected failed build not to populate cache")
	}
}
