package retrieve

import (
	"testing"
	"time"

	"github.com/intelligencedev/clinical-core/internal/model"
)

func TestScore_AffinityFavorsMatchingType(t *testing.T) {
	sq := model.StructuredQuery{Intent: model.IntentRetrieveMedications, OriginalQuery: "metformin"}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	med := HybridResult{Chunk: model.Chunk{ArtifactType: model.ArtifactMedication, OccurredAt: now, Content: "metformin"}, CombinedScore: 0.5}
	note := HybridResult{Chunk: model.Chunk{ArtifactType: model.ArtifactNote, OccurredAt: now, Content: "metformin"}, CombinedScore: 0.5}

	if Score(med, sq, now.Unix()) <= Score(note, sq, now.Unix()) {
		t.Fatalf("expected medication chunk to score higher for RETRIEVE_MEDICATIONS intent")
	}
}

func TestRecencyBoost_FutureDateClampedToZeroDays(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	future := now.AddDate(0, 0, 10)
	if got := recencyBoost(future.Unix(), now.Unix()); got != 1.0 {
		t.Fatalf("expected boost 1.0 for non-past date clamped to 0 days, got %v", got)
	}
}

func TestEntityCoverage_EmptyEntitiesIsZero(t *testing.T) {
	if got := entityCoverage("some content", nil); got != 0 {
		t.Fatalf("expected 0 coverage for no entities, got %v", got)
	}
}
