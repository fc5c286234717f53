package retrieve

import (
	"testing"
	"time"

	"github.com/intelligencedev/clinical-core/internal/model"
)

func TestRerank_LeavesBeyondWindowUntouched(t *testing.T) {
	sq := model.StructuredQuery{Intent: model.IntentRetrieveNotes, OriginalQuery: "note"}
	now := time.Now().UTC()

	candidates := make([]model.RetrievalCandidate, 25)
	for i := range candidates {
		score := 1.0 - float64(i)*0.01
		candidates[i] = model.RetrievalCandidate{
			Chunk:         model.Chunk{ChunkID: string(rune('a' + i)), ArtifactType: model.ArtifactNote, OccurredAt: now, Content: "note content"},
			Score:         score,
			OriginalScore: &score,
		}
	}

	out := Rerank(candidates, sq)
	if len(out) != 25 {
		t.Fatalf("expected all 25 candidates preserved, got %d", len(out))
	}
	// Beyond the top-20 window, score must be unchanged.
	for i := 20; i < 25; i++ {
		if out[i].Score != candidates[i].Score {
			t.Fatalf("expected candidate %d untouched beyond window", i)
		}
	}
}

func TestRerank_TypeMatchBonusAppliesWithinWindow(t *testing.T) {
	sq := model.StructuredQuery{Intent: model.IntentRetrieveMedications, OriginalQuery: ""}
	now := time.Now().UTC()
	candidates := []model.RetrievalCandidate{
		{Chunk: model.Chunk{ChunkID: "a", ArtifactType: model.ArtifactNote, OccurredAt: now}, Score: 0.5, OriginalScore: floatPtr(0.5)},
		{Chunk: model.Chunk{ChunkID: "b", ArtifactType: model.ArtifactMedication, OccurredAt: now}, Score: 0.5, OriginalScore: floatPtr(0.5)},
	}
	out := Rerank(candidates, sq)
	if out[0].Chunk.ArtifactType != model.ArtifactMedication {
		t.Fatalf("expected medication chunk to rank first on tie due to type-match bonus, got %+v", out[0])
	}
}

func floatPtr(f float64) *float64 { return &f }
