package retrieve

import (
	"testing"
	"time"

	"github.com/intelligencedev/clinical-core/internal/model"
)

func TestApplyTimeDecay_FutureDateClampedToZeroDays(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	future := now.AddDate(0, 0, 5)
	candidates := []model.RetrievalCandidate{
		{Chunk: model.Chunk{ChunkID: "1", OccurredAt: future}, Score: 1.0},
	}
	out := ApplyTimeDecay(candidates, now.Unix())
	if out[0].DaysAgo != 0 || out[0].TimeDecayFactor != 1 || out[0].Score != 1.0 {
		t.Fatalf("expected future-dated chunk to count as 0 days ago with no decay, got %+v", out[0])
	}
}

func TestApplyTimeDecay_OlderDecaysMore(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := now.AddDate(0, 0, -1)
	old := now.AddDate(0, 0, -100)
	candidates := []model.RetrievalCandidate{
		{Chunk: model.Chunk{ChunkID: "old", OccurredAt: old}, Score: 1.0},
		{Chunk: model.Chunk{ChunkID: "recent", OccurredAt: recent}, Score: 1.0},
	}
	out := ApplyTimeDecay(candidates, now.Unix())
	if out[0].Chunk.ChunkID != "recent" {
		t.Fatalf("expected recent chunk to rank first after decay, got %+v", out[0])
	}
}
