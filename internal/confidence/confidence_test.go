package confidence

import (
	"testing"
	"time"

	"github.com/intelligencedev/clinical-core/internal/model"
)

func TestScore_FullCoverageHighScoreDiverse(t *testing.T) {
	c := Score(2, 2, []float64{0.9, 0.95}, []string{"a1", "a2", "a3", "a4", "a5"})
	if c.Label != model.ConfidenceHigh {
		t.Fatalf("expected high confidence, got %+v", c)
	}
}

func TestScore_NoValidatedExtractionsIsLow(t *testing.T) {
	c := Score(3, 0, nil, nil)
	if c.Label != model.ConfidenceLow {
		t.Fatalf("expected low confidence, got %+v", c)
	}
}

func TestFormatDate_RelativeWithinWeek(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	if got := FormatDate(now.Add(-30*time.Second), now); got != "just now" {
		t.Fatalf("expected just now, got %q", got)
	}
	if got := FormatDate(now.Add(-10*time.Minute), now); got != "10 minutes ago" {
		t.Fatalf("expected 10 minutes ago, got %q", got)
	}
	if got := FormatDate(now.AddDate(0, 0, -1), now); got != "yesterday" {
		t.Fatalf("expected yesterday, got %q", got)
	}
}

func TestFormatDate_AbsoluteBeyondWeek(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	got := FormatDate(now.AddDate(0, -1, 0), now)
	if got != "June 30, 2026" {
		t.Fatalf("expected absolute date, got %q", got)
	}
}

func TestDedup_RemovesDuplicates(t *testing.T) {
	entries := []model.ProvenanceEntry{
		{ArtifactID: "a1", Snippet: "x"},
		{ArtifactID: "a1", Snippet: "x"},
		{ArtifactID: "a1", Snippet: "y"},
	}
	out := Dedup(entries)
	if len(out) != 2 {
		t.Fatalf("expected 2 distinct entries, got %d", len(out))
	}
}
