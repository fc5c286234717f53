package retrieve

import (
	"strings"
	"testing"

	"github.com/intelligencedev/clinical-core/internal/model"
)

func TestHighlight_ExactMatchWrappedInMark(t *testing.T) {
	sq := model.StructuredQuery{OriginalQuery: "metformin dosage"}
	c := model.RetrievalCandidate{Chunk: model.Chunk{Content: "Patient is taking metformin twice daily for glucose control."}}
	Highlight(&c, sq)
	if !strings.Contains(c.HighlightHTML, `<mark class="exact">metformin</mark>`) {
		t.Fatalf("expected metformin to be marked, got %q", c.HighlightHTML)
	}
	if len(c.TermHighlights) == 0 {
		t.Fatalf("expected at least one term highlight")
	}
}

func TestHighlight_NoMatchesYieldsPlainSnippet(t *testing.T) {
	sq := model.StructuredQuery{OriginalQuery: "xyz"}
	c := model.RetrievalCandidate{Chunk: model.Chunk{Content: "Short content with no matching terms here."}}
	Highlight(&c, sq)
	if c.Snippet == "" {
		t.Fatalf("expected a snippet even with no matches")
	}
}

func TestLevenshtein_KnownDistances(t *testing.T) {
	if levenshtein("metformin", "metformn") != 1 {
		t.Fatalf("expected distance 1 for single deletion")
	}
	if levenshtein("abc", "abc") != 0 {
		t.Fatalf("expected distance 0 for identical strings")
	}
}
