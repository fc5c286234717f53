package chunker

import (
	"strings"
	"testing"

	"github.com/intelligencedev/clinical-core/internal/model"
)

func genSentences(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString("The patient reports doing well today. ")
	}
	return strings.TrimSpace(b.String())
}

func TestChunk_OffsetsValidAndMonotonic(t *testing.T) {
	a := model.Artifact{ArtifactID: "a1", Content: genSentences(200)}
	chunks := Chunker{}.Chunk(a)
	if len(chunks) == 0 {
		t.Fatalf("expected at least one chunk")
	}
	prevStart := -1
	for _, c := range chunks {
		if !c.CharOffsets.Valid(len(a.Content)) {
			t.Fatalf("invalid offsets %+v for content len %d", c.CharOffsets, len(a.Content))
		}
		// Chunks may overlap, but each must start after the previous one.
		if c.CharOffsets.Start <= prevStart {
			t.Fatalf("chunk start %d does not advance past previous start %d", c.CharOffsets.Start, prevStart)
		}
		prevStart = c.CharOffsets.Start
		if a.Content[c.CharOffsets.Start:c.CharOffsets.End] == "" {
			t.Fatalf("chunk content slice empty")
		}
	}
	if chunks[len(chunks)-1].CharOffsets.End != len(a.Content) {
		t.Fatalf("last chunk should reach end of content")
	}
}

func TestChunk_SingleShortArtifactProducesOneChunk(t *testing.T) {
	a := model.Artifact{ArtifactID: "a1", Content: "Short note."}
	chunks := Chunker{}.Chunk(a)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk for short content, got %d", len(chunks))
	}
}

func TestChunk_EmptyContentProducesNoChunks(t *testing.T) {
	a := model.Artifact{ArtifactID: "a1", Content: "   "}
	if chunks := (Chunker{}).Chunk(a); len(chunks) != 0 {
		t.Fatalf("expected 0 chunks for empty content, got %d", len(chunks))
	}
}
