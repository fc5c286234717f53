package citation

import (
	"testing"

	"github.com/intelligencedev/clinical-core/internal/model"
)

func chunk() model.RetrievalCandidate {
	return model.RetrievalCandidate{
		Chunk: model.Chunk{
			ChunkID:    "c1",
			ArtifactID: "a1",
			Content:    "Patient takes Metformin 500mg twice daily.",
		},
	}
}

func TestValidate_ExactMatchKept(t *testing.T) {
	e := model.Extraction{
		Provenance: model.Provenance{
			ArtifactID:     "a1",
			ChunkID:        "c1",
			CharOffsets:    model.CharOffsets{Start: 14, End: 29},
			SupportingText: "Metformin 500mg",
		},
	}
	res := Validate([]model.Extraction{e}, []model.RetrievalCandidate{chunk()})
	if len(res.Valid) != 1 || res.AnyFatal() {
		t.Fatalf("expected exact match to be kept without errors, got %+v", res)
	}
}

func TestValidate_MissingProvenanceDropped(t *testing.T) {
	e := model.Extraction{}
	res := Validate([]model.Extraction{e}, []model.RetrievalCandidate{chunk()})
	if len(res.Valid) != 0 || !res.AnyFatal() {
		t.Fatalf("expected missing provenance to be dropped as an error, got %+v", res)
	}
}

func TestValidate_WhitespaceMismatchKeptAsWarning(t *testing.T) {
	e := model.Extraction{
		Provenance: model.Provenance{
			ArtifactID:     "a1",
			ChunkID:        "c1",
			CharOffsets:    model.CharOffsets{Start: 14, End: 30},
			SupportingText: "Metformin 500mg",
		},
	}
	res := Validate([]model.Extraction{e}, []model.RetrievalCandidate{chunk()})
	if len(res.Valid) != 1 {
		t.Fatalf("expected whitespace mismatch kept, got %+v", res)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Kind != IssueWhitespaceMismatch {
		t.Fatalf("expected a whitespace_mismatch warning, got %+v", res.Warnings)
	}
}

func TestValidate_InvalidOffsetsDropped(t *testing.T) {
	e := model.Extraction{
		Provenance: model.Provenance{
			ArtifactID:     "a1",
			ChunkID:        "c1",
			CharOffsets:    model.CharOffsets{Start: 100, End: 200},
			SupportingText: "anything",
		},
	}
	res := Validate([]model.Extraction{e}, []model.RetrievalCandidate{chunk()})
	if len(res.Valid) != 0 || res.Errors[0].Kind != IssueInvalidOffsets {
		t.Fatalf("expected invalid_offsets error, got %+v", res)
	}
}
