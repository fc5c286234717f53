package normalize

import (
	"testing"

	"github.com/intelligencedev/clinical-core/internal/contracts"
)

func TestNormalize_FiltersByPatientID(t *testing.T) {
	bundle := contracts.PatientRecordBundle{
		PatientID: "P1",
		Medications: []map[string]any{
			{"patient_id": "P1", "id": "med_1", "medication": "Metformin", "occurred_at": "2024-01-01T00:00:00Z"},
			{"patient_id": "P2", "id": "med_2", "medication": "Should be dropped"},
		},
	}
	out := Normalizer{}.Normalize(bundle)
	if len(out) != 1 {
		t.Fatalf("expected 1 artifact after client-side filter, got %d", len(out))
	}
	if out[0].ArtifactID != "med_1" {
		t.Fatalf("expected med_1, got %s", out[0].ArtifactID)
	}
}

func TestNormalize_SynthesizesOccurredAtFromCreatedAt(t *testing.T) {
	bundle := contracts.PatientRecordBundle{
		PatientID: "P1",
		Notes: []map[string]any{
			{"patient_id": "P1", "id": "note_1", "created_at": "2024-02-02T00:00:00Z", "text": "hello"},
		},
	}
	out := Normalizer{}.Normalize(bundle)
	if len(out) != 1 {
		t.Fatalf("expected 1 artifact, got %d", len(out))
	}
	if out[0].OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be synthesized")
	}
}

func TestNormalize_DeterministicContentOrder(t *testing.T) {
	rec := map[string]any{"patient_id": "P1", "id": "n1", "zebra": "z", "alpha": "a"}
	bundle := contracts.PatientRecordBundle{PatientID: "P1", Notes: []map[string]any{rec}}
	a := Normalizer{}.Normalize(bundle)[0]
	b := Normalizer{}.Normalize(bundle)[0]
	if a.Content != b.Content {
		t.Fatalf("flatten is not deterministic: %q vs %q", a.Content, b.Content)
	}
	if !Idempotent(a) {
		t.Fatalf("normalize(normalize(x)) != normalize(x)")
	}
}
