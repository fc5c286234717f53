package indexing

import (
	"context"
	"testing"

	"github.com/intelligencedev/clinical-core/internal/contracts"
	"github.com/intelligencedev/clinical-core/internal/storage/memory"
)

type fakeSource struct {
	bundle contracts.PatientRecordBundle
}

func (f fakeSource) GetAll(ctx context.Context, patientID string) (contracts.PatientRecordBundle, error) {
	return f.bundle, nil
}

func TestIndexPatient_EmbedsAndStoresAllChunks(t *testing.T) {
	bundle := contracts.PatientRecordBundle{
		PatientID: "patient-1",
		Medications: []map[string]any{
			{"patient_id": "patient-1", "id": "med-1", "name": "lisinopril", "dose": "10mg", "occurred_at": "2024-01-01T00:00:00Z"},
		},
		Notes: []map[string]any{
			{"patient_id": "patient-1", "id": "note-1", "text": "Patient reports feeling well overall today. No new complaints noted during the visit.", "occurred_at": "2024-01-02T00:00:00Z"},
		},
		CarePlans: []map[string]any{
			{"patient_id": "patient-1", "id": "cp-1", "goal": "Improve glycemic control within three months.", "occurred_at": "2024-01-03T00:00:00Z"},
		},
	}

	store := memory.NewMetadataStore()
	vec := memory.NewVectorIndex(64)
	embedder := memory.NewEmbedder(64)

	deps := Deps{
		Source:       fakeSource{bundle: bundle},
		Embedder:     embedder,
		Vector:       vec,
		Store:        store,
		MaxBatchSize: 4,
	}

	result, err := IndexPatient(context.Background(), deps, "patient-1")
	if err != nil {
		t.Fatalf("IndexPatient: %v", err)
	}
	if result.IndexedChunks == 0 {
		t.Fatalf("expected at least one indexed chunk")
	}

	ids, err := store.FilterChunks(context.Background(), contracts.MetadataFilterCriteria{PatientID: "patient-1"})
	if err != nil {
		t.Fatalf("FilterChunks: %v", err)
	}
	if len(ids) != result.IndexedChunks {
		t.Fatalf("expected %d stored chunks, got %d", result.IndexedChunks, len(ids))
	}

	hits, err := vec.Search(context.Background(), make([]float32, 64), ids, len(ids))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != len(ids) {
		t.Fatalf("expected every chunk to be vector-indexed, got %d of %d", len(hits), len(ids))
	}
}

func TestIndexPatient_NoArtifactsYieldsZeroChunks(t *testing.T) {
	store := memory.NewMetadataStore()
	vec := memory.NewVectorIndex(64)
	embedder := memory.NewEmbedder(64)

	deps := Deps{
		Source:   fakeSource{bundle: contracts.PatientRecordBundle{PatientID: "patient-empty"}},
		Embedder: embedder,
		Vector:   vec,
		Store:    store,
	}

	result, err := IndexPatient(context.Background(), deps, "patient-empty")
	if err != nil {
		t.Fatalf("IndexPatient: %v", err)
	}
	if result.IndexedChunks != 0 {
		t.Fatalf("expected zero chunks for an empty bundle, got %d", result.IndexedChunks)
	}
}

func TestDeletePatient_ClearsStoreAndVectorIndex(t *testing.T) {
	store := memory.NewMetadataStore()
	vec := memory.NewVectorIndex(64)
	embedder := memory.NewEmbedder(64)

	bundle := contracts.PatientRecordBundle{
		PatientID: "patient-2",
		Notes: []map[string]any{
			{"patient_id": "patient-2", "id": "note-2", "text": "Routine follow-up visit with no acute concerns raised by the patient.", "occurred_at": "2024-02-01T00:00:00Z"},
		},
	}
	deps := Deps{Source: fakeSource{bundle: bundle}, Embedder: embedder, Vector: vec, Store: store}

	if _, err := IndexPatient(context.Background(), deps, "patient-2"); err != nil {
		t.Fatalf("IndexPatient: %v", err)
	}
	if err := DeletePatient(context.Background(), deps, "patient-2"); err != nil {
		t.Fatalf("DeletePatient: %v", err)
	}

	ids, err := store.FilterChunks(context.Background(), contracts.MetadataFilterCriteria{PatientID: "patient-2"})
	if err != nil {
		t.Fatalf("FilterChunks: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected no chunks remaining after delete, got %d", len(ids))
	}
}
