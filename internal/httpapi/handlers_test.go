package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/intelligencedev/clinical-core/internal/contracts"
	"github.com/intelligencedev/clinical-core/internal/indexing"
	"github.com/intelligencedev/clinical-core/internal/model"
	"github.com/intelligencedev/clinical-core/internal/orchestrator"
	"github.com/intelligencedev/clinical-core/internal/retrieve"
	"github.com/intelligencedev/clinical-core/internal/storage/memory"
)

type fakeRecordSource struct {
	bundle contracts.PatientRecordBundle
}

func (f fakeRecordSource) GetAll(ctx context.Context, patientID string) (contracts.PatientRecordBundle, error) {
	return f.bundle, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := memory.NewMetadataStore()
	vec := memory.NewVectorIndex(64)
	embedder := memory.NewEmbedder(64)
	gen := memory.NewGenerator()

	chunk := model.Chunk{
		ChunkID: "chunk-1", ArtifactID: "artifact-1", PatientID: "patient-1",
		ArtifactType: model.ArtifactNote, OccurredAt: time.Now(), Author: "dr-smith",
		Content: "Patient is stable with no new complaints.", CharOffsets: model.CharOffsets{Start: 0, End: 42},
	}
	require.NoError(t, store.InsertChunks(context.Background(), []model.Chunk{chunk}))
	v, err := embedder.Embed(context.Background(), chunk.Content)
	require.NoError(t, err)
	require.NoError(t, vec.AddVectors(context.Background(), []string{chunk.ChunkID}, [][]float32{v}, []map[string]string{{"patient_id": "patient-1"}}))

	deps := orchestrator.Deps{
		Embedder:        embedder,
		Generator:       gen,
		Vector:          vec,
		Store:           store,
		Filter:          retrieve.NewMetadataFilter(retrieve.LoaderFromMetadataStore(store)),
		PipelineVersion: "test-v1",
	}
	core := orchestrator.New(deps)

	source := fakeRecordSource{bundle: contracts.PatientRecordBundle{
		PatientID:   "patient-1",
		Medications: []map[string]any{{"id": "med-1", "name": "lisinopril"}},
	}}

	indexingDeps := indexing.Deps{Source: source, Embedder: embedder, Vector: vec, Store: store, MaxBatchSize: 4}

	return NewServer(core, indexingDeps, source)
}

func TestHandleQuery_ReturnsUIResponse(t *testing.T) {
	srv := newTestServer(t)

	body, err := json.Marshal(queryRequest{PatientID: "patient-1", QueryText: "is the patient stable"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp model.UIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp.QueryID)
}

func TestHandleQuery_EmptyQueryTextIsBadRequest(t *testing.T) {
	srv := newTestServer(t)

	body, err := json.Marshal(queryRequest{PatientID: "patient-1", QueryText: ""})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleIndexPatient_ReturnsIndexedChunkCount(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/index/patient/patient-1", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	require.Greater(t, out["indexed_chunks"], float64(0))
}

func TestHandleDeindexPatient_ReturnsNoContent(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/index/patient/patient-1", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandleEMRPassthrough_FiltersByKind(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/emr/medications?patient_id=patient-1", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	require.Len(t, out.Data, 1)
}

func TestHandleEMRPassthrough_UnknownKindIsBadRequest(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/emr/unknown?patient_id=patient-1", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
