package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/intelligencedev/clinical-core/internal/audit"
	"github.com/intelligencedev/clinical-core/internal/contracts"
	"github.com/intelligencedev/clinical-core/internal/model"
	"github.com/intelligencedev/clinical-core/internal/retrieve"
	"github.com/intelligencedev/clinical-core/internal/storage/memory"
)

func seedChunk(t *testing.T, store *memory.MetadataStore, vec *memory.VectorIndex, embedder *memory.Embedder, patientID, chunkID, content string, occurredAt time.Time) model.Chunk {
	t.Helper()
	chunk := model.Chunk{
		ChunkID:      chunkID,
		ArtifactID:   "artifact-" + chunkID,
		PatientID:    patientID,
		ArtifactType: model.ArtifactMedication,
		OccurredAt:   occurredAt,
		Author:       "dr-smith",
		Content:      content,
		CharOffsets:  model.CharOffsets{Start: 0, End: len(content)},
	}
	require.NoError(t, store.InsertChunks(context.Background(), []model.Chunk{chunk}))
	v, err := embedder.Embed(context.Background(), content)
	require.NoError(t, err)
	require.NoError(t, vec.AddVectors(context.Background(), []string{chunkID}, [][]float32{v}, []map[string]string{{"patient_id": patientID}}))
	return chunk
}

func newTestDeps(t *testing.T, store *memory.MetadataStore, vec *memory.VectorIndex, embedder *memory.Embedder, gen contracts.Generator) Deps {
	t.Helper()
	filter := retrieve.NewMetadataFilter(retrieve.LoaderFromMetadataStore(store))
	return Deps{
		Embedder:        embedder,
		Generator:       gen,
		Vector:          vec,
		Store:           store,
		Filter:          filter,
		PipelineVersion: "test-v1",
	}
}

func TestProcess_FullSuccessPath(t *testing.T) {
	store := memory.NewMetadataStore()
	vec := memory.NewVectorIndex(64)
	embedder := memory.NewEmbedder(64)

	chunk := seedChunk(t, store, vec, embedder, "patient-1", "chunk-1",
		"Patient started on lisinopril 10mg daily for hypertension.", time.Now().Add(-24*time.Hour))

	gen := memory.NewGeneratorCiting([]model.RetrievalCandidate{{Chunk: chunk}})
	deps := newTestDeps(t, store, vec, embedder, gen)
	core := New(deps)

	resp := core.Process(context.Background(), "what medication is the patient on for hypertension", "patient-1", Options{})

	require.False(t, resp.Metadata.Partial, "metadata=%+v", resp.Metadata)
	require.NotEmpty(t, resp.ShortAnswer)
	require.NotEmpty(t, resp.StructuredExtractions)
	require.NotEmpty(t, resp.Provenance)
	require.GreaterOrEqual(t, resp.Metadata.PerStageMS[string(stageRetrieval)], int64(0))
	_, ok := resp.Metadata.PerStageMS[string(stageCitation)]
	require.True(t, ok, "expected citation_validation stage timing to be recorded")
}

func TestProcess_NoMatchingRecordsShortCircuits(t *testing.T) {
	store := memory.NewMetadataStore()
	vec := memory.NewVectorIndex(64)
	embedder := memory.NewEmbedder(64)
	gen := memory.NewGenerator()
	deps := newTestDeps(t, store, vec, embedder, gen)
	core := New(deps)

	resp := core.Process(context.Background(), "any question at all", "patient-unknown", Options{})

	require.False(t, resp.Metadata.Partial, "no-results response must not be marked partial")
	require.Equal(t, "no_results", resp.Metadata.Error)
	require.Equal(t, model.ConfidenceLow, resp.Confidence.Label)
}

func TestProcess_ValidationErrorOnEmptyQuery(t *testing.T) {
	store := memory.NewMetadataStore()
	vec := memory.NewVectorIndex(64)
	embedder := memory.NewEmbedder(64)
	gen := memory.NewGenerator()
	deps := newTestDeps(t, store, vec, embedder, gen)
	core := New(deps)

	resp := core.Process(context.Background(), "", "patient-1", Options{})

	require.True(t, resp.Metadata.Partial, "expected partial result for validation failure")
	require.NotEmpty(t, resp.Metadata.Error)
}

func TestProcess_GenerationFailureFallsBackToSnippets(t *testing.T) {
	store := memory.NewMetadataStore()
	vec := memory.NewVectorIndex(64)
	embedder := memory.NewEmbedder(64)

	_ = seedChunk(t, store, vec, embedder, "patient-2", "chunk-2",
		"Patient reports persistent cough and fatigue for two weeks.", time.Now().Add(-48*time.Hour))

	gen := failingGenerator{}
	deps := newTestDeps(t, store, vec, embedder, gen)
	core := New(deps)

	resp := core.Process(context.Background(), "what symptoms does the patient report", "patient-2", Options{})

	require.True(t, resp.Metadata.Partial, "expected partial result when generation fails")
	require.NotEmpty(t, resp.Provenance, "expected snippet fallback provenance")
}

type failingGenerator struct{}

func (failingGenerator) Generate(ctx context.Context, system, user string, cfg contracts.GenerationConfig) (contracts.GenerationResult, error) {
	return contracts.GenerationResult{}, errGeneratorDown
}

var errGeneratorDown = errors.New("model process exited")

func TestProcess_AuditEntryWrittenWhenEnabled(t *testing.T) {
	store := memory.NewMetadataStore()
	vec := memory.NewVectorIndex(64)
	embedder := memory.NewEmbedder(64)

	chunk := seedChunk(t, store, vec, embedder, "patient-3", "chunk-3",
		"Care plan goal: improve glycemic control within three months.", time.Now().Add(-72*time.Hour))

	gen := memory.NewGeneratorCiting([]model.RetrievalCandidate{{Chunk: chunk}})
	deps := newTestDeps(t, store, vec, embedder, gen)

	logPath := t.TempDir() + "/audit.jsonl"
	logger, err := audit.New(logPath, audit.PrivacyFull)
	require.NoError(t, err)
	defer logger.Close()
	deps.Audit = logger

	core := New(deps)
	resp := core.Process(context.Background(), "what is the care plan goal", "patient-3", Options{AuditEnabled: true, UserID: "user-1", SessionID: "sess-1"})

	require.NotEmpty(t, resp.QueryID)
	snap := logger.Snapshot()
	require.Len(t, snap, 1)
	require.Equal(t, resp.QueryID, snap[0].QueryID)
	require.Equal(t, "user-1", snap[0].UserID)
	require.Equal(t, "sess-1", snap[0].SessionID)
	require.True(t, snap[0].Success)
}
