// Package contracts defines the inbound interfaces the core depends on but
// does not implement: the EMR record source, the local embedding and
// generation models, and the vector and metadata stores.
package contracts

import (
	"context"

	"github.com/intelligencedev/clinical-core/internal/model"
)

// PatientRecordSource fetches a patient's full record in bulk. The server
// side does not filter by patient_id; callers must filter client-side.
type PatientRecordSource interface {
	GetAll(ctx context.Context, patientID string) (PatientRecordBundle, error)
}

// PatientRecordBundle is the raw, unfiltered payload returned by GetAll.
type PatientRecordBundle struct {
	PatientID   string
	CarePlans   []map[string]any
	Medications []map[string]any
	Notes       []map[string]any
	Other       map[string][]map[string]any
}

// Embedder produces fixed-dimension, deterministic-per-(model_version,text)
// embedding vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	ModelVersion() string
}

// GenerationConfig configures a single Generate call.
type GenerationConfig struct {
	Temperature float64
	MaxTokens   int
}

// GenerationResult is the raw output of a Generator call, used to populate
// the audit entry's LLM section.
type GenerationResult struct {
	Text         string
	Tokens       int
	LatencyMS    int64
	ModelVersion string
}

// Generator calls a locally-hosted LLM, synchronously, honoring cancellation.
type Generator interface {
	Generate(ctx context.Context, system, user string, cfg GenerationConfig) (GenerationResult, error)
}

// VectorSearchHit is one nearest-neighbor result from a VectorIndex.
type VectorSearchHit struct {
	ChunkID string
	Score   float64
}

// VectorIndex is the vector nearest-neighbor store, shared-read/single-writer.
type VectorIndex interface {
	Search(ctx context.Context, queryVec []float32, candidateIDs []string, k int) ([]VectorSearchHit, error)
	AddVectors(ctx context.Context, ids []string, vecs [][]float32, meta []map[string]string) error
	Dimension() int
	Save(ctx context.Context, path string) error
	Load(ctx context.Context, path string) error
	DeletePatient(ctx context.Context, patientID string) error
}

// MetadataFilterCriteria narrows the chunk_ids returned by FilterChunks.
type MetadataFilterCriteria struct {
	PatientID     string
	ArtifactTypes []model.ArtifactType
	Author        string
	DateRange     *model.DateRange
}

// MetadataStore holds chunk bodies and supports metadata pre-filtering.
type MetadataStore interface {
	InsertChunks(ctx context.Context, chunks []model.Chunk) error
	FilterChunks(ctx context.Context, criteria MetadataFilterCriteria) ([]string, error)
	GetChunksByIDs(ctx context.Context, ids []string) ([]model.Chunk, error)
	DeleteChunks(ctx context.Context, patientID string) error
}
