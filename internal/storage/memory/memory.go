// Package memory provides in-process fake implementations of the core's
// external contracts (Embedder, Generator, VectorIndex, MetadataStore),
// for tests and the cmd/coreql demo entrypoint that don't need a live
// qdrant/pgx/model backend.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/intelligencedev/clinical-core/internal/contracts"
	"github.com/intelligencedev/clinical-core/internal/model"
	"github.com/intelligencedev/clinical-core/internal/storage/snapshot"
)

// Generator is a fake generator. With no cited candidate it returns an
// empty extraction set; NewGeneratorCiting makes it echo a candidate's full
// content back as a single general_note extraction, with char offsets that
// exactly match the chunk so citation validation passes.
type Generator struct {
	version string
	cite    *model.RetrievalCandidate
}

func NewGenerator() *Generator {
	return &Generator{version: "memory-generator-v1"}
}

// NewGeneratorCiting builds a Generator whose single canned response cites
// candidates[0] in full, for tests that need a non-empty, citable answer.
func NewGeneratorCiting(candidates []model.RetrievalCandidate) *Generator {
	g := &Generator{version: "memory-generator-v1"}
	if len(candidates) > 0 {
		g.cite = &candidates[0]
	}
	return g
}

func (g *Generator) Generate(ctx context.Context, system, user string, cfg contracts.GenerationConfig) (contracts.GenerationResult, error) {
	text := g.cannedText()
	return contracts.GenerationResult{Text: text, Tokens: len(strings.Fields(user)), ModelVersion: g.version}, nil
}

func (g *Generator) cannedText() string {
	if g.cite == nil {
		return `{"extractions":[]}`
	}
	chunk := g.cite.Chunk
	extraction := map[string]any{
		"type": string(model.ExtractionGeneralNote),
		"general": map[string]any{
			"fields": map[string]string{"summary": chunk.Content},
		},
		"provenance": map[string]any{
			"artifact_id":     chunk.ArtifactID,
			"chunk_id":        chunk.ChunkID,
			"char_offsets":    map[string]int{"start": 0, "end": len(chunk.Content)},
			"supporting_text": chunk.Content,
		},
	}
	raw, err := json.Marshal(extraction)
	if err != nil {
		return `{"extractions":[]}`
	}
	return fmt.Sprintf(`{"extractions":[%s]}`, raw)
}

// Embedder is a deterministic bag-of-words embedder: each dimension is a
// hashed token bucket count, L2-normalized. Good enough for exercising the
// pipeline's plumbing without a real model.
type Embedder struct {
	dim     int
	version string
}

func NewEmbedder(dim int) *Embedder {
	if dim <= 0 {
		dim = 64
	}
	return &Embedder{dim: dim, version: "memory-embedder-v1"}
}

func (e *Embedder) Dimension() int      { return e.dim }
func (e *Embedder) ModelVersion() string { return e.version }

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		vec[bucket(tok, e.dim)]++
	}
	normalize(vec)
	return vec, nil
}

func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func bucket(tok string, dim int) int {
	h := 0
	for _, r := range tok {
		h = h*31 + int(r)
	}
	if h < 0 {
		h = -h
	}
	return h % dim
}

func normalize(v []float32) {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return
	}
	norm := float32(math.Sqrt(sumSq))
	for i := range v {
		v[i] /= norm
	}
}

// VectorIndex is an in-memory nearest-neighbor store keyed by chunk id.
type VectorIndex struct {
	mu      sync.RWMutex
	dim     int
	vecs    map[string][]float32
	meta    map[string]map[string]string
	backend snapshot.Backend
}

func NewVectorIndex(dim int) *VectorIndex {
	return &VectorIndex{dim: dim, vecs: make(map[string][]float32), meta: make(map[string]map[string]string)}
}

// NewVectorIndexWithBackend builds a VectorIndex whose Save/Load snapshot
// to backend under the key passed to those calls, instead of deriving a
// local-filesystem backend from the path.
func NewVectorIndexWithBackend(dim int, backend snapshot.Backend) *VectorIndex {
	v := NewVectorIndex(dim)
	v.backend = backend
	return v
}

func (v *VectorIndex) Dimension() int { return v.dim }

func (v *VectorIndex) AddVectors(ctx context.Context, ids []string, vecs [][]float32, meta []map[string]string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i, id := range ids {
		v.vecs[id] = vecs[i]
		if i < len(meta) {
			v.meta[id] = meta[i]
		}
	}
	return nil
}

func (v *VectorIndex) Search(ctx context.Context, queryVec []float32, candidateIDs []string, k int) ([]contracts.VectorSearchHit, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	allowed := make(map[string]bool, len(candidateIDs))
	for _, id := range candidateIDs {
		allowed[id] = true
	}

	hits := make([]contracts.VectorSearchHit, 0, len(candidateIDs))
	for id := range allowed {
		vec, ok := v.vecs[id]
		if !ok {
			continue
		}
		hits = append(hits, contracts.VectorSearchHit{ChunkID: id, Score: dot(queryVec, vec)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Save writes the dimension, chunk_id list, and per-chunk metadata to path
// via a local-filesystem snapshot.Manager. Vectors themselves are not
// persisted here: the in-memory index is for tests and demos, re-embedded
// from source chunks on reload rather than restored from a vector blob.
func (v *VectorIndex) Save(ctx context.Context, path string) error {
	v.mu.RLock()
	defer v.mu.RUnlock()

	ids := make([]string, 0, len(v.vecs))
	for id := range v.vecs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	metas := make([]map[string]string, len(ids))
	for i, id := range ids {
		metas[i] = v.meta[id]
	}

	mgr := snapshot.NewManager(v.backendOrLocal(path))
	return mgr.Save(ctx, v.keyFor(path), snapshot.State{
		Dimension:   v.dim,
		NextIndex:   len(ids),
		IDMap:       ids,
		MetadataMap: metas,
	})
}

// backendOrLocal returns the configured backend, or a FileBackend rooted at
// path's directory when none was set at construction time.
func (v *VectorIndex) backendOrLocal(path string) snapshot.Backend {
	if v.backend != nil {
		return v.backend
	}
	dir, _ := filepath.Split(path)
	return snapshot.NewFileBackend(dir)
}

// keyFor returns the snapshot key to use within the backend: the path's
// base name when falling back to a local FileBackend, or the full path
// when a backend was configured explicitly (e.g. an S3 prefix-relative key).
func (v *VectorIndex) keyFor(path string) string {
	if v.backend != nil {
		return path
	}
	_, file := filepath.Split(path)
	return file
}

// Load restores the chunk_id/metadata bookkeeping written by Save. Vectors
// for each id must be re-added via AddVectors by the caller.
func (v *VectorIndex) Load(ctx context.Context, path string) error {
	mgr := snapshot.NewManager(v.backendOrLocal(path))
	state, err := mgr.Load(ctx, v.keyFor(path))
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.dim = state.Dimension
	for i, id := range state.IDMap {
		if i < len(state.MetadataMap) {
			v.meta[id] = state.MetadataMap[i]
		}
	}
	return nil
}

func (v *VectorIndex) DeletePatient(ctx context.Context, patientID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for id, m := range v.meta {
		if m["patient_id"] == patientID {
			delete(v.vecs, id)
			delete(v.meta, id)
		}
	}
	return nil
}

// MetadataStore is an in-memory chunk store supporting metadata filtering.
type MetadataStore struct {
	mu     sync.RWMutex
	chunks map[string]model.Chunk
}

func NewMetadataStore() *MetadataStore {
	return &MetadataStore{chunks: make(map[string]model.Chunk)}
}

func (s *MetadataStore) InsertChunks(ctx context.Context, chunks []model.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		s.chunks[c.ChunkID] = c
	}
	return nil
}

func (s *MetadataStore) FilterChunks(ctx context.Context, criteria contracts.MetadataFilterCriteria) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.chunks))
	for id, c := range s.chunks {
		if c.PatientID != criteria.PatientID {
			continue
		}
		if len(criteria.ArtifactTypes) > 0 && !containsType(criteria.ArtifactTypes, c.ArtifactType) {
			continue
		}
		if criteria.Author != "" && c.Author != criteria.Author {
			continue
		}
		if criteria.DateRange != nil && (c.OccurredAt.Before(criteria.DateRange.From) || c.OccurredAt.After(criteria.DateRange.To)) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func containsType(types []model.ArtifactType, t model.ArtifactType) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

func (s *MetadataStore) GetChunksByIDs(ctx context.Context, ids []string) ([]model.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Chunk, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.chunks[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *MetadataStore) DeleteChunks(ctx context.Context, patientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.chunks {
		if c.PatientID == patientID {
			delete(s.chunks, id)
		}
	}
	return nil
}
