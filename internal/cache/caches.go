package cache

import (
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/intelligencedev/clinical-core/internal/model"
)

const (
	embeddingCacheSize = 1000
	embeddingCacheTTL  = 5 * time.Minute

	queryResultCacheSize = 100
	queryResultCacheTTL  = 5 * time.Minute

	patientIndexCacheSize = 5
	patientIndexCacheTTL  = 30 * time.Minute
)

// EmbeddingCache memoizes embedder calls by normalized chunk/query text.
type EmbeddingCache struct {
	lru *LRU[model.Embedding]
}

func NewEmbeddingCache() *EmbeddingCache {
	return &EmbeddingCache{lru: NewLRU[model.Embedding](embeddingCacheSize, embeddingCacheTTL)}
}

func (c *EmbeddingCache) Get(text string) (model.Embedding, bool) {
	return c.lru.Get(EmbeddingKey(text))
}

func (c *EmbeddingCache) Set(text string, emb model.Embedding) {
	c.lru.Set(EmbeddingKey(text), emb)
}

func (c *EmbeddingCache) sweep() { c.lru.sweep() }

// QueryResultCache memoizes the retrieval pipeline's candidate list for a
// given (query, patient, filters) tuple, skipping filter through highlight
// when an identical query repeats within the TTL.
type QueryResultCache struct {
	lru *LRU[[]model.RetrievalCandidate]
}

func NewQueryResultCache() *QueryResultCache {
	return &QueryResultCache{lru: NewLRU[[]model.RetrievalCandidate](queryResultCacheSize, queryResultCacheTTL)}
}

func (c *QueryResultCache) Get(query, patientID string, filters model.QueryFilters) ([]model.RetrievalCandidate, bool) {
	return c.lru.Get(QueryResultKey(query, patientID, filters))
}

func (c *QueryResultCache) Set(query, patientID string, filters model.QueryFilters, candidates []model.RetrievalCandidate) {
	c.lru.Set(QueryResultKey(query, patientID, filters), candidates)
}

func (c *QueryResultCache) sweep() { c.lru.sweep() }

// PatientIndex is the cached summary of a patient's indexed chunks.
type PatientIndex struct {
	ChunkIDs      []string
	DateRange     model.DateRange
	ArtifactTypes []model.ArtifactType
}

// PatientIndexCache memoizes per-patient index summaries. Concurrent
// requests for the same uncached patient collapse into a single builder
// call via singleflight, matching the "single writer per patient" rule.
type PatientIndexCache struct {
	lru   *LRU[PatientIndex]
	group singleflight.Group
}

func NewPatientIndexCache() *PatientIndexCache {
	return &PatientIndexCache{lru: NewLRU[PatientIndex](patientIndexCacheSize, patientIndexCacheTTL)}
}

func (c *PatientIndexCache) Get(patientID string) (PatientIndex, bool) {
	return c.lru.Get(patientID)
}

func (c *PatientIndexCache) Set(patientID string, idx PatientIndex) {
	c.lru.Set(patientID, idx)
}

// GetOrBuild returns the cached index for patientID, building it with build
// on a miss. Concurrent calls for the same patientID share one in-flight
// build and all receive its result.
func (c *PatientIndexCache) GetOrBuild(patientID string, build func() (PatientIndex, error)) (PatientIndex, error) {
	if idx, ok := c.Get(patientID); ok {
		return idx, nil
	}
	v, err, _ := c.group.Do(patientID, func() (interface{}, error) {
		if idx, ok := c.Get(patientID); ok {
			return idx, nil
		}
		idx, err := build()
		if err != nil {
			return PatientIndex{}, err
		}
		c.Set(patientID, idx)
		return idx, nil
	})
	if err != nil {
		return PatientIndex{}, err
	}
	return v.(PatientIndex), nil
}

func (c *PatientIndexCache) sweep() { c.lru.sweep() }

// Caches bundles the three named caches and the sweeper that keeps them
// clean, as a single dependency for the orchestrator to hold.
type Caches struct {
	Embedding   *EmbeddingCache
	QueryResult *QueryResultCache
	PatientIdx  *PatientIndexCache
	Sweeper     *Sweeper
}

func New() *Caches {
	c := &Caches{
		Embedding:   NewEmbeddingCache(),
		QueryResult: NewQueryResultCache(),
		PatientIdx:  NewPatientIndexCache(),
	}
	c.Sweeper = NewSweeper(c.Embedding, c.QueryResult, c.PatientIdx)
	return c
}
