// Package orchestrator binds the online stages — query understanding,
// retrieval, generation, citation validation, confidence scoring,
// provenance formatting, and response assembly — under a single deadline
// with per-stage timing, retry/circuit-breaking on external calls, and a
// partial-results fallback.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/intelligencedev/clinical-core/internal/apperr"
	"github.com/intelligencedev/clinical-core/internal/audit"
	"github.com/intelligencedev/clinical-core/internal/breaker"
	"github.com/intelligencedev/clinical-core/internal/cache"
	"github.com/intelligencedev/clinical-core/internal/citation"
	"github.com/intelligencedev/clinical-core/internal/confidence"
	"github.com/intelligencedev/clinical-core/internal/contracts"
	"github.com/intelligencedev/clinical-core/internal/generation"
	"github.com/intelligencedev/clinical-core/internal/model"
	"github.com/intelligencedev/clinical-core/internal/queryunderstanding"
	"github.com/intelligencedev/clinical-core/internal/retrieve"
	"github.com/intelligencedev/clinical-core/internal/retrypolicy"
)

// DefaultTimeout is the deadline applied when Options.Timeout is zero.
const DefaultTimeout = 6 * time.Second

// Deps bundles every external collaborator the core needs. All fields are
// required except Breakers and Caches, which New creates when nil, and
// Audit and RedisRetrieval, which are skipped when nil.
type Deps struct {
	Embedder  contracts.Embedder
	Generator contracts.Generator
	Vector    contracts.VectorIndex
	Store     contracts.MetadataStore
	Filter    *retrieve.MetadataFilter

	Breakers *breaker.Registry
	Caches   *cache.Caches
	Audit    *audit.Logger

	// RedisRetrieval is an optional distributed L2 behind Caches.QueryResult,
	// checked on an in-process miss and populated alongside it, so cached
	// retrieval candidates survive a restart and are shared across
	// instances.
	RedisRetrieval *cache.RedisQueryResultCache

	PipelineVersion string
}

// Options configures a single Process call.
type Options struct {
	Timeout      time.Duration
	AuditEnabled bool
	SessionID    string
	UserID       string
}

// Core is the public entrypoint to the retrieval-and-generation pipeline.
type Core struct {
	deps Deps
}

// New constructs a Core over deps. Breakers and Caches are created if nil.
func New(deps Deps) *Core {
	if deps.Breakers == nil {
		deps.Breakers = breaker.NewRegistry()
	}
	if deps.Caches == nil {
		deps.Caches = cache.New()
	}
	return &Core{deps: deps}
}

// run carries per-request state that survives into the partial-results
// handler if a later stage fails.
type run struct {
	queryID   string
	start     time.Time
	stageMS   map[string]int64
	completed map[stage]bool

	sq              model.StructuredQuery
	candidates      []model.RetrievalCandidate
	genResult       generation.Result
	genTemperature  float64
	genMaxTokens    int
	citationResult  citation.Result
	conf            model.Confidence
	provenance      []model.ProvenanceEntry
}

type stage string

const (
	stageQueryUnderstanding stage = "query_understanding"
	stageRetrieval          stage = "retrieval"
	stageGeneration         stage = "generation"
	stageCitation           stage = "citation_validation"
	stageConfidence         stage = "confidence_scoring"
	stageProvenance         stage = "provenance_formatting"
	stageResponse           stage = "response_building"
)

func (r *run) time(s stage, fn func() error) error {
	started := time.Now()
	err := fn()
	r.stageMS[string(s)] = time.Since(started).Milliseconds()
	if err == nil {
		r.completed[s] = true
	}
	return err
}

// Process runs the full pipeline for one query. It never returns an error:
// any stage failure is handed to the partial-results fallback, and exactly
// one AuditEntry is always written when auditing is enabled.
func (c *Core) Process(ctx context.Context, query, patientID string, opt Options) model.UIResponse {
	timeout := opt.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	r := &run{
		start:     time.Now(),
		stageMS:   make(map[string]int64, 7),
		completed: make(map[stage]bool, 7),
	}

	resp, failedStage, stageErr := c.runStages(ctx, r, query, patientID)
	resp.QueryID = r.queryID
	resp.Metadata.TotalTimeMS = time.Since(r.start).Milliseconds()
	resp.Metadata.PerStageMS = r.stageMS

	if opt.AuditEnabled && c.deps.Audit != nil {
		entry := c.buildAuditEntry(r, query, patientID, opt, resp, failedStage, stageErr)
		_ = c.deps.Audit.Write(entry)
	}
	return resp
}

func (c *Core) runStages(ctx context.Context, r *run, query, patientID string) (model.UIResponse, stage, error) {
	if err := r.time(stageQueryUnderstanding, func() error {
		return c.understandStage(ctx, r, query, patientID)
	}); err != nil {
		return partialResult(r, stageQueryUnderstanding, err), stageQueryUnderstanding, err
	}

	if err := r.time(stageRetrieval, func() error {
		return c.retrievalStage(ctx, r)
	}); err != nil {
		return partialResult(r, stageRetrieval, err), stageRetrieval, err
	}
	if len(r.candidates) == 0 {
		return noResultsResponse(), stageRetrieval, apperr.New(apperr.KindNoResults, "no matching records")
	}

	if err := r.time(stageGeneration, func() error {
		return c.generationStage(ctx, r)
	}); err != nil {
		return partialResult(r, stageGeneration, err), stageGeneration, err
	}

	if err := r.time(stageCitation, func() error {
		r.citationResult = citation.Validate(r.genResult.Extractions, r.candidates)
		return nil
	}); err != nil {
		return partialResult(r, stageCitation, err), stageCitation, err
	}

	if err := r.time(stageConfidence, func() error {
		r.conf = c.confidenceStage(r)
		return nil
	}); err != nil {
		return partialResult(r, stageConfidence, err), stageConfidence, err
	}

	if err := r.time(stageProvenance, func() error {
		r.provenance = c.provenanceStage(r)
		return nil
	}); err != nil {
		return partialResult(r, stageProvenance, err), stageProvenance, err
	}

	var resp model.UIResponse
	if err := r.time(stageResponse, func() error {
		resp = assembleResponse(r)
		return nil
	}); err != nil {
		return partialResult(r, stageResponse, err), stageResponse, err
	}

	return resp, "", nil
}

// classifyStageErr preserves a kind an external call already attached —
// deadline expiry or an open circuit breaker — and only falls back to
// wrapping as fallback/message when the error carries neither.
func classifyStageErr(err error, fallback apperr.Kind, message string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.KindDeadlineExceeded, "deadline exceeded", err)
	}
	if apperr.Is(err, apperr.KindCircuitOpen) {
		return err
	}
	return apperr.Wrap(fallback, message, err)
}

func (c *Core) understandStage(ctx context.Context, r *run, query, patientID string) error {
	if query == "" || patientID == "" {
		return apperr.New(apperr.KindValidation, "query and patient_id are required")
	}
	r.sq = queryunderstanding.Understand(query, patientID, queryunderstanding.Options{Now: r.start})
	r.queryID = r.sq.QueryID
	if r.queryID == "" {
		r.queryID = uuid.NewString()
	}
	return nil
}

func (c *Core) retrievalStage(ctx context.Context, r *run) error {
	if c.deps.Caches != nil {
		if cached, ok := c.deps.Caches.QueryResult.Get(r.sq.OriginalQuery, r.sq.PatientID, r.sq.Filters); ok {
			r.candidates = cached
			return nil
		}
	}
	if c.deps.RedisRetrieval != nil {
		if cached, ok, err := c.deps.RedisRetrieval.Get(ctx, r.sq.OriginalQuery, r.sq.PatientID, r.sq.Filters); err == nil && ok {
			r.candidates = cached
			if c.deps.Caches != nil {
				c.deps.Caches.QueryResult.Set(r.sq.OriginalQuery, r.sq.PatientID, r.sq.Filters, cached)
			}
			return nil
		}
	}

	deps := retrieve.Dependencies{
		Filter:   c.deps.Filter,
		Vector:   c.deps.Vector,
		Store:    c.deps.Store,
		Embedder: c.deps.Embedder,
	}
	candidates, err := retrypolicy.Do(ctx, func(ctx context.Context) ([]model.RetrievalCandidate, error) {
		return breaker.Call(c.deps.Breakers, breaker.VectorIndex, func() ([]model.RetrievalCandidate, error) {
			return retrieve.Run(ctx, deps, r.sq, r.start)
		})
	})
	if err != nil {
		return classifyStageErr(err, apperr.KindVectorIndexUnavailable, "retrieval failed")
	}
	r.candidates = candidates
	if len(candidates) > 0 {
		if c.deps.Caches != nil {
			c.deps.Caches.QueryResult.Set(r.sq.OriginalQuery, r.sq.PatientID, r.sq.Filters, candidates)
		}
		if c.deps.RedisRetrieval != nil {
			_ = c.deps.RedisRetrieval.Set(ctx, r.sq.OriginalQuery, r.sq.PatientID, r.sq.Filters, candidates)
		}
	}
	return nil
}

func (c *Core) generationStage(ctx context.Context, r *run) error {
	mode := generation.ModeExtraction
	if r.sq.Intent == model.IntentSummary || r.sq.Intent == model.IntentComparison {
		mode = generation.ModeSummarization
	}
	r.genTemperature, r.genMaxTokens = generation.ConfigFor(mode)

	result, err := retrypolicy.Do(ctx, func(ctx context.Context) (generation.Result, error) {
		return breaker.Call(c.deps.Breakers, breaker.Generator, func() (generation.Result, error) {
			return generation.Generate(ctx, c.deps.Generator, mode, r.candidates, r.sq.OriginalQuery)
		})
	})
	if err != nil {
		return classifyStageErr(err, apperr.KindGeneratorUnavailable, "generation failed")
	}
	r.genResult = result
	return nil
}

func (c *Core) confidenceStage(r *run) model.Confidence {
	scoreByChunk := make(map[string]float64, len(r.candidates))
	for _, cand := range r.candidates {
		scoreByChunk[cand.Chunk.ChunkID] = cand.Score
	}

	citedScores := make([]float64, 0, len(r.citationResult.Valid))
	citedArtifacts := make([]string, 0, len(r.citationResult.Valid))
	for _, e := range r.citationResult.Valid {
		citedScores = append(citedScores, scoreByChunk[e.Provenance.ChunkID])
		citedArtifacts = append(citedArtifacts, e.Provenance.ArtifactID)
	}

	return confidence.Score(len(r.genResult.Extractions), len(r.citationResult.Valid), citedScores, citedArtifacts)
}

func (c *Core) provenanceStage(r *run) []model.ProvenanceEntry {
	chunkByID := make(map[string]model.Chunk, len(r.candidates))
	scoreByChunk := make(map[string]float64, len(r.candidates))
	for _, cand := range r.candidates {
		chunkByID[cand.Chunk.ChunkID] = cand.Chunk
		scoreByChunk[cand.Chunk.ChunkID] = cand.Score
	}

	entries := make([]model.ProvenanceEntry, 0, len(r.citationResult.Valid))
	for _, e := range r.citationResult.Valid {
		chunk, ok := chunkByID[e.Provenance.ChunkID]
		if !ok {
			continue
		}
		entries = append(entries, confidence.FormatProvenance(chunk, e.Provenance.CharOffsets, scoreByChunk[chunk.ChunkID], r.start))
	}
	entries = confidence.Dedup(entries)
	confidence.SortByRelevance(entries)
	return entries
}
