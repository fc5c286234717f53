// Package retrieve implements the candidate retrieval pipeline: metadata
// filtering, hybrid search, scoring, re-ranking, diversification, time
// decay, and highlighting, applied in that fixed order.
package retrieve

import (
	"context"
	"time"

	"github.com/intelligencedev/clinical-core/internal/contracts"
	"github.com/intelligencedev/clinical-core/internal/model"
)

// Dependencies bundles the external collaborators the pipeline needs.
type Dependencies struct {
	Filter   *MetadataFilter
	Vector   contracts.VectorIndex
	Store    contracts.MetadataStore
	Embedder contracts.Embedder
}

// Run executes the full retrieval pipeline for a structured query, returning
// ranked, diversified, decayed, and highlighted candidates.
func Run(ctx context.Context, deps Dependencies, sq model.StructuredQuery, referenceTime time.Time) ([]model.RetrievalCandidate, error) {
	criteria := Criteria{PatientID: sq.PatientID}
	if sq.Filters.DateRange != nil {
		criteria.DateRange = sq.Filters.DateRange
	}
	if len(sq.Filters.ArtifactTypes) > 0 {
		criteria.ArtifactTypes = sq.Filters.ArtifactTypes
	}

	filteredIDs, err := deps.Filter.Filter(ctx, criteria)
	if err != nil {
		return nil, err
	}
	if len(filteredIDs) == 0 {
		return nil, nil
	}

	hybrid, err := HybridSearch(ctx, deps.Vector, deps.Store, deps.Embedder,
		sq.OriginalQuery, sq.Entities, sq.ExpansionTerms, filteredIDs, DefaultAlpha)
	if err != nil {
		return nil, err
	}
	if len(hybrid) == 0 {
		return nil, nil
	}

	ref := referenceTime
	if ref.IsZero() {
		ref = time.Now().UTC()
	}
	refUnix := ref.Unix()

	candidates := BuildCandidates(hybrid, sq, refUnix)
	candidates = Rerank(candidates, sq)
	candidates = Diversify(candidates)
	candidates = ApplyTimeDecay(candidates, refUnix)

	for i := range candidates {
		Highlight(&candidates[i], sq)
	}

	return candidates, nil
}
