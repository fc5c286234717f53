package retrieve

import (
	"sort"

	"github.com/intelligencedev/clinical-core/internal/model"
)

const (
	rerankOriginalWeight = 0.70
	rerankCoverageWeight = 0.15
	rerankOverlapWeight  = 0.10
	rerankTypeWeight     = 0.05
)

// Rerank recomputes scores for the top-20 hybrid candidates using a weighted
// blend of the original score, entity coverage, query-term overlap, and an
// intent/type match bonus, then re-sorts. Candidates beyond the top 20 are
// left untouched and appended unchanged.
func Rerank(candidates []model.RetrievalCandidate, sq model.StructuredQuery) []model.RetrievalCandidate {
	const window = 20
	head := candidates
	var tail []model.RetrievalCandidate
	if len(candidates) > window {
		head = candidates[:window]
		tail = candidates[window:]
	}

	reranked := make([]model.RetrievalCandidate, len(head))
	for i, c := range head {
		original := c.Score
		if c.OriginalScore != nil {
			original = *c.OriginalScore
		}
		coverage := entityCoverage(c.Chunk.Content, sq.Entities)
		overlap := queryOverlap(c.Chunk.Content, sq.OriginalQuery)
		bonus := typeMatchBonus(sq.Intent, c.Chunk.ArtifactType)

		c.Score = rerankOriginalWeight*original + rerankCoverageWeight*coverage +
			rerankOverlapWeight*overlap + rerankTypeWeight*bonus
		reranked[i] = c
	}
	sort.SliceStable(reranked, func(i, j int) bool {
		if reranked[i].Score != reranked[j].Score {
			return reranked[i].Score > reranked[j].Score
		}
		return reranked[i].Chunk.ChunkID < reranked[j].Chunk.ChunkID
	})
	for i := range reranked {
		reranked[i].Rank = i + 1
	}

	out := make([]model.RetrievalCandidate, 0, len(candidates))
	out = append(out, reranked...)
	for i, c := range tail {
		c.Rank = window + i + 1
		out = append(out, c)
	}
	return out
}

// typeMatchBonus is 1 when the candidate's artifact type is the intent's
// preferred type, defaultTypeAffinity otherwise.
func typeMatchBonus(intent model.Intent, t model.ArtifactType) float64 {
	return typeAffinity(intent, t)
}
