package retrieve

import (
	"sort"

	"github.com/intelligencedev/clinical-core/internal/model"
)

// BuildCandidates converts hybrid results into ranked RetrievalCandidates,
// running the blended Scorer and assigning stable ranks.
func BuildCandidates(hybrid []HybridResult, sq model.StructuredQuery, referenceUnix int64) []model.RetrievalCandidate {
	out := make([]model.RetrievalCandidate, 0, len(hybrid))
	for _, hr := range hybrid {
		s := Score(hr, sq, referenceUnix)
		orig := s
		out = append(out, model.RetrievalCandidate{
			Chunk:         hr.Chunk,
			Score:         s,
			OriginalScore: &orig,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Chunk.ChunkID < out[j].Chunk.ChunkID
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
