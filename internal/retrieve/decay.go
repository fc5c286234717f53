package retrieve

import (
	"math"
	"sort"

	"github.com/intelligencedev/clinical-core/internal/model"
)

// TimeDecayRate is the exponential decay constant applied per day-ago.
const TimeDecayRate = 0.01

// ApplyTimeDecay multiplies each candidate's score by exp(-0.01 * days_ago),
// clamping days_ago to 0 (factor 1) for dates in the future relative to
// referenceUnix, then re-sorts globally.
func ApplyTimeDecay(candidates []model.RetrievalCandidate, referenceUnix int64) []model.RetrievalCandidate {
	out := make([]model.RetrievalCandidate, len(candidates))
	copy(out, candidates)

	for i, c := range out {
		daysAgo := float64(referenceUnix-c.Chunk.OccurredAt.Unix()) / 86400.0
		if daysAgo < 0 {
			daysAgo = 0
		}
		factor := math.Exp(-TimeDecayRate * daysAgo)
		out[i].DaysAgo = daysAgo
		out[i].TimeDecayFactor = factor
		out[i].Score = out[i].Score * factor
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
