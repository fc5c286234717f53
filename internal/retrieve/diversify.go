package retrieve

import (
	"sort"

	"github.com/intelligencedev/clinical-core/internal/model"
)

// DiversityDecay is the per-position multiplicative penalty applied to
// repeated hits from the same artifact.
const DiversityDecay = 0.9

// DiversityTopK is the window size over which the guarantee of at least two
// distinct artifacts holds.
const DiversityTopK = 5

// Diversify penalizes repeated hits from the same artifact by position
// within that artifact's group, re-sorts globally, then promotes a
// different-artifact candidate into the top-K window if it would otherwise
// be single-artifact.
func Diversify(candidates []model.RetrievalCandidate) []model.RetrievalCandidate {
	if len(candidates) == 0 {
		return candidates
	}

	out := make([]model.RetrievalCandidate, len(candidates))
	copy(out, candidates)

	seen := map[string]int{}
	for i, c := range out {
		pos := seen[c.Chunk.ArtifactID]
		seen[c.Chunk.ArtifactID] = pos + 1
		penalty := pow(DiversityDecay, pos)
		out[i].ArtifactPosition = pos + 1
		out[i].DiversityPenalty = penalty
		out[i].Score = out[i].Score * penalty
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

	out = enforceTopKDiversity(out)
	return out
}

// enforceTopKDiversity promotes the best candidate from a second distinct
// artifact into the top-K window when the window would otherwise hold
// chunks from only one artifact, demoting the window's lowest-ranked entry.
func enforceTopKDiversity(candidates []model.RetrievalCandidate) []model.RetrievalCandidate {
	k := DiversityTopK
	if len(candidates) < k {
		k = len(candidates)
	}
	if k < 2 {
		return candidates
	}

	window := candidates[:k]
	distinct := map[string]struct{}{}
	for _, c := range window {
		distinct[c.Chunk.ArtifactID] = struct{}{}
	}
	if len(distinct) >= 2 {
		return candidates
	}

	windowArtifact := window[0].Chunk.ArtifactID
	promoteIdx := -1
	for i := k; i < len(candidates); i++ {
		if candidates[i].Chunk.ArtifactID != windowArtifact {
			promoteIdx = i
			break
		}
	}
	if promoteIdx == -1 {
		return candidates
	}

	out := make([]model.RetrievalCandidate, len(candidates))
	copy(out, candidates)
	promoted := out[promoteIdx]
	copy(out[k:promoteIdx+1], out[k-1:promoteIdx])
	out[k-1] = promoted
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}
