package confidence

import (
	"sort"
	"time"

	"github.com/intelligencedev/clinical-core/internal/model"
)

// SnippetClip is the maximum length of a provenance snippet.
const SnippetClip = 200

// FormatProvenance builds the UI-facing citation entry for one validated
// extraction, centering the snippet on its char_offsets and extending to
// sentence boundaries before clipping.
func FormatProvenance(chunk model.Chunk, offsets model.CharOffsets, relevanceScore float64, now time.Time) model.ProvenanceEntry {
	return model.ProvenanceEntry{
		ArtifactID:     chunk.ArtifactID,
		ArtifactType:   chunk.ArtifactType,
		NoteDate:       FormatDate(chunk.OccurredAt, now),
		Author:         chunk.Author,
		Snippet:        centeredSnippet(chunk.Content, offsets),
		RelevanceScore: relevanceScore,
		SourceURL:      chunk.SourceURL,
	}
}

func centeredSnippet(content string, offsets model.CharOffsets) string {
	if len(content) == 0 {
		return ""
	}
	center := (offsets.Start + offsets.End) / 2
	radius := SnippetClip / 2
	from := center - radius
	if from < 0 {
		from = 0
	}
	to := center + radius
	if to > len(content) {
		to = len(content)
	}
	for i := from; i > 0 && from-i < radius/2; i-- {
		if content[i-1] == '.' || content[i-1] == '\n' {
			from = i
			break
		}
	}
	for i := to; i < len(content) && i-to < radius/2; i++ {
		if content[i] == '.' || content[i] == '\n' {
			to = i + 1
			break
		}
	}
	snippet := content[from:to]
	if len(snippet) > SnippetClip {
		snippet = snippet[:SnippetClip]
	}
	return snippet
}

// SortByRelevance sorts provenance entries by descending relevance score.
func SortByRelevance(entries []model.ProvenanceEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].RelevanceScore > entries[j].RelevanceScore
	})
}

// GroupByArtifact buckets provenance entries by artifact id, keeping each
// bucket in input order.
func GroupByArtifact(entries []model.ProvenanceEntry) map[string][]model.ProvenanceEntry {
	groups := make(map[string][]model.ProvenanceEntry)
	for _, e := range entries {
		groups[e.ArtifactID] = append(groups[e.ArtifactID], e)
	}
	return groups
}

// Dedup stably removes duplicate (artifact_id, snippet) provenance entries,
// keeping the first (highest-ranked) occurrence.
func Dedup(entries []model.ProvenanceEntry) []model.ProvenanceEntry {
	seen := make(map[string]struct{}, len(entries))
	out := make([]model.ProvenanceEntry, 0, len(entries))
	for _, e := range entries {
		key := e.ArtifactID + "|" + e.Snippet
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}
