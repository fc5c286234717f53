// Package generation builds prompts for the extraction/summarization
// generator call and adapts the result into typed Extractions.
package generation

import (
	"fmt"
	"strings"

	"github.com/intelligencedev/clinical-core/internal/model"
)

// SystemPrompt is the fixed instruction given to the generator: it must
// only use the provided chunks, never infer, and return strict JSON with
// provenance on every extraction.
const SystemPrompt = `Only use information present in provided chunks; do not infer; return strict JSON with extractions[]; every extraction carries provenance with artifact_id, chunk_id, char_offsets [start,end], supporting_text (an exact quote).`

// Mode selects the generation config.
type Mode string

const (
	ModeExtraction    Mode = "extraction"
	ModeSummarization Mode = "summarization"
)

// MaxPromptTokens is the budget above which candidates are truncated from
// the tail.
const MaxPromptTokens = 4000

// ConfigFor returns the fixed temperature/max_tokens pair for a mode.
func ConfigFor(mode Mode) (temperature float64, maxTokens int) {
	if mode == ModeSummarization {
		return 0.3, 2000
	}
	return 0, 2000
}

// EstimateTokens approximates token count as ceil(chars/4).
func EstimateTokens(s string) int {
	if len(s) == 0 {
		return 0
	}
	return (len(s) + 3) / 4
}

// BuildUserPrompt formats candidates as "id header + body" blocks followed
// by the original query, truncating candidates greedily from the tail when
// the combined system+user token estimate exceeds MaxPromptTokens.
func BuildUserPrompt(candidates []model.RetrievalCandidate, originalQuery string) string {
	kept := candidates
	for {
		user := formatUserPrompt(kept, originalQuery)
		if EstimateTokens(SystemPrompt)+EstimateTokens(user) <= MaxPromptTokens || len(kept) <= 1 {
			return user
		}
		kept = kept[:len(kept)-1]
	}
}

func formatUserPrompt(candidates []model.RetrievalCandidate, originalQuery string) string {
	var b strings.Builder
	for _, c := range candidates {
		fmt.Fprintf(&b, "[chunk_id=%s artifact_id=%s type=%s]\n%s\n\n",
			c.Chunk.ChunkID, c.Chunk.ArtifactID, c.Chunk.ArtifactType, c.Chunk.Content)
	}
	b.WriteString("Query: ")
	b.WriteString(originalQuery)
	return b.String()
}
