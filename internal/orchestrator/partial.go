package orchestrator

import (
	"strings"

	"github.com/intelligencedev/clinical-core/internal/apperr"
	"github.com/intelligencedev/clinical-core/internal/model"
)

// deadlineRetrievalMessage is the user-visible short answer when the
// deadline expires after retrieval has produced candidates.
const deadlineRetrievalMessage = "Query is taking longer than expected. Showing supporting snippets without full analysis."

// partialResult selects the richest available fallback in priority order —
// validated extractions, retrieved snippets, structured query, nothing —
// and returns a UIResponse with metadata.partial=true and metadata.error
// set to the failing stage's error kind. The generator's output is not
// used as a fallback tier of its own.
func partialResult(r *run, failed stage, err error) model.UIResponse {
	kind := apperr.KindOf(err)
	resp := model.UIResponse{
		Confidence: model.Confidence{Score: 0, Label: model.ConfidenceLow, Reason: "partial result"},
		Metadata: model.ResponseMetadata{
			Partial: true,
			Error:   string(kind),
		},
	}

	switch {
	case r.completed[stageCitation] && len(r.citationResult.Valid) > 0:
		resp.StructuredExtractions = r.citationResult.Valid
		resp.ShortAnswer = shortAnswer(r.citationResult.Valid)
		resp.DetailedSummary = detailedSummary(r.citationResult.Valid)
	case r.completed[stageRetrieval] && len(r.candidates) > 0:
		if kind == apperr.KindDeadlineExceeded {
			resp.ShortAnswer = deadlineRetrievalMessage
		} else {
			resp.ShortAnswer = "Retrieved records that may answer this question, but could not generate a verified summary."
		}
		resp.DetailedSummary, resp.Provenance = snippetFallback(r.candidates)
	case r.completed[stageQueryUnderstanding]:
		resp.ShortAnswer = "Understood the question but could not retrieve or generate an answer."
	default:
		resp.ShortAnswer = "Unable to process this query."
	}

	if resp.Provenance == nil && r.completed[stageProvenance] {
		resp.Provenance = r.provenance
	}
	return resp
}

// snippetFallback surfaces the top 3 retrieved candidates as bullets, with
// their artifact ids feeding the provenance list.
func snippetFallback(candidates []model.RetrievalCandidate) (string, []model.ProvenanceEntry) {
	n := 3
	if len(candidates) < n {
		n = len(candidates)
	}
	lines := make([]string, 0, n)
	provenance := make([]model.ProvenanceEntry, 0, n)
	for i := 0; i < n; i++ {
		c := candidates[i]
		lines = append(lines, "- "+c.Snippet)
		provenance = append(provenance, model.ProvenanceEntry{
			ArtifactID:     c.Chunk.ArtifactID,
			ArtifactType:   c.Chunk.ArtifactType,
			Author:         c.Chunk.Author,
			Snippet:        c.Snippet,
			RelevanceScore: c.Score,
			SourceURL:      c.Chunk.SourceURL,
		})
	}
	return strings.Join(lines, "\n"), provenance
}
