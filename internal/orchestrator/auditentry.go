package orchestrator

import (
	"time"

	"github.com/intelligencedev/clinical-core/internal/apperr"
	"github.com/intelligencedev/clinical-core/internal/model"
)

func (c *Core) buildAuditEntry(r *run, query, patientID string, opt Options, resp model.UIResponse, failedStage stage, stageErr error) model.AuditEntry {
	artifactIDs := make([]string, 0, len(r.candidates))
	chunkIDs := make([]string, 0, len(r.candidates))
	scores := make([]float64, 0, len(r.candidates))
	for _, cand := range r.candidates {
		artifactIDs = append(artifactIDs, cand.Chunk.ArtifactID)
		chunkIDs = append(chunkIDs, cand.Chunk.ChunkID)
		scores = append(scores, cand.Score)
	}

	entry := model.AuditEntry{
		QueryID:   r.queryID,
		Timestamp: r.start,
		UserID:    opt.UserID,
		PatientID: patientID,
		QueryText: query,
		Retrieval: model.RetrievalAudit{
			ArtifactIDs: artifactIDs,
			ChunkIDs:    chunkIDs,
			Scores:      scores,
			Method:      "hybrid",
			TimeMS:      r.stageMS[string(stageRetrieval)],
		},
		LLM: model.LLMAudit{
			Prompt:      r.genResult.Prompt,
			Response:    r.genResult.Raw.Text,
			Model:       r.genResult.Raw.ModelVersion,
			Version:     r.genResult.Raw.ModelVersion,
			Temperature: r.genTemperature,
			MaxTokens:   r.genMaxTokens,
			Tokens:      r.genResult.Raw.Tokens,
			LatencyMS:   r.genResult.Raw.LatencyMS,
		},
		ResponseSummary: resp.ShortAnswer,
		Confidence:      resp.Confidence,
		Success:         failedStage == "",
		TotalTimeMS:     time.Since(r.start).Milliseconds(),
		SessionID:       opt.SessionID,
		PipelineVersion: c.deps.PipelineVersion,
	}
	if stageErr != nil {
		entry.Error = string(apperr.KindOf(stageErr)) + ": " + stageErr.Error()
	}
	return entry
}
