package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/intelligencedev/clinical-core/internal/contracts"
	"github.com/intelligencedev/clinical-core/internal/model"
)

// Result carries the parsed extractions alongside the raw generator call
// details needed for the audit entry.
type Result struct {
	Extractions []model.Extraction
	Raw         contracts.GenerationResult
	Prompt      string
}

// extractionEnvelope is the strict-JSON shape the system prompt requires.
type extractionEnvelope struct {
	Extractions []json.RawMessage `json:"extractions"`
}

type rawExtraction struct {
	Type       model.ExtractionType       `json:"type"`
	Medication *model.MedicationContent   `json:"medication,omitempty"`
	CarePlan   *model.CarePlanContent     `json:"care_plan,omitempty"`
	General    *model.GeneralNoteContent  `json:"general,omitempty"`
	Provenance model.Provenance           `json:"provenance"`
}

// Generate calls the generator synchronously with the fixed system prompt
// and a candidate-formatted user prompt, then parses the strict-JSON
// response into typed Extractions.
func Generate(ctx context.Context, gen contracts.Generator, mode Mode, candidates []model.RetrievalCandidate, originalQuery string) (Result, error) {
	temperature, maxTokens := ConfigFor(mode)
	user := BuildUserPrompt(candidates, originalQuery)

	start := time.Now()
	raw, err := gen.Generate(ctx, SystemPrompt, user, contracts.GenerationConfig{Temperature: temperature, MaxTokens: maxTokens})
	if err != nil {
		return Result{}, err
	}
	if raw.LatencyMS == 0 {
		raw.LatencyMS = time.Since(start).Milliseconds()
	}

	extractions, err := parseExtractions(raw.Text)
	if err != nil {
		return Result{Raw: raw, Prompt: user}, fmt.Errorf("parse generator output: %w", err)
	}
	return Result{Extractions: extractions, Raw: raw, Prompt: user}, nil
}

func parseExtractions(text string) ([]model.Extraction, error) {
	var env extractionEnvelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return nil, err
	}
	out := make([]model.Extraction, 0, len(env.Extractions))
	for _, raw := range env.Extractions {
		var re rawExtraction
		if err := json.Unmarshal(raw, &re); err != nil {
			return nil, err
		}
		out = append(out, model.Extraction{
			Type:       re.Type,
			Medication: re.Medication,
			CarePlan:   re.CarePlan,
			General:    re.General,
			Provenance: re.Provenance,
		})
	}
	return out, nil
}
