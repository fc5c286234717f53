package orchestrator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/intelligencedev/clinical-core/internal/model"
)

// assembleResponse builds the final UIResponse from a run that completed
// every stage successfully.
func assembleResponse(r *run) model.UIResponse {
	extractions := r.citationResult.Valid
	return model.UIResponse{
		ShortAnswer:           shortAnswer(extractions),
		DetailedSummary:       detailedSummary(extractions),
		StructuredExtractions: extractions,
		Provenance:            r.provenance,
		Confidence:            r.conf,
	}
}

func shortAnswer(extractions []model.Extraction) string {
	if len(extractions) == 0 {
		return "No supported answer could be extracted from the patient's record for this query."
	}
	return extractionLine(extractions[0])
}

func detailedSummary(extractions []model.Extraction) string {
	if len(extractions) == 0 {
		return ""
	}
	lines := make([]string, 0, len(extractions))
	for _, e := range extractions {
		lines = append(lines, "- "+extractionLine(e))
	}
	return strings.Join(lines, "\n")
}

func extractionLine(e model.Extraction) string {
	switch {
	case e.Medication != nil:
		return medicationLine(*e.Medication)
	case e.CarePlan != nil:
		return e.CarePlan.Goal
	case e.General != nil:
		return generalLine(*e.General)
	default:
		return e.Provenance.SupportingText
	}
}

func medicationLine(m model.MedicationContent) string {
	if m.Dosage == "" {
		return m.Medication
	}
	return fmt.Sprintf("%s %s", m.Medication, m.Dosage)
}

func generalLine(g model.GeneralNoteContent) string {
	if summary, ok := g.Fields["summary"]; ok {
		return summary
	}
	keys := make([]string, 0, len(g.Fields))
	for k := range g.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, g.Fields[k]))
	}
	return strings.Join(parts, "; ")
}

// noResultsResponse is returned when the retrieval stage's filtered set or
// hybrid search is empty.
func noResultsResponse() model.UIResponse {
	return model.UIResponse{
		ShortAnswer:     "No matching records were found for this query.",
		DetailedSummary: "",
		Confidence:      model.Confidence{Score: 0, Label: model.ConfidenceLow, Reason: "no matching records"},
		Metadata:        model.ResponseMetadata{Error: "no_results"},
	}
}
