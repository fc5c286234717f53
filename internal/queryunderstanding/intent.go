package queryunderstanding

import (
	"strings"

	"github.com/intelligencedev/clinical-core/internal/model"
)

// intentOrder is the deterministic tie-break order when scores are equal.
var intentOrder = []model.Intent{
	model.IntentRetrieveMedications,
	model.IntentRetrieveCarePlans,
	model.IntentRetrieveNotes,
	model.IntentSummary,
	model.IntentComparison,
	model.IntentRetrieveAll,
}

var intentKeywords = map[model.Intent][]string{
	model.IntentRetrieveMedications: {"medication", "medications", "med", "meds", "drug", "drugs", "prescription", "prescriptions", "dosage", "dose"},
	model.IntentRetrieveCarePlans:   {"care plan", "care plans", "treatment plan", "goals", "plan of care"},
	model.IntentRetrieveNotes:       {"note", "notes", "visit note", "progress note", "clinical note"},
	model.IntentSummary:             {"summarize", "summary", "overview", "recap"},
	model.IntentComparison:          {"compare", "comparison", "versus", "vs", "difference between", "changed"},
	model.IntentRetrieveAll:         {"everything", "all records", "full record", "history"},
}

// ClassifyIntent deterministically classifies a query's intent by keyword
// match, breaking ties with the fixed priority order in intentOrder.
// The source system also named a RETRIEVE_PATIENTS intent that was never
// produced; that case is treated as RETRIEVE_ALL.
func ClassifyIntent(query string) model.Intent {
	q := strings.ToLower(query)
	for _, intent := range intentOrder {
		for _, kw := range intentKeywords[intent] {
			if strings.Contains(q, kw) {
				return intent
			}
		}
	}
	return model.IntentUnknown
}
