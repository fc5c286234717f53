package queryunderstanding

import "github.com/intelligencedev/clinical-core/internal/model"

// intentSynonyms maps an intent to additional search terms with a weight
// (<=1.0) consumed by the lexical scorer.
var intentSynonyms = map[model.Intent][]model.ExpansionTerm{
	model.IntentRetrieveMedications: {{Term: "prescription", Weight: 0.8}, {Term: "dosage", Weight: 0.6}, {Term: "medication order", Weight: 0.7}},
	model.IntentRetrieveCarePlans:   {{Term: "treatment plan", Weight: 0.8}, {Term: "goal", Weight: 0.5}},
	model.IntentRetrieveNotes:       {{Term: "progress note", Weight: 0.7}, {Term: "visit summary", Weight: 0.5}},
	model.IntentSummary:             {{Term: "overview", Weight: 0.5}},
	model.IntentComparison:          {{Term: "change", Weight: 0.5}, {Term: "trend", Weight: 0.4}},
}

// entitySynonyms expands a handful of normalized clinical terms.
var entitySynonyms = map[string][]model.ExpansionTerm{
	"hypertension":             {{Term: "high blood pressure", Weight: 0.7}, {Term: "htn", Weight: 0.6}},
	"diabet":                   {{Term: "diabetes mellitus", Weight: 0.8}, {Term: "dm", Weight: 0.5}},
	"type 2 diabet":            {{Term: "t2dm", Weight: 0.6}},
	"shortness of breath":      {{Term: "dyspnea", Weight: 0.7}},
}

// Expand produces intent- and entity-based synonym expansion terms, each
// with a per-synonym weight.
func Expand(intent model.Intent, entities []model.Entity) []model.ExpansionTerm {
	var out []model.ExpansionTerm
	seen := map[string]bool{}
	add := func(terms []model.ExpansionTerm) {
		for _, t := range terms {
			if seen[t.Term] {
				continue
			}
			seen[t.Term] = true
			out = append(out, t)
		}
	}
	add(intentSynonyms[intent])
	for _, e := range entities {
		add(entitySynonyms[e.Normalized])
	}
	return out
}
