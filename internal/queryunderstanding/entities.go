package queryunderstanding

import (
	"regexp"
	"sort"
	"strings"

	"github.com/intelligencedev/clinical-core/internal/model"
)

// abbreviations is the fixed medical-abbreviation expansion table.
var abbreviations = map[string]string{
	"bid": "twice daily",
	"tid": "three times daily",
	"qid": "four times daily",
	"qd":  "once daily",
	"htn": "hypertension",
	"dm":  "diabetes mellitus",
	"cad": "coronary artery disease",
	"copd": "chronic obstructive pulmonary disease",
	"sob": "shortness of breath",
	"prn": "as needed",
}

var inflectionSuffixes = []string{"ing", "ed", "es", "s", "ly", "ness", "ment"}

var medicationDictionary = []string{
	"metformin", "lisinopril", "atorvastatin", "amlodipine", "metoprolol",
	"omeprazole", "albuterol", "insulin", "aspirin", "warfarin", "losartan",
	"hydrochlorothiazide", "gabapentin", "sertraline", "levothyroxine",
}

var conditionDictionary = []string{
	"diabetes", "hypertension", "asthma", "copd", "obesity", "depression",
	"anxiety", "hyperlipidemia", "osteoarthritis", "hypothyroidism",
	"type 2 diabetes", "coronary artery disease",
}

var symptomDictionary = []string{
	"pain", "fatigue", "nausea", "dizziness", "shortness of breath",
	"headache", "cough", "fever", "swelling", "chest pain", "numbness",
}

var personRe = regexp.MustCompile(`\b(?:Dr\.?|Doctor|Nurse)\s+[A-Z][a-z]+\b`)

// ExtractEntities runs regex/dictionary extraction for medications, conditions,
// symptoms, and persons; dates are delegated to ParseTemporal. Overlapping
// matches are resolved by keeping the higher-confidence mention.
func ExtractEntities(query string) []model.Entity {
	var found []model.Entity
	found = append(found, matchDictionary(query, medicationDictionary, model.EntityMedication, 0.9)...)
	found = append(found, matchDictionary(query, conditionDictionary, model.EntityCondition, 0.85)...)
	found = append(found, matchDictionary(query, symptomDictionary, model.EntitySymptom, 0.75)...)
	found = append(found, matchPersons(query)...)
	return resolveOverlaps(found)
}

func matchDictionary(query string, dict []string, t model.EntityType, confidence float64) []model.Entity {
	q := strings.ToLower(query)
	var out []model.Entity
	for _, term := range dict {
		idx := 0
		for {
			pos := strings.Index(q[idx:], term)
			if pos == -1 {
				break
			}
			start := idx + pos
			end := start + len(term)
			out = append(out, model.Entity{
				Text:       query[start:end],
				Type:       t,
				Normalized: Normalize(term),
				Confidence: confidence,
				Position:   &model.CharOffsets{Start: start, End: end},
			})
			idx = end
		}
	}
	return out
}

func matchPersons(query string) []model.Entity {
	var out []model.Entity
	for _, loc := range personRe.FindAllStringIndex(query, -1) {
		text := query[loc[0]:loc[1]]
		out = append(out, model.Entity{
			Text:       text,
			Type:       model.EntityPerson,
			Normalized: Normalize(text),
			Confidence: 0.7,
			Position:   &model.CharOffsets{Start: loc[0], End: loc[1]},
		})
	}
	return out
}

// resolveOverlaps keeps the higher-confidence entity when two mentions'
// positions overlap.
func resolveOverlaps(entities []model.Entity) []model.Entity {
	sort.SliceStable(entities, func(i, j int) bool {
		return posStart(entities[i]) < posStart(entities[j])
	})
	var out []model.Entity
	for _, e := range entities {
		if len(out) == 0 {
			out = append(out, e)
			continue
		}
		last := &out[len(out)-1]
		if overlaps(*last, e) {
			if e.Confidence > last.Confidence {
				out[len(out)-1] = e
			}
			continue
		}
		out = append(out, e)
	}
	return out
}

func posStart(e model.Entity) int {
	if e.Position == nil {
		return 0
	}
	return e.Position.Start
}

func overlaps(a, b model.Entity) bool {
	if a.Position == nil || b.Position == nil {
		return false
	}
	return a.Position.Start < b.Position.End && b.Position.Start < a.Position.End
}

// Normalize lowercases, trims, expands fixed abbreviations, and strips a
// simple inflection suffix when the resulting stem is at least 3 chars.
func Normalize(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	if expanded, ok := abbreviations[s]; ok {
		return expanded
	}
	for _, suf := range inflectionSuffixes {
		if strings.HasSuffix(s, suf) {
			stem := strings.TrimSuffix(s, suf)
			if len(stem) >= 3 {
				return stem
			}
		}
	}
	return s
}
