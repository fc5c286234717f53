package retrieve

import (
	"strings"

	"github.com/intelligencedev/clinical-core/internal/model"
)

// intentTypeAffinity is a per-intent table of preferred artifact types,
// reused by both the scorer's affinity term and the reranker's type-match
// bonus.
var intentTypeAffinity = map[model.Intent]map[model.ArtifactType]float64{
	model.IntentRetrieveMedications: {model.ArtifactMedication: 1.0},
	model.IntentRetrieveCarePlans:   {model.ArtifactCarePlan: 1.0},
	model.IntentRetrieveNotes:       {model.ArtifactNote: 1.0},
}

const defaultTypeAffinity = 0.3

// scoreWeights are the fixed weights per intent used by the blended scorer;
// all intents share the same weight vector, normalized to [0,1] by
// construction (each input signal is itself already in [0,1]).
type scoreWeights struct {
	hybrid, affinity, coverage, keyword, recency float64
}

var defaultScoreWeights = scoreWeights{hybrid: 0.5, affinity: 0.2, coverage: 0.15, keyword: 0.1, recency: 0.05}

// Score blends hybrid score, intent-to-type affinity, entity coverage,
// keyword match, and a recency boost into a single [0,1] score.
func Score(hr HybridResult, sq model.StructuredQuery, referenceTime int64) float64 {
	w := defaultScoreWeights
	affinity := typeAffinity(sq.Intent, hr.Chunk.ArtifactType)
	coverage := entityCoverage(hr.Chunk.Content, sq.Entities)
	keyword := keywordMatch(hr.Chunk.Content, sq.OriginalQuery)
	recency := recencyBoost(hr.Chunk.OccurredAt.Unix(), referenceTime)

	return w.hybrid*hr.CombinedScore + w.affinity*affinity + w.coverage*coverage +
		w.keyword*keyword + w.recency*recency
}

func typeAffinity(intent model.Intent, t model.ArtifactType) float64 {
	if table, ok := intentTypeAffinity[intent]; ok {
		if v, ok := table[t]; ok {
			return v
		}
	}
	return defaultTypeAffinity
}

func entityCoverage(content string, entities []model.Entity) float64 {
	if len(entities) == 0 {
		return 0
	}
	lc := strings.ToLower(content)
	hit := 0
	for _, e := range entities {
		if strings.Contains(lc, strings.ToLower(e.Normalized)) || strings.Contains(lc, strings.ToLower(e.Text)) {
			hit++
		}
	}
	return float64(hit) / float64(len(entities))
}

func keywordMatch(content, query string) float64 {
	qTokens := tokenize(query)
	if len(qTokens) == 0 {
		return 0
	}
	cTokens := map[string]bool{}
	for _, t := range tokenize(content) {
		cTokens[t] = true
	}
	hit := 0
	for _, t := range qTokens {
		if cTokens[t] {
			hit++
		}
	}
	return float64(hit) / float64(len(qTokens))
}

// recencyBoost favors chunks closer to the reference time, clamped to [0,1]
// over a 365-day horizon.
func recencyBoost(occurredUnix, referenceUnix int64) float64 {
	days := float64(referenceUnix-occurredUnix) / 86400.0
	if days < 0 {
		days = 0
	}
	boost := 1.0 - days/365.0
	if boost < 0 {
		return 0
	}
	if boost > 1 {
		return 1
	}
	return boost
}

// queryOverlap is |query_tokens ∩ content_tokens| / |query_tokens|, the
// reranker's query_overlap term.
func queryOverlap(content, query string) float64 {
	return keywordMatch(content, query)
}
