package retrieve

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/intelligencedev/clinical-core/internal/contracts"
	"github.com/intelligencedev/clinical-core/internal/model"
)

// DefaultAlpha weights semantic score against lexical score.
const DefaultAlpha = 0.7

// TopN is the number of hybrid candidates carried forward into scoring.
const TopN = 20

var tokenRe = regexp.MustCompile(`[a-zA-Z0-9]+`)

// HybridResult is one chunk scored by both retrieval signals.
type HybridResult struct {
	Chunk          model.Chunk
	SemanticScore  float64
	LexicalScore   float64
	CombinedScore  float64
}

// HybridSearch blends dense (cosine) and lexical (BM25-style) scores over
// the filtered chunk id set, returning the top 20 by combined score. If the
// filtered set is empty, it returns no results, and the caller
// short-circuits to a "no matching records" response.
func HybridSearch(
	ctx context.Context,
	vector contracts.VectorIndex,
	store contracts.MetadataStore,
	embedder contracts.Embedder,
	originalQuery string,
	entities []model.Entity,
	expansion []model.ExpansionTerm,
	filteredIDs []string,
	alpha float64,
) ([]HybridResult, error) {
	if len(filteredIDs) == 0 {
		return nil, nil
	}
	if alpha <= 0 {
		alpha = DefaultAlpha
	}

	chunks, err := store.GetChunksByIDs(ctx, filteredIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ChunkID] = c
	}

	terms := lexicalTerms(originalQuery, entities, expansion)
	lexScores := bm25Scores(chunks, terms)

	queryVec, err := embedder.Embed(ctx, originalQuery)
	if err != nil {
		return nil, err
	}
	hits, err := vector.Search(ctx, queryVec, filteredIDs, len(filteredIDs))
	if err != nil {
		return nil, err
	}
	semScores := make(map[string]float64, len(hits))
	for _, h := range hits {
		semScores[h.ChunkID] = h.Score
	}

	out := make([]HybridResult, 0, len(chunks))
	for _, c := range chunks {
		s := semScores[c.ChunkID]
		k := lexScores[c.ChunkID]
		out = append(out, HybridResult{
			Chunk:         c,
			SemanticScore: s,
			LexicalScore:  k,
			CombinedScore: alpha*s + (1-alpha)*k,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CombinedScore != out[j].CombinedScore {
			return out[i].CombinedScore > out[j].CombinedScore
		}
		return out[i].Chunk.ChunkID < out[j].Chunk.ChunkID
	})
	if len(out) > TopN {
		out = out[:TopN]
	}
	return out, nil
}

// lexicalTerms builds the weighted term set from original_query ∪
// entity.normalized ∪ expansion_terms (weighted by expansion weight).
func lexicalTerms(query string, entities []model.Entity, expansion []model.ExpansionTerm) map[string]float64 {
	terms := map[string]float64{}
	for _, tok := range tokenize(query) {
		terms[tok] = 1.0
	}
	for _, e := range entities {
		for _, tok := range tokenize(e.Normalized) {
			if terms[tok] < 1.0 {
				terms[tok] = 1.0
			}
		}
	}
	for _, ex := range expansion {
		w := ex.Weight
		if w <= 0 || w > 1.0 {
			w = 1.0
		}
		for _, tok := range tokenize(ex.Term) {
			if terms[tok] < w {
				terms[tok] = w
			}
		}
	}
	return terms
}

func tokenize(s string) []string {
	return tokenRe.FindAllString(strings.ToLower(s), -1)
}

// bm25Scores computes a BM25-style lexical score per chunk over the weighted
// term set.
func bm25Scores(chunks []model.Chunk, terms map[string]float64) map[string]float64 {
	const k1 = 1.2
	const b = 0.75

	docFreq := map[string]int{}
	docLen := make([]int, len(chunks))
	totalLen := 0
	docTerms := make([]map[string]int, len(chunks))
	for i, c := range chunks {
		toks := tokenize(c.Content)
		docLen[i] = len(toks)
		totalLen += len(toks)
		tf := map[string]int{}
		for _, tok := range toks {
			tf[tok]++
		}
		docTerms[i] = tf
		for term := range terms {
			if tf[term] > 0 {
				docFreq[term]++
			}
		}
	}
	n := len(chunks)
	avgLen := 1.0
	if n > 0 {
		avgLen = float64(totalLen) / float64(n)
	}

	out := make(map[string]float64, n)
	for i, c := range chunks {
		score := 0.0
		for term, weight := range terms {
			df := docFreq[term]
			if df == 0 {
				continue
			}
			idf := math.Log(1 + (float64(n)-float64(df)+0.5)/(float64(df)+0.5))
			tf := float64(docTerms[i][term])
			if tf == 0 {
				continue
			}
			denom := tf + k1*(1-b+b*float64(docLen[i])/avgLen)
			score += weight * idf * (tf * (k1 + 1) / denom)
		}
		out[c.ChunkID] = score
	}
	// Normalize into [0,1] by the max observed score so it combines cleanly
	// with the [0,1] cosine semantic score.
	max := 0.0
	for _, v := range out {
		if v > max {
			max = v
		}
	}
	if max > 0 {
		for id, v := range out {
			out[id] = v / max
		}
	}
	return out
}
