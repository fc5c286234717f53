package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/intelligencedev/clinical-core/internal/model"
)

func hashText(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// EmbeddingKey normalizes text before hashing so whitespace/case variants of
// the same string share a cache entry.
func EmbeddingKey(text string) string {
	return hashText(strings.ToLower(strings.TrimSpace(text)))
}

// QueryResultKey hashes the normalized query together with the patient id
// and a canonical (stably-ordered) JSON encoding of the filters, so two
// structurally-identical filter sets always produce the same key regardless
// of slice ordering.
func QueryResultKey(query, patientID string, filters model.QueryFilters) string {
	canon := canonicalFilters(filters)
	encoded, _ := json.Marshal(canon)
	normalized := strings.ToLower(strings.TrimSpace(query))
	return hashText(normalized + "|" + patientID + "|" + string(encoded))
}

type canonicalFilterSet struct {
	ArtifactTypes []string `json:"artifact_types,omitempty"`
	DateFrom      string   `json:"date_from,omitempty"`
	DateTo        string   `json:"date_to,omitempty"`
}

func canonicalFilters(f model.QueryFilters) canonicalFilterSet {
	types := make([]string, 0, len(f.ArtifactTypes))
	for _, t := range f.ArtifactTypes {
		types = append(types, string(t))
	}
	sort.Strings(types)

	out := canonicalFilterSet{ArtifactTypes: types}
	if f.DateRange != nil {
		out.DateFrom = f.DateRange.From.UTC().Format("2006-01-02")
		out.DateTo = f.DateRange.To.UTC().Format("2006-01-02")
	}
	return out
}
