// Package citation validates generator extractions against the candidate
// chunks they claim to cite, the last gate before response assembly.
package citation

import (
	"strings"

	"github.com/intelligencedev/clinical-core/internal/model"
)

// IssueKind is the closed set of validation outcomes.
type IssueKind string

const (
	IssueMissingProvenance IssueKind = "missing_provenance"
	IssueInvalidArtifactID IssueKind = "invalid_artifact_id"
	IssueInvalidOffsets    IssueKind = "invalid_offsets"
	IssueTextMismatch      IssueKind = "text_mismatch"
	IssueWhitespaceMismatch IssueKind = "whitespace_mismatch"
	IssueCaseMismatch      IssueKind = "case_mismatch"
)

// fatal reports whether an issue kind drops its extraction, versus being
// logged as a non-fatal warning.
func (k IssueKind) fatal() bool {
	switch k {
	case IssueWhitespaceMismatch, IssueCaseMismatch:
		return false
	default:
		return true
	}
}

// Issue is one validation finding against a single extraction.
type Issue struct {
	ExtractionIndex int
	Kind            IssueKind
	Detail          string
}

// Result is the validated, filtered extraction set plus every issue found.
type Result struct {
	Valid    []model.Extraction
	Warnings []Issue
	Errors   []Issue
}

// Validate checks every extraction's provenance against the candidates that
// produced it, dropping extractions with a fatal error and keeping the rest
// with their warnings attached for logging.
func Validate(extractions []model.Extraction, candidates []model.RetrievalCandidate) Result {
	byChunk := make(map[string]model.Chunk, len(candidates))
	for _, c := range candidates {
		byChunk[c.Chunk.ChunkID] = c.Chunk
	}

	var res Result
	for i, e := range extractions {
		issues, fatal := validateOne(i, e, byChunk)
		for _, iss := range issues {
			if iss.Kind.fatal() {
				res.Errors = append(res.Errors, iss)
			} else {
				res.Warnings = append(res.Warnings, iss)
			}
		}
		if !fatal {
			res.Valid = append(res.Valid, e)
		}
	}
	return res
}

func validateOne(idx int, e model.Extraction, byChunk map[string]model.Chunk) ([]Issue, bool) {
	p := e.Provenance
	if p.ChunkID == "" && p.ArtifactID == "" && p.SupportingText == "" {
		return []Issue{{ExtractionIndex: idx, Kind: IssueMissingProvenance}}, true
	}

	chunk, ok := byChunk[p.ChunkID]
	if !ok || chunk.ArtifactID != p.ArtifactID {
		return []Issue{{ExtractionIndex: idx, Kind: IssueInvalidArtifactID}}, true
	}

	if !p.CharOffsets.Valid(len(chunk.Content)) {
		return []Issue{{ExtractionIndex: idx, Kind: IssueInvalidOffsets}}, true
	}

	actual := chunk.Content[p.CharOffsets.Start:p.CharOffsets.End]
	if actual == p.SupportingText {
		return nil, false
	}
	if strings.TrimSpace(actual) == strings.TrimSpace(p.SupportingText) {
		return []Issue{{ExtractionIndex: idx, Kind: IssueWhitespaceMismatch, Detail: actual}}, false
	}
	if strings.EqualFold(actual, p.SupportingText) {
		return []Issue{{ExtractionIndex: idx, Kind: IssueCaseMismatch, Detail: actual}}, false
	}
	return []Issue{{ExtractionIndex: idx, Kind: IssueTextMismatch, Detail: actual}}, true
}

// AnyFatal reports whether the result contains at least one error-level issue.
func (r Result) AnyFatal() bool {
	return len(r.Errors) > 0
}
