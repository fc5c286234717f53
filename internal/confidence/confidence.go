// Package confidence scores a UIResponse's trustworthiness and formats its
// citation/date fields for display.
package confidence

import (
	"github.com/intelligencedev/clinical-core/internal/model"
)

const (
	highThreshold   = 0.75
	mediumThreshold = 0.5
	// diversityCap bounds the diversity term's contribution so a handful of
	// citations from many artifacts can't alone push confidence to 1.0.
	diversityCap = 5
)

// Score combines validated-extraction coverage, mean retrieval score of
// cited chunks, and citation diversity into a single [0,1] confidence score.
func Score(producedCount, validatedCount int, citedScores []float64, citedArtifactIDs []string) model.Confidence {
	coverage := 0.0
	if producedCount > 0 {
		coverage = float64(validatedCount) / float64(producedCount)
	}

	meanScore := 0.0
	if len(citedScores) > 0 {
		sum := 0.0
		for _, s := range citedScores {
			sum += s
		}
		meanScore = sum / float64(len(citedScores))
	}

	distinct := map[string]struct{}{}
	for _, id := range citedArtifactIDs {
		distinct[id] = struct{}{}
	}
	diversity := float64(len(distinct))
	if diversity > diversityCap {
		diversity = diversityCap
	}
	diversity = diversity / diversityCap

	score := (coverage + meanScore + diversity) / 3.0
	return model.Confidence{
		Score:  score,
		Label:  labelFor(score),
		Reason: reasonFor(coverage, meanScore, diversity),
	}
}

func labelFor(score float64) model.ConfidenceLabel {
	switch {
	case score >= highThreshold:
		return model.ConfidenceHigh
	case score >= mediumThreshold:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

func reasonFor(coverage, meanScore, diversity float64) string {
	switch {
	case coverage == 0:
		return "no validated extractions"
	case meanScore < 0.3:
		return "cited chunks had low retrieval relevance"
	case diversity < 0.4:
		return "citations concentrated in few artifacts"
	default:
		return "well-supported by validated, diverse citations"
	}
}
