// Package queryunderstanding turns a clinician's free-text question into a
// StructuredQuery: intent classification, temporal parsing, entity
// extraction, and query expansion. Pure; no I/O.
package queryunderstanding

import (
	"time"

	"github.com/google/uuid"

	"github.com/intelligencedev/clinical-core/internal/model"
)

// Options configures Understand. Now defaults to time.Now when zero.
type Options struct {
	Now         time.Time
	DetailLevel int
}

// Understand produces a StructuredQuery from the original query text and
// patient id.
func Understand(originalQuery, patientID string, opt Options) model.StructuredQuery {
	now := opt.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	detail := opt.DetailLevel
	if detail <= 0 || detail > 5 {
		detail = 3
	}

	intent := ClassifyIntent(originalQuery)
	entities := ExtractEntities(originalQuery)
	temporal := ParseTemporal(originalQuery, now)
	expansion := Expand(intent, entities)

	filters := model.QueryFilters{}
	if temporal != nil && temporal.DateFrom != nil && temporal.DateTo != nil {
		filters.DateRange = &model.DateRange{From: *temporal.DateFrom, To: *temporal.DateTo}
	}
	if types := intentArtifactTypes(intent); len(types) > 0 {
		filters.ArtifactTypes = types
	}

	return model.StructuredQuery{
		QueryID:        uuid.NewString(),
		OriginalQuery:  originalQuery,
		PatientID:      patientID,
		Intent:         intent,
		Entities:       entities,
		TemporalFilter: temporal,
		Filters:        filters,
		DetailLevel:    detail,
		ExpansionTerms: expansion,
	}
}

func intentArtifactTypes(intent model.Intent) []model.ArtifactType {
	switch intent {
	case model.IntentRetrieveMedications:
		return []model.ArtifactType{model.ArtifactMedication}
	case model.IntentRetrieveCarePlans:
		return []model.ArtifactType{model.ArtifactCarePlan}
	case model.IntentRetrieveNotes:
		return []model.ArtifactType{model.ArtifactNote}
	default:
		return nil
	}
}
