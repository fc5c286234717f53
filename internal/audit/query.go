package audit

import (
	"time"

	"github.com/intelligencedev/clinical-core/internal/model"
)

// Filter narrows a Query call to entries matching every populated field.
type Filter struct {
	PatientID  string
	Evaluator  string
	From       time.Time
	To         time.Time
	Success    *bool
	MinRating  *int
	MaxRating  *int
}

// Query returns the ring's entries matching filter, privacy-applied, in
// insertion order.
func (l *Logger) Query(f Filter) []model.AuditEntry {
	entries := l.Snapshot()
	out := make([]model.AuditEntry, 0, len(entries))
	for _, e := range entries {
		if matches(e, f) {
			out = append(out, e)
		}
	}
	return out
}

func matches(e model.AuditEntry, f Filter) bool {
	if f.PatientID != "" && e.PatientID != f.PatientID {
		return false
	}
	if f.Evaluator != "" && e.Evaluator != f.Evaluator {
		return false
	}
	if !f.From.IsZero() && e.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Timestamp.After(f.To) {
		return false
	}
	if f.Success != nil && e.Success != *f.Success {
		return false
	}
	if f.MinRating != nil {
		if e.Rating == nil || *e.Rating < *f.MinRating {
			return false
		}
	}
	if f.MaxRating != nil {
		if e.Rating == nil || *e.Rating > *f.MaxRating {
			return false
		}
	}
	return true
}
