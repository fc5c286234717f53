package audit

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/intelligencedev/clinical-core/internal/model"
)

// ExportJSON writes entries to w as a JSON array, preserving order.
func ExportJSON(w io.Writer, entries []model.AuditEntry) error {
	enc := json.NewEncoder(w)
	return enc.Encode(entries)
}

var csvHeader = []string{
	"query_id", "timestamp", "user_id", "patient_id", "evaluator",
	"success", "confidence_label", "total_time_ms", "rating", "error",
}

// ExportCSV writes entries to w as CSV with a fixed header, one row per
// entry in the same order they were passed in.
func ExportCSV(w io.Writer, entries []model.AuditEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, e := range entries {
		rating := ""
		if e.Rating != nil {
			rating = strconv.Itoa(*e.Rating)
		}
		row := []string{
			e.QueryID,
			e.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			e.UserID,
			e.PatientID,
			e.Evaluator,
			strconv.FormatBool(e.Success),
			string(e.Confidence.Label),
			strconv.FormatInt(e.TotalTimeMS, 10),
			rating,
			e.Error,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
