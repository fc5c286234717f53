package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/intelligencedev/clinical-core/internal/apperr"
	"github.com/intelligencedev/clinical-core/internal/breaker"
	"github.com/intelligencedev/clinical-core/internal/indexing"
	"github.com/intelligencedev/clinical-core/internal/orchestrator"
)

type queryRequest struct {
	PatientID string          `json:"patient_id"`
	QueryText string          `json:"query_text"`
	Options   *queryReqOption `json:"options,omitempty"`
}

type queryReqOption struct {
	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp := s.core.Process(r.Context(), req.QueryText, req.PatientID, processOptions(req))
	status := statusForResponse(resp.Metadata.Error)
	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", strconv.Itoa(int(breaker.ResetTimeout/time.Second)))
	}
	respondJSON(w, status, resp)
}

func (s *Server) handleQueryStream(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	resp := s.core.Process(r.Context(), req.QueryText, req.PatientID, processOptions(req))

	for _, name := range stageNamesByElapsed(resp.Metadata.PerStageMS) {
		writeSSEEvent(w, name, map[string]any{"stage": name, "elapsed_ms": resp.Metadata.PerStageMS[name]})
		flusher.Flush()
	}
	writeSSEEvent(w, "result", resp)
	flusher.Flush()
}

func processOptions(req queryRequest) orchestrator.Options {
	opt := orchestrator.Options{Timeout: orchestrator.DefaultTimeout}
	if req.Options != nil {
		opt.UserID = req.Options.UserID
		opt.SessionID = req.Options.SessionID
		opt.AuditEnabled = req.Options.UserID != "" || req.Options.SessionID != ""
	}
	return opt
}

// statusForResponse maps metadata.error, which is always a bare error kind
// or empty, to an HTTP status. A partial result with no fatal stage error
// is still a 200.
func statusForResponse(kind string) int {
	switch apperr.Kind(kind) {
	case "":
		return http.StatusOK
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindCircuitOpen:
		return http.StatusTooManyRequests
	case apperr.KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

func stageNamesByElapsed(perStage map[string]int64) []string {
	names := make([]string, 0, len(perStage))
	for name := range perStage {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return perStage[names[i]] < perStage[names[j]] })
	return names
}

func writeSSEEvent(w http.ResponseWriter, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

func (s *Server) handleIndexPatient(w http.ResponseWriter, r *http.Request) {
	patientID := r.PathValue("patientID")
	result, err := indexing.IndexPatient(r.Context(), s.indexingDeps, patientID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"indexed_chunks": result.IndexedChunks,
		"elapsed_ms":     result.ElapsedMS,
	})
}

func (s *Server) handleDeindexPatient(w http.ResponseWriter, r *http.Request) {
	patientID := r.PathValue("patientID")
	if err := indexing.DeletePatient(r.Context(), s.indexingDeps, patientID); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

var validEMRKinds = map[string]bool{"care_plans": true, "medications": true, "notes": true, "all": true}

// handleEMRPassthrough serves GET /api/emr/{care_plans|medications|notes|all}
// by fetching the patient's full bundle and returning the requested slice.
// The upstream record source already performs its own full-bundle,
// no-patient-filter fetch; filtering is handled by normalize.Normalize
// at indexing time, so this passthrough returns the raw bundle contents
// as-is for the requested kind.
func (s *Server) handleEMRPassthrough(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	kind := r.PathValue("kind")
	if !validEMRKinds[kind] {
		respondError(w, http.StatusBadRequest, "unknown record kind "+kind)
		return
	}
	patientID := r.URL.Query().Get("patient_id")
	if patientID == "" {
		respondError(w, http.StatusBadRequest, "patient_id is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	bundle, err := s.recordSource.GetAll(r.Context(), patientID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var data []map[string]any
	switch kind {
	case "care_plans":
		data = bundle.CarePlans
	case "medications":
		data = bundle.Medications
	case "notes":
		data = bundle.Notes
	case "all":
		data = append(data, bundle.CarePlans...)
		data = append(data, bundle.Medications...)
		data = append(data, bundle.Notes...)
		for _, v := range bundle.Other {
			data = append(data, v...)
		}
	}
	data = paginate(data, limit, offset)

	respondJSON(w, http.StatusOK, map[string]any{
		"data": data,
		"meta": map[string]any{
			"count":      len(data),
			"cached":     false,
			"fetch_time": time.Since(start).Milliseconds(),
			"timestamp":  time.Now().UTC(),
		},
	})
}

func paginate(data []map[string]any, limit, offset int) []map[string]any {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(data) {
		return []map[string]any{}
	}
	data = data[offset:]
	if limit > 0 && limit < len(data) {
		data = data[:limit]
	}
	return data
}
