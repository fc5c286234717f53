// Package httpapi exposes the core's query, indexing, and EMR pass-through
// endpoints over HTTP.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/intelligencedev/clinical-core/internal/contracts"
	"github.com/intelligencedev/clinical-core/internal/indexing"
	"github.com/intelligencedev/clinical-core/internal/orchestrator"
)

// Server exposes the core's HTTP surface.
type Server struct {
	core         *orchestrator.Core
	indexingDeps indexing.Deps
	recordSource contracts.PatientRecordSource
	mux          *http.ServeMux
}

// NewServer wires a Server against a running Core, the indexing pipeline's
// dependencies, and the raw EMR record source used by GET /api/emr/*.
func NewServer(core *orchestrator.Core, indexingDeps indexing.Deps, recordSource contracts.PatientRecordSource) *Server {
	s := &Server{core: core, indexingDeps: indexingDeps, recordSource: recordSource, mux: http.NewServeMux()}
	s.registerRoutes()
	return s
}

// ServeHTTP satisfies http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /api/query", s.handleQuery)
	s.mux.HandleFunc("POST /api/query/stream", s.handleQueryStream)
	s.mux.HandleFunc("POST /api/index/patient/{patientID}", s.handleIndexPatient)
	s.mux.HandleFunc("DELETE /api/index/patient/{patientID}", s.handleDeindexPatient)
	s.mux.HandleFunc("GET /api/emr/{kind}", s.handleEMRPassthrough)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
