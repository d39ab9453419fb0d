// Package handlers provides the HTTP request handlers of the assistant API:
// query resolution, medication lookup by CIS, health checks and the index
// page, with input validation and JSON error responses.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mediflux/assistant-api/entities"
	"github.com/mediflux/assistant-api/interfaces"
	"github.com/mediflux/assistant-api/logging"
	"github.com/mediflux/assistant-api/sources"
)

// Handler wires the HTTP surface to the pipeline. All collaborators are
// injected so tests can swap them out.
type Handler struct {
	orchestrator interfaces.Orchestrator
	formatter    interfaces.Formatter
	validator    interfaces.QueryValidator
	medications  interfaces.MedicationSource
	health       interfaces.HealthChecker
	dataStore    interfaces.DataStore
}

// NewHandler creates a new handler with injected dependencies
func NewHandler(
	orchestrator interfaces.Orchestrator,
	formatter interfaces.Formatter,
	validator interfaces.QueryValidator,
	medications interfaces.MedicationSource,
	health interfaces.HealthChecker,
	dataStore interfaces.DataStore,
) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		formatter:    formatter,
		validator:    validator,
		medications:  medications,
		health:       health,
		dataStore:    dataStore,
	}
}

// RespondWithJSON writes a JSON response
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	w.Write(data)
}

// RespondWithError writes a JSON error response
func RespondWithError(w http.ResponseWriter, code int, message string) {
	errorResponse := map[string]interface{}{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	}
	RespondWithJSON(w, code, errorResponse)
}

// queryRequest is the POST /query body.
type queryRequest struct {
	Text       string           `json:"text"`
	SessionID  string           `json:"session_id,omitempty"`
	Profile    entities.Profile `json:"profile,omitempty"`
	PriorTurns []entities.Turn  `json:"prior_turns,omitempty"`
}

// HandleQuery resolves one free-text query through the full pipeline and
// returns the formatted response. Pipeline failures degrade inside the
// orchestrator; this handler only rejects malformed or abusive requests.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		RespondWithError(w, http.StatusBadRequest, "Missing query text")
		return
	}

	if err := h.validator.ValidateQueryText(req.Text); err != nil {
		logging.Warn("Rejected query text", "error", err, "remote_addr", r.RemoteAddr)
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.validator.ValidateSessionID(req.SessionID); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := h.orchestrator.Resolve(r.Context(), entities.Query{
		Text:       req.Text,
		SessionID:  req.SessionID,
		Profile:    req.Profile,
		PriorTurns: req.PriorTurns,
	})

	RespondWithJSON(w, http.StatusOK, h.formatter.Format(result))
}

// FindMedicationByCIS fetches one medication detail record by its CIS code.
func (h *Handler) FindMedicationByCIS(w http.ResponseWriter, r *http.Request) {
	cis, err := h.validator.ValidateCIS(chi.URLParam(r, "cis"))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	med, err := h.medications.FetchByCIS(r.Context(), cis)
	if err != nil {
		if errors.Is(err, sources.ErrNotFound) {
			RespondWithError(w, http.StatusNotFound, fmt.Sprintf("No medication with CIS %d", cis))
			return
		}
		logging.Error("Medication lookup failed", "cis", cis, "error", err)
		RespondWithError(w, http.StatusBadGateway, "Medication database unavailable")
		return
	}

	RespondWithJSON(w, http.StatusOK, med)
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status        string         `json:"status"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	Data          map[string]any `json:"data"`
	System        map[string]any `json:"system"`
}

// HealthCheck returns server health information
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(h.dataStore.GetServerStartTime())

	status, data, httpStatus := h.health.HealthCheck()
	data["next_reload"] = h.health.CalculateNextReload().Format(time.RFC3339)

	response := HealthResponse{
		Status:        status,
		UptimeSeconds: uptime.Seconds(),
		Data:          data,
		System: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       int(m.Alloc / 1024 / 1024),
				"total_alloc_mb": int(m.TotalAlloc / 1024 / 1024),
				"sys_mb":         int(m.Sys / 1024 / 1024),
				"num_gc":         m.NumGC,
			},
		},
	}

	RespondWithJSON(w, httpStatus, response)
}

// Index describes the service and its endpoints.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]any{
		"service": "assistant-api",
		"endpoints": map[string]string{
			"POST /query":           "Resolve a free-text health query",
			"GET /medicament/{cis}": "Medication detail by CIS code",
			"GET /health":           "Service health",
			"GET /metrics":          "Prometheus metrics",
		},
	})
}
