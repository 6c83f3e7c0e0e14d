// Package handlers provides HTTP handlers for research runs and the run ledger.
package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/pairlab/internal/modules/ledger"
	"github.com/aristath/pairlab/internal/modules/research"
	"github.com/rs/zerolog"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler handles research HTTP requests
type Handler struct {
	service *research.Service
	repo    *ledger.Repository
	log     zerolog.Logger
}

// NewHandler creates a new research handler
func NewHandler(service *research.Service, repo *ledger.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		repo:    repo,
		log:     log.With().Str("handler", "research").Logger(),
	}
}

// HandleRun handles POST /api/research/run
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Run(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Research run failed")
		http.Error(w, "Research run failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(report))
}

// HandleGetLatest handles GET /api/research/latest
func (h *Handler) HandleGetLatest(w http.ResponseWriter, r *http.Request) {
	report := h.service.Latest()
	if report == nil {
		http.Error(w, "No research run yet", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(report))
}

// HandleListRuns handles GET /api/research/runs
func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 {
			limit = parsedLimit
		}
	}

	runs, err := h.repo.List(r.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list runs")
		http.Error(w, "Failed to list runs", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	}))
}

// HandleGetRun handles GET /api/research/runs/{id}
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request, id string) {
	run, ok := h.loadRun(w, r, id)
	if !ok {
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(run))
}

// HandleExportRun handles GET /api/research/runs/{id}/export.xlsx
func (h *Handler) HandleExportRun(w http.ResponseWriter, r *http.Request, id string) {
	run, ok := h.loadRun(w, r, id)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := ledger.ExportExcel(run, &buf); err != nil {
		h.log.Error().Err(err).Str("run_id", id).Msg("Failed to export run")
		http.Error(w, "Failed to export run", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("%s_%s_%s.xlsx", run.SymbolA, run.SymbolB, run.CreatedAt.Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.log.Error().Err(err).Msg("Failed to write export")
	}
}

func (h *Handler) loadRun(w http.ResponseWriter, r *http.Request, id string) (*ledger.Run, bool) {
	run, err := h.repo.Get(r.Context(), id)
	if errors.Is(err, ledger.ErrRunNotFound) {
		http.Error(w, "Run not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		h.log.Error().Err(err).Str("run_id", id).Msg("Failed to get run")
		http.Error(w, "Failed to get run", http.StatusInternalServerError)
		return nil, false
	}
	return run, true
}

func envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
