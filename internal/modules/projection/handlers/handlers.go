// Package handlers provides HTTP handlers for growth projections.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/projection"
	"github.com/rs/zerolog"
)

// Projector is the subset of projection.Service used by the handlers
type Projector interface {
	Project(ctx context.Context, req projection.Request) (projection.Result, domain.Warnings, error)
}

// Handler handles projection HTTP requests
type Handler struct {
	projector Projector
	log       zerolog.Logger
}

// NewHandler creates a new projection handler
func NewHandler(projector Projector, log zerolog.Logger) *Handler {
	return &Handler{
		projector: projector,
		log:       log.With().Str("handler", "projection").Logger(),
	}
}

// HandleProject handles POST /api/projection
func (h *Handler) HandleProject(w http.ResponseWriter, r *http.Request) {
	res, warnings, ok := h.project(w, r)
	if !ok {
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     res,
		"metadata": metadata(warnings),
	})
}

// HandleChart handles POST /api/projection/chart and returns a PNG
func (h *Handler) HandleChart(w http.ResponseWriter, r *http.Request) {
	res, _, ok := h.project(w, r)
	if !ok {
		return
	}

	title := fmt.Sprintf("Projection (%s, %d years)", res.Assumptions.Mode, res.Assumptions.Years)
	buf, err := projection.RenderPNG(res.Series, title)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to render projection chart")
		http.Error(w, "Failed to render chart", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf); err != nil {
		h.log.Error().Err(err).Msg("Failed to write chart")
	}
}

func (h *Handler) project(w http.ResponseWriter, r *http.Request) (projection.Result, domain.Warnings, bool) {
	var req projection.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return projection.Result{}, nil, false
	}

	res, warnings, err := h.projector.Project(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		} else {
			h.log.Error().Err(err).Msg("Projection failed")
			http.Error(w, "Projection failed", http.StatusInternalServerError)
		}
		return projection.Result{}, nil, false
	}
	return res, warnings, true
}

func metadata(warnings domain.Warnings) map[string]interface{} {
	if warnings == nil {
		warnings = domain.Warnings{}
	}
	return map[string]interface{}{
		"timestamp": time.Now().Format(time.RFC3339),
		"warnings":  warnings,
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
