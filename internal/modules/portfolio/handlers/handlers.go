// Package handlers provides HTTP handlers for portfolio valuation and
// batch analysis.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/optimization"
	"github.com/aristath/folio/internal/modules/portfolio"
	"github.com/rs/zerolog"
)

// Engine is the subset of portfolio.Service used by the handlers
type Engine interface {
	Summary(ctx context.Context, portfolioID string) (portfolio.Summary, domain.Warnings, error)
	Analyze(ctx context.Context, portfolioID string, opts portfolio.AnalyzeOptions) (portfolio.Analysis, domain.Warnings, error)
}

// Handler handles portfolio HTTP requests
type Handler struct {
	engine Engine
	log    zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(engine Engine, log zerolog.Logger) *Handler {
	return &Handler{
		engine: engine,
		log:    log.With().Str("handler", "portfolio").Logger(),
	}
}

type analyzeRequest struct {
	Portfolio    string             `json:"portfolio"`
	Forecasts    map[string]float64 `json:"forecasts"`
	RiskFreeRate *float64           `json:"risk_free_rate"`
	Fallback     string             `json:"fallback"`
	Confidences  []float64          `json:"confidences"`
}

// HandleGetSummary handles GET /api/portfolio/summary?portfolio=
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	summary, warnings, err := h.engine.Summary(r.Context(), r.URL.Query().Get("portfolio"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     summary,
		"metadata": metadata(warnings),
	})
}

// HandleAnalyze handles POST /api/portfolio/analyze
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	fallback, err := optimization.ParseFallback(req.Fallback)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	forecasts := make(map[string]float64, len(req.Forecasts))
	for raw, v := range req.Forecasts {
		ticker, err := domain.NormalizeTicker(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		forecasts[ticker] = v
	}

	analysis, warnings, err := h.engine.Analyze(r.Context(), req.Portfolio, portfolio.AnalyzeOptions{
		Forecasts:    forecasts,
		RiskFreeRate: req.RiskFreeRate,
		Fallback:     fallback,
		Confidences:  req.Confidences,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     analysis,
		"metadata": metadata(warnings),
	})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrInvalidInput) {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.log.Error().Err(err).Msg("Portfolio request failed")
	h.writeError(w, http.StatusInternalServerError, err.Error())
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

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
