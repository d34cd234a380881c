// Package handlers provides HTTP handlers for valuation signals.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/valuation"
	"github.com/rs/zerolog"
)

// Valuer is the subset of valuation.Service used by the handlers
type Valuer interface {
	Value(ctx context.Context, ticker string, forecast *float64) (valuation.Valuation, domain.Warnings, error)
}

// Handler handles valuation HTTP requests
type Handler struct {
	valuer Valuer
	log    zerolog.Logger
}

// NewHandler creates a new valuation handler
func NewHandler(valuer Valuer, log zerolog.Logger) *Handler {
	return &Handler{
		valuer: valuer,
		log:    log.With().Str("handler", "valuation").Logger(),
	}
}

// HandleGetValuation handles GET /api/valuation/{ticker}?forecast=
func (h *Handler) HandleGetValuation(w http.ResponseWriter, r *http.Request, ticker string) {
	var forecast *float64
	if raw := r.URL.Query().Get("forecast"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			http.Error(w, "Invalid forecast", http.StatusBadRequest)
			return
		}
		forecast = &v
	}

	v, warnings, err := h.valuer.Value(r.Context(), ticker, forecast)
	if err != nil {
		if errors.Is(err, domain.ErrDataUnavailable) {
			h.writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"error":    err.Error(),
				"metadata": metadata(warnings),
			})
			return
		}
		h.log.Error().Err(err).Str("ticker", ticker).Msg("Failed to compute valuation")
		http.Error(w, "Failed to compute valuation", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     v,
		"metadata": metadata(warnings),
	})
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
