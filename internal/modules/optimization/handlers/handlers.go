// Package handlers provides HTTP handlers for the allocation optimizer.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/ledger"
	"github.com/aristath/folio/internal/modules/optimization"
	"github.com/rs/zerolog"
)

// Optimizer is the subset of optimization.Service used by the handlers
type Optimizer interface {
	Optimize(ctx context.Context, tickers []string, opts optimization.Options) (optimization.Result, domain.Warnings, error)
}

// LedgerLoader supplies the ticker set when a request names none
type LedgerLoader interface {
	Load(ctx context.Context, portfolioID string) (*ledger.Ledger, domain.Warnings, error)
}

// Handler handles optimizer HTTP requests
type Handler struct {
	optimizer Optimizer
	ledger    LedgerLoader
	log       zerolog.Logger
}

// NewHandler creates a new optimizer handler
func NewHandler(optimizer Optimizer, ledger LedgerLoader, log zerolog.Logger) *Handler {
	return &Handler{
		optimizer: optimizer,
		ledger:    ledger,
		log:       log.With().Str("handler", "optimizer").Logger(),
	}
}

type optimizeRequest struct {
	Portfolio    string   `json:"portfolio"`
	Tickers      []string `json:"tickers"`
	RiskFreeRate *float64 `json:"risk_free_rate"`
	Fallback     string   `json:"fallback"`
}

// HandleOptimize handles POST /api/optimizer/run. Without tickers the
// portfolio's holdings are optimized.
func (h *Handler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	fallback, err := optimization.ParseFallback(req.Fallback)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var warnings domain.Warnings
	tickers := req.Tickers
	if len(tickers) == 0 {
		portfolioID := req.Portfolio
		if portfolioID == "" {
			portfolioID = ledger.DefaultPortfolioID
		}
		l, ws, err := h.ledger.Load(r.Context(), portfolioID)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to load ledger")
			http.Error(w, "Failed to load ledger", http.StatusInternalServerError)
			return
		}
		warnings.Merge(ws)
		tickers = l.Tickers()
	}

	result, ws, err := h.optimizer.Optimize(r.Context(), tickers, optimization.Options{
		RiskFreeRate: req.RiskFreeRate,
		Fallback:     fallback,
	})
	warnings.Merge(ws)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrInfeasible) {
			status = http.StatusUnprocessableEntity
		} else {
			h.log.Error().Err(err).Msg("Optimization failed")
		}
		h.writeJSON(w, status, map[string]interface{}{
			"error":    err.Error(),
			"metadata": metadata(warnings),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     result,
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
