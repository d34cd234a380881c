// Package handlers provides HTTP handlers for purchase planning.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/allocation"
	"github.com/aristath/folio/internal/modules/ledger"
	"github.com/aristath/folio/internal/modules/optimization"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Planner is the subset of allocation.Service used by the handlers
type Planner interface {
	Plan(ctx context.Context, req allocation.PlanRequest) (allocation.Plan, domain.Warnings, error)
	Dividend(ctx context.Context, capital decimal.Decimal, tickers []string, profile allocation.RiskProfile) (allocation.Plan, domain.Warnings, error)
}

// LedgerLoader supplies the holdings a plan is built for
type LedgerLoader interface {
	Load(ctx context.Context, portfolioID string) (*ledger.Ledger, domain.Warnings, error)
}

// Handler handles allocation HTTP requests
type Handler struct {
	planner Planner
	ledger  LedgerLoader
	log     zerolog.Logger
}

// NewHandler creates a new allocation handler
func NewHandler(planner Planner, ledger LedgerLoader, log zerolog.Logger) *Handler {
	return &Handler{
		planner: planner,
		ledger:  ledger,
		log:     log.With().Str("handler", "allocation").Logger(),
	}
}

type planRequest struct {
	Portfolio string             `json:"portfolio"`
	Capital   decimal.Decimal    `json:"capital"`
	Method    string             `json:"method"`
	Weights   map[string]float64 `json:"weights"`
	Fallback  string             `json:"fallback"`
}

type dividendRequest struct {
	Portfolio string          `json:"portfolio"`
	Capital   decimal.Decimal `json:"capital"`
	Profile   string          `json:"profile"`
	Tickers   []string        `json:"tickers"`
}

// HandlePlan handles POST /api/allocation/plan
func (h *Handler) HandlePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	method, err := allocation.ParseMethod(req.Method)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	fallback, err := optimization.ParseFallback(req.Fallback)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var warnings domain.Warnings
	var positions []domain.Position
	if method != allocation.MethodCustom {
		l, ws, ok := h.load(w, r, req.Portfolio)
		if !ok {
			return
		}
		warnings.Merge(ws)
		positions = l.Positions()
	}

	plan, ws, err := h.planner.Plan(r.Context(), allocation.PlanRequest{
		Capital:   req.Capital,
		Method:    method,
		Positions: positions,
		Weights:   req.Weights,
		Fallback:  fallback,
	})
	warnings.Merge(ws)
	if err != nil {
		h.writeServiceError(w, err, warnings)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     plan,
		"metadata": metadata(warnings),
	})
}

// HandleDividend handles POST /api/allocation/dividend
func (h *Handler) HandleDividend(w http.ResponseWriter, r *http.Request) {
	var req dividendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	profile, err := allocation.ParseRiskProfile(req.Profile)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var warnings domain.Warnings
	tickers := req.Tickers
	if len(tickers) == 0 {
		l, ws, ok := h.load(w, r, req.Portfolio)
		if !ok {
			return
		}
		warnings.Merge(ws)
		tickers = l.Tickers()
	}

	plan, ws, err := h.planner.Dividend(r.Context(), req.Capital, tickers, profile)
	warnings.Merge(ws)
	if err != nil {
		h.writeServiceError(w, err, warnings)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     plan,
		"metadata": metadata(warnings),
	})
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request, portfolioID string) (*ledger.Ledger, domain.Warnings, bool) {
	if portfolioID == "" {
		portfolioID = ledger.DefaultPortfolioID
	}
	l, warnings, err := h.ledger.Load(r.Context(), portfolioID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return nil, nil, false
		}
		h.log.Error().Err(err).Msg("Failed to load ledger")
		h.writeError(w, http.StatusInternalServerError, "Failed to load ledger")
		return nil, nil, false
	}
	return l, warnings, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, warnings domain.Warnings) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrInfeasible):
		status = http.StatusUnprocessableEntity
	default:
		h.log.Error().Err(err).Msg("Allocation failed")
	}
	h.writeJSON(w, status, map[string]interface{}{
		"error":    err.Error(),
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

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
