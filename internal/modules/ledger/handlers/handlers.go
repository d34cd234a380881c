// Package handlers provides HTTP handlers for ledger operations.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/ledger"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LedgerService is the subset of ledger.Service used by the handlers
type LedgerService interface {
	Load(ctx context.Context, portfolioID string) (*ledger.Ledger, domain.Warnings, error)
	AddOrUpdate(ctx context.Context, portfolioID, ticker string, lots int64, price *decimal.Decimal, acquiredOn *time.Time) (domain.Position, domain.Warnings, error)
	Remove(ctx context.Context, portfolioID, ticker string) (domain.Warnings, error)
	Clear(ctx context.Context, portfolioID string) (domain.Warnings, error)
}

// Handler handles ledger HTTP requests
type Handler struct {
	service LedgerService
	log     zerolog.Logger
}

// NewHandler creates a new ledger handler
func NewHandler(service LedgerService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "ledger").Logger(),
	}
}

// PositionResponse is the API shape of a position
type PositionResponse struct {
	Ticker      string   `json:"ticker"`
	Lots        int64    `json:"lots"`
	Shares      int64    `json:"shares"`
	AverageCost *float64 `json:"average_cost"`
	CostBasis   *float64 `json:"cost_basis"`
	AcquiredOn  *string  `json:"acquired_on"`
}

// NewPositionResponse converts a domain position
func NewPositionResponse(p domain.Position) PositionResponse {
	resp := PositionResponse{
		Ticker:      p.Ticker,
		Lots:        p.Lots,
		Shares:      p.Shares(),
		AverageCost: p.AverageCostFloat(),
	}
	if basis := p.CostBasis(); basis != nil {
		f := basis.InexactFloat64()
		resp.CostBasis = &f
	}
	if p.AcquiredOn != nil {
		s := p.AcquiredOn.Format(domain.DateLayout)
		resp.AcquiredOn = &s
	}
	return resp
}

// addPositionRequest is the body of POST /api/ledger/positions.
// Price is a JSON number or string so costs survive without float rounding.
type addPositionRequest struct {
	Ticker     string           `json:"ticker"`
	Lots       int64            `json:"lots"`
	Price      *decimal.Decimal `json:"price"`
	AcquiredOn string           `json:"acquired_on"`
}

// HandleGetPositions handles GET /api/ledger/positions
func (h *Handler) HandleGetPositions(w http.ResponseWriter, r *http.Request) {
	portfolioID := portfolioParam(r)

	l, warnings, err := h.service.Load(r.Context(), portfolioID)
	if err != nil {
		h.writeError(w, err, "Failed to load ledger")
		return
	}

	positions := make([]PositionResponse, 0, l.Len())
	for _, p := range l.Positions() {
		positions = append(positions, NewPositionResponse(p))
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"portfolio_id":    portfolioID,
			"positions":       positions,
			"count":           len(positions),
			"cost_blend_mode": l.Mode(),
		},
		"metadata": metadata(warnings),
	})
}

// HandleAddPosition handles POST /api/ledger/positions
func (h *Handler) HandleAddPosition(w http.ResponseWriter, r *http.Request) {
	portfolioID := portfolioParam(r)

	var req addPositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var acquiredOn *time.Time
	if req.AcquiredOn != "" {
		d, err := domain.ParseDate(req.AcquiredOn)
		if err != nil {
			http.Error(w, "acquired_on must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		acquiredOn = &d
	} else {
		today := time.Now().UTC().Truncate(24 * time.Hour)
		acquiredOn = &today
	}

	pos, warnings, err := h.service.AddOrUpdate(r.Context(), portfolioID, req.Ticker, req.Lots, req.Price, acquiredOn)
	if err != nil {
		h.writeError(w, err, "Failed to update ledger")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     NewPositionResponse(pos),
		"metadata": metadata(warnings),
	})
}

// HandleRemovePosition handles DELETE /api/ledger/positions/{ticker}
func (h *Handler) HandleRemovePosition(w http.ResponseWriter, r *http.Request, ticker string) {
	warnings, err := h.service.Remove(r.Context(), portfolioParam(r), ticker)
	if err != nil {
		h.writeError(w, err, "Failed to remove position")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     map[string]interface{}{"removed": ticker},
		"metadata": metadata(warnings),
	})
}

// HandleClear handles DELETE /api/ledger/positions
func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	warnings, err := h.service.Clear(r.Context(), portfolioParam(r))
	if err != nil {
		h.writeError(w, err, "Failed to clear ledger")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     map[string]interface{}{"cleared": true},
		"metadata": metadata(warnings),
	})
}

func portfolioParam(r *http.Request) string {
	if id := r.URL.Query().Get("portfolio"); id != "" {
		return id
	}
	return ledger.DefaultPortfolioID
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

func (h *Handler) writeError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.log.Error().Err(err).Msg(msg)
		http.Error(w, msg, http.StatusInternalServerError)
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
