// Package handlers provides HTTP handlers for risk metrics operations.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/ledger"
	"github.com/aristath/folio/internal/modules/risk"
	"github.com/rs/zerolog"
)

// Reporter is the subset of risk.Service used by the handlers
type Reporter interface {
	Report(ctx context.Context, positions []domain.Position, confidences []float64) (risk.Report, domain.Warnings, error)
}

// LedgerLoader supplies the positions a report covers
type LedgerLoader interface {
	Load(ctx context.Context, portfolioID string) (*ledger.Ledger, domain.Warnings, error)
}

// Handler handles risk metrics HTTP requests
type Handler struct {
	reporter Reporter
	ledger   LedgerLoader
	log      zerolog.Logger
}

// NewHandler creates a new risk metrics handler
func NewHandler(reporter Reporter, ledger LedgerLoader, log zerolog.Logger) *Handler {
	return &Handler{
		reporter: reporter,
		ledger:   ledger,
		log:      log.With().Str("handler", "risk").Logger(),
	}
}

// HandleGetReport handles GET /api/risk?portfolio=&confidence=0.95,0.99
func (h *Handler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	confidences, err := parseConfidences(r.URL.Query().Get("confidence"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, warnings, ok := h.report(w, r, confidences)
	if !ok {
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     report,
		"metadata": metadata(warnings),
	})
}

// HandleGetStress handles GET /api/risk/stress. With ?value= the table is
// applied to that amount instead of the portfolio's current value.
func (h *Handler) HandleGetStress(w http.ResponseWriter, r *http.Request) {
	var warnings domain.Warnings
	var value float64

	if raw := r.URL.Query().Get("value"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			http.Error(w, "Invalid value", http.StatusBadRequest)
			return
		}
		value = v
	} else {
		report, ws, ok := h.report(w, r, nil)
		if !ok {
			return
		}
		value = report.PortfolioValue
		warnings = ws
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"portfolio_value": value,
			"scenarios":       risk.StressTest(value, risk.DefaultScenarios),
			"note":            risk.StressDisclaimer,
		},
		"metadata": metadata(warnings),
	})
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request, confidences []float64) (risk.Report, domain.Warnings, bool) {
	portfolioID := r.URL.Query().Get("portfolio")
	if portfolioID == "" {
		portfolioID = ledger.DefaultPortfolioID
	}

	l, warnings, err := h.ledger.Load(r.Context(), portfolioID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return risk.Report{}, nil, false
		}
		h.log.Error().Err(err).Msg("Failed to load ledger")
		http.Error(w, "Failed to load ledger", http.StatusInternalServerError)
		return risk.Report{}, nil, false
	}

	report, ws, err := h.reporter.Report(r.Context(), l.Positions(), confidences)
	warnings.Merge(ws)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return risk.Report{}, nil, false
		}
		h.log.Error().Err(err).Msg("Failed to compute risk report")
		http.Error(w, "Failed to compute risk report", http.StatusInternalServerError)
		return risk.Report{}, nil, false
	}
	return report, warnings, true
}

func parseConfidences(raw string) ([]float64, error) {
	if raw == "" {
		return nil, nil
	}
	var out []float64
	for _, part := range strings.Split(raw, ",") {
		c, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid confidence %q", part)
		}
		out = append(out, c)
	}
	return out, nil
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
