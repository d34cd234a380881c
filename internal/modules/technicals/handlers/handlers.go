// Package handlers provides HTTP handlers for technical indicators.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/technicals"
	"github.com/rs/zerolog"
)

// TechnicalsService is the subset of technicals.Service used by the handlers
type TechnicalsService interface {
	Analyze(ctx context.Context, ticker string) (technicals.Report, domain.Warnings, error)
	AnalyzeMany(ctx context.Context, tickers []string) ([]technicals.Report, domain.Warnings)
}

// Handler handles technicals HTTP requests
type Handler struct {
	service TechnicalsService
	log     zerolog.Logger
}

// NewHandler creates a new technicals handler
func NewHandler(service TechnicalsService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "technicals").Logger(),
	}
}

// SeriesResponse is the JSON form of an indicator set; undefined samples are null.
type SeriesResponse struct {
	Dates         []string   `json:"dates"`
	Close         []*float64 `json:"close"`
	RSI14         []*float64 `json:"rsi14"`
	MACD          []*float64 `json:"macd"`
	MACDSignal    []*float64 `json:"macd_signal"`
	MACDHistogram []*float64 `json:"macd_histogram"`
	SMA50         []*float64 `json:"sma50"`
	SMA200        []*float64 `json:"sma200"`
}

func newSeriesResponse(set technicals.IndicatorSet) SeriesResponse {
	dates := make([]string, len(set.Dates))
	for i, d := range set.Dates {
		dates[i] = d.Format(domain.DateLayout)
	}
	return SeriesResponse{
		Dates:         dates,
		Close:         technicals.Nullable(set.Close),
		RSI14:         technicals.Nullable(set.RSI14),
		MACD:          technicals.Nullable(set.MACD),
		MACDSignal:    technicals.Nullable(set.MACDSignal),
		MACDHistogram: technicals.Nullable(set.MACDHistogram),
		SMA50:         technicals.Nullable(set.SMA50),
		SMA200:        technicals.Nullable(set.SMA200),
	}
}

// HandleGetTicker handles GET /api/technicals/{ticker}?history=N
func (h *Handler) HandleGetTicker(w http.ResponseWriter, r *http.Request, ticker string) {
	report, warnings, err := h.service.Analyze(r.Context(), ticker)
	if err != nil {
		if errors.Is(err, domain.ErrDataUnavailable) {
			h.writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"error":    err.Error(),
				"metadata": metadata(warnings),
			})
			return
		}
		h.log.Error().Err(err).Str("ticker", ticker).Msg("Failed to compute indicators")
		http.Error(w, "Failed to compute indicators", http.StatusInternalServerError)
		return
	}

	data := map[string]interface{}{"report": report}
	if n, err := strconv.Atoi(r.URL.Query().Get("history")); err == nil && n > 0 {
		data["series"] = newSeriesResponse(report.Set.Tail(n))
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     data,
		"metadata": metadata(warnings),
	})
}

// HandleGetMany handles GET /api/technicals?tickers=A,B,C
func (h *Handler) HandleGetMany(w http.ResponseWriter, r *http.Request) {
	var tickers []string
	for _, t := range strings.Split(r.URL.Query().Get("tickers"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			tickers = append(tickers, t)
		}
	}
	if len(tickers) == 0 {
		http.Error(w, "tickers query parameter is required", http.StatusBadRequest)
		return
	}

	reports, warnings := h.service.AnalyzeMany(r.Context(), tickers)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"reports": reports,
			"count":   len(reports),
		},
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
