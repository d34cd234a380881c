// Package handlers provides HTTP handlers for market data.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/marketdata"
	"github.com/rs/zerolog"
)

// MarketDataCache is the subset of marketdata.Cache used by the handlers
type MarketDataCache interface {
	Get(ctx context.Context, ticker string) marketdata.Result
	Refresh(ctx context.Context, ticker string) marketdata.Result
	Invalidate(ticker string)
}

// Handler handles market data HTTP requests
type Handler struct {
	cache MarketDataCache
	log   zerolog.Logger
}

// NewHandler creates a new market data handler
func NewHandler(cache MarketDataCache, log zerolog.Logger) *Handler {
	return &Handler{
		cache: cache,
		log:   log.With().Str("handler", "marketdata").Logger(),
	}
}

// HandleGet handles GET /api/market/{ticker}. The optional ?bars=N query
// limits the returned history to the most recent N bars.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request, ticker string) {
	h.respond(w, r, h.cache.Get(r.Context(), ticker))
}

// HandleRefresh handles POST /api/market/{ticker}/refresh
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request, ticker string) {
	h.respond(w, r, h.cache.Refresh(r.Context(), ticker))
}

// HandleInvalidate handles DELETE /api/market/{ticker}/cache
func (h *Handler) HandleInvalidate(w http.ResponseWriter, r *http.Request, ticker string) {
	h.cache.Invalidate(ticker)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     map[string]interface{}{"invalidated": ticker},
		"metadata": metadata(nil),
	})
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, res marketdata.Result) {
	if res.Empty() {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"error":    res.Err().Error(),
			"reason":   res.Reason,
			"metadata": metadata(res.Warnings),
		})
		return
	}

	prices := res.Entry.Data.Prices
	if n, err := strconv.Atoi(r.URL.Query().Get("bars")); err == nil && n > 0 && n < len(prices) {
		prices = prices[len(prices)-n:]
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"ticker":       res.Ticker,
			"source":       res.Source,
			"stale":        res.Stale(),
			"fetched_at":   res.Entry.FetchedAt.UTC().Format(time.RFC3339),
			"last_close":   res.Entry.Data.Prices.LastClose(),
			"bars":         prices,
			"fundamentals": res.Entry.Data.Fundamentals,
		},
		"metadata": metadata(res.Warnings),
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
