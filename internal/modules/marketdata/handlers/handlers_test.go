package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/marketdata"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(fail bool) chi.Router {
	provider := marketdata.ProviderFunc{Fn: func(_ context.Context, ticker string, _ marketdata.Window) (domain.MarketData, error) {
		if fail {
			return domain.MarketData{}, domain.NewProviderError(ticker, domain.ReasonTimeout, nil)
		}
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		var prices domain.PriceSeries
		for i := 0; i < 5; i++ {
			prices = append(prices, domain.DailyBar{Date: start.AddDate(0, 0, i), Close: float64(100 + i)})
		}
		return domain.MarketData{Prices: prices}, nil
	}}
	cache := marketdata.NewCache(marketdata.NewMemoryStore(), provider, marketdata.Config{}, nil, zerolog.Nop())

	r := chi.NewRouter()
	NewHandler(cache, zerolog.New(nil).Level(zerolog.Disabled)).RegisterRoutes(r)
	return r
}

func TestHandleGet_LimitsBars(t *testing.T) {
	r := setupRouter(false)
	req := httptest.NewRequest(http.MethodGet, "/market/BBCA.JK/?bars=2", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data struct {
			Ticker    string            `json:"ticker"`
			Source    string            `json:"source"`
			LastClose float64           `json:"last_close"`
			Bars      []domain.DailyBar `json:"bars"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "BBCA.JK", body.Data.Ticker)
	assert.Equal(t, "provider", body.Data.Source)
	assert.Equal(t, 104.0, body.Data.LastClose)
	assert.Len(t, body.Data.Bars, 2)
}

func TestHandleGet_UnavailableIs503(t *testing.T) {
	r := setupRouter(true)
	req := httptest.NewRequest(http.MethodGet, "/market/XXXX/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "timeout")
}
