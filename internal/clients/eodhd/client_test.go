package eodhd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/marketdata"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient("secret", zerolog.Nop())
	client.baseURL = server.URL
	return client
}

func window() marketdata.Window {
	return marketdata.Window{
		From: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
	}
}

func TestSymbol(t *testing.T) {
	assert.Equal(t, "AAPL.US", Symbol("AAPL"))
	assert.Equal(t, "BBCA.JK", Symbol("BBCA.JK"))
	assert.Equal(t, "JKSE.INDX", Symbol("^JKSE"))
}

func TestFetch_PricesAndFundamentals(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("api_token"))
		switch r.URL.Path {
		case "/eod/NVD.F":
			assert.Equal(t, "json", r.URL.Query().Get("fmt"))
			assert.Equal(t, "2024-02-01", r.URL.Query().Get("from"))
			assert.Equal(t, "2024-02-29", r.URL.Query().Get("to"))
			w.Write([]byte(`[
				{"date":"2024-02-13","open":675.066,"high":684.219,"low":648.659,"close":668.445,"adjusted_close":67.705,"volume":0},
				{"date":"2024-02-14","open":670,"high":690,"low":660,"close":689.5,"adjusted_close":68.95,"volume":1200}
			]`))
		case "/fundamentals/NVD.F":
			w.Write([]byte(`{
				"General":{"Name":"NVIDIA Corp","CurrencyCode":"EUR","Sector":"Technology","Industry":"Semiconductors"},
				"Highlights":{"PERatio":"65.2","DividendYield":0.0003,"DividendShare":null,"MarketCapitalization":1.7e12,"QuarterlyEarningsGrowthYOY":"NA"},
				"Valuation":{"TrailingPE":null,"ForwardPE":35.1,"PriceBookMRQ":48.2},
				"SplitsDividends":{"PayoutRatio":0.01}
			}`))
		default:
			http.NotFound(w, r)
		}
	})

	data, err := client.Fetch(context.Background(), "NVD.F", window())
	require.NoError(t, err)

	require.Len(t, data.Prices, 2)
	assert.Equal(t, time.Date(2024, 2, 13, 0, 0, 0, 0, time.UTC), data.Prices[0].Date)
	assert.Equal(t, 689.5, data.Prices[1].Close)
	assert.Equal(t, int64(1200), data.Prices[1].Volume)

	f := data.Fundamentals
	assert.Equal(t, "Semiconductors", f.Industry)
	require.NotNil(t, f.TrailingPE)
	assert.Equal(t, 65.2, *f.TrailingPE, "falls back to Highlights.PERatio")
	assert.Nil(t, f.DividendRate)
	assert.Nil(t, f.EarningsGrowth, "NA is unknown")
	require.NotNil(t, f.ForwardPE)
	assert.Equal(t, 35.1, *f.ForwardPE)
}

func TestFetch_FundamentalsOnFreePlan(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/eod/AAPL.US" {
			w.Write([]byte(`[{"date":"2024-02-13","open":1,"high":1,"low":1,"close":1,"volume":10}]`))
			return
		}
		w.WriteHeader(http.StatusForbidden)
	})

	data, err := client.Fetch(context.Background(), "AAPL", window())
	require.NoError(t, err)
	assert.Len(t, data.Prices, 1)
	assert.Equal(t, domain.Fundamentals{}, data.Fundamentals)
}

func TestFetch_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		body   string
		reason domain.ProviderReason
	}{
		{http.StatusNotFound, "Ticker Not Found.", domain.ReasonNotFound},
		{http.StatusTooManyRequests, "", domain.ReasonRateLimited},
		{http.StatusPaymentRequired, "", domain.ReasonRateLimited},
		{http.StatusBadGateway, "", domain.ReasonNetworkError},
		{http.StatusOK, `[]`, domain.ReasonNotFound},
	}

	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := client.Fetch(context.Background(), "XXXX.JK", window())
			require.Error(t, err)
			assert.Equal(t, tt.reason, domain.ProviderReasonOf(err))
			assert.NotContains(t, err.Error(), "secret")
		})
	}
}
