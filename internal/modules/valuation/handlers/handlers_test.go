package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/valuation"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeValuer struct {
	forecast *float64
}

func (f *fakeValuer) Value(_ context.Context, ticker string, forecast *float64) (valuation.Valuation, domain.Warnings, error) {
	f.forecast = forecast
	if ticker == "MISSING" {
		return valuation.Valuation{}, nil, fmt.Errorf("%s: %w", ticker, domain.ErrDataUnavailable)
	}
	price := 100.0
	return valuation.Assess(ticker, domain.Fundamentals{}, &price, forecast), nil, nil
}

func get(h *Handler, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHandleGetValuation(t *testing.T) {
	v := &fakeValuer{}
	h := NewHandler(v, zerolog.New(nil).Level(zerolog.Disabled))

	w := get(h, "/valuation/AAA?forecast=120")

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, v.forecast)
	assert.Equal(t, 120.0, *v.forecast)
	assert.Contains(t, w.Body.String(), `"action":"buy"`)
}

func TestHandleGetValuation_Errors(t *testing.T) {
	h := NewHandler(&fakeValuer{}, zerolog.New(nil).Level(zerolog.Disabled))

	assert.Equal(t, http.StatusBadRequest, get(h, "/valuation/AAA?forecast=abc").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(h, "/valuation/MISSING").Code)
}
