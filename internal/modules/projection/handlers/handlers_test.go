package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aristath/folio/internal/modules/projection"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter() *chi.Mux {
	h := NewHandler(projection.NewService(nil, zerolog.Nop()), zerolog.New(nil).Level(zerolog.Disabled))
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleProject(t *testing.T) {
	w := post(newRouter(), "/projection/", `{"initial_value":1000,"dividend_yield":0,"growth_rate":0.1,"years":2}`)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data projection.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data.Series, 2)
	assert.InDelta(t, 1210.0, body.Data.FinalValue, 1e-6)
}

func TestHandleProject_InvalidInput(t *testing.T) {
	w := post(newRouter(), "/projection/", `{"initial_value":1000,"dividend_yield":0,"years":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(newRouter(), "/projection/", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleChart(t *testing.T) {
	w := post(newRouter(), "/projection/chart", `{"initial_value":1000,"dividend_yield":0.03,"reinvest":true,"growth_rate":0.08,"years":5}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Body.Bytes())
}
