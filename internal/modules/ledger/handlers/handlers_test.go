package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aristath/folio/internal/modules/ledger"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) (*chi.Mux, *ledger.Service) {
	t.Helper()
	store, err := ledger.NewFileStore(t.TempDir())
	require.NoError(t, err)
	svc := ledger.NewService(store, ledger.CostBlendUnknownAsZero, nil, zerolog.Nop())

	h := NewHandler(svc, zerolog.New(nil).Level(zerolog.Disabled))
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r, svc
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleAddPosition_BlendsCost(t *testing.T) {
	r, _ := setupRouter(t)

	w := do(t, r, http.MethodPost, "/ledger/positions", `{"ticker":"aaa","lots":10,"price":1000,"acquired_on":"2024-01-05"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodPost, "/ledger/positions", `{"ticker":"AAA","lots":10,"price":"2000"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data PositionResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "AAA", resp.Data.Ticker)
	assert.Equal(t, int64(20), resp.Data.Lots)
	assert.Equal(t, int64(2000), resp.Data.Shares)
	require.NotNil(t, resp.Data.AverageCost)
	assert.InDelta(t, 1500.0, *resp.Data.AverageCost, 1e-9)
	require.NotNil(t, resp.Data.AcquiredOn)
	assert.Equal(t, "2024-01-05", *resp.Data.AcquiredOn)
}

func TestHandleAddPosition_SurfacesApproximationWarning(t *testing.T) {
	r, svc := setupRouter(t)
	_, _, err := svc.AddOrUpdate(context.Background(), ledger.DefaultPortfolioID, "TLKM.JK", 5, nil, nil)
	require.NoError(t, err)

	w := do(t, r, http.MethodPost, "/ledger/positions", `{"ticker":"TLKM.JK","lots":5,"price":3000}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Metadata struct {
			Warnings []struct {
				Code string `json:"code"`
			} `json:"warnings"`
		} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Metadata.Warnings, 1)
	assert.Equal(t, "cost_basis_approximated", resp.Metadata.Warnings[0].Code)
}

func TestHandleAddPosition_BadInput(t *testing.T) {
	r, _ := setupRouter(t)

	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/ledger/positions", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/ledger/positions", `{"ticker":"AAA","lots":-1}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/ledger/positions", `{"ticker":"AAA","lots":1,"acquired_on":"05/01/2024"}`).Code)
}

func TestHandleGetPositions_OrderAndCount(t *testing.T) {
	r, _ := setupRouter(t)
	do(t, r, http.MethodPost, "/ledger/positions?portfolio=growth", `{"ticker":"UNVR.JK","lots":1}`)
	do(t, r, http.MethodPost, "/ledger/positions?portfolio=growth", `{"ticker":"ASII.JK","lots":2,"price":5000}`)

	w := do(t, r, http.MethodGet, "/ledger/positions?portfolio=growth", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Positions []PositionResponse `json:"positions"`
			Count     int                `json:"count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Data.Count)
	assert.Equal(t, "UNVR.JK", resp.Data.Positions[0].Ticker)
	assert.Nil(t, resp.Data.Positions[0].AverageCost)
	assert.Nil(t, resp.Data.Positions[0].CostBasis)

	other := do(t, r, http.MethodGet, "/ledger/positions", "")
	assert.Contains(t, other.Body.String(), `"count":0`)
}

func TestHandleRemovePosition(t *testing.T) {
	r, _ := setupRouter(t)
	do(t, r, http.MethodPost, "/ledger/positions", `{"ticker":"AAA","lots":1}`)

	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodDelete, "/ledger/positions/ZZZ", "").Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodDelete, "/ledger/positions/aaa", "").Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodDelete, "/ledger/positions", "").Code)
}
