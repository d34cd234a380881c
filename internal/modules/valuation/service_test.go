package valuation

import (
	"context"
	"testing"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/marketdata"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMarketData map[string]domain.MarketData

func (m fakeMarketData) Get(_ context.Context, ticker string) marketdata.Result {
	data, ok := m[ticker]
	if !ok {
		return marketdata.Result{Ticker: ticker, Source: marketdata.SourceNone, Reason: domain.ReasonNotFound}
	}
	return marketdata.Result{
		Ticker: ticker,
		Source: marketdata.SourceCache,
		Entry:  &domain.CacheEntry{Ticker: ticker, Data: data, FetchedAt: time.Now()},
	}
}

func TestService_Value(t *testing.T) {
	data := fakeMarketData{
		"BBCA.JK": {
			Prices: domain.PriceSeries{
				{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Close: 9000},
				{Date: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), Close: 9500},
			},
			Fundamentals: domain.Fundamentals{TrailingPE: f(20), IndustryPE: f(25)},
		},
	}
	svc := NewService(data, zerolog.Nop())

	v, _, err := svc.Value(context.Background(), "BBCA.JK", f(10000))
	require.NoError(t, err)

	assert.Equal(t, 9500.0, *v.Price)
	assert.Equal(t, PEBelowIndustry, v.PE.Verdict)
	rec, ok := v.Recommendation.Get()
	require.True(t, ok)
	assert.Equal(t, ActionBuy, rec.Action)
	assert.False(t, v.FairValue.Ok())
}

func TestService_Value_NoData(t *testing.T) {
	svc := NewService(fakeMarketData{}, zerolog.Nop())

	_, _, err := svc.Value(context.Background(), "ZZZ", nil)
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}
