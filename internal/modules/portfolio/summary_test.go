package portfolio

import (
	"testing"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/allocation"
	"github.com/aristath/folio/internal/modules/marketdata"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cost(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func entry(ticker string, last float64, f domain.Fundamentals) marketdata.Result {
	return marketdata.Result{
		Ticker: ticker,
		Source: marketdata.SourceCache,
		Entry: &domain.CacheEntry{
			Ticker: ticker,
			Data: domain.MarketData{
				Prices:       domain.PriceSeries{{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Close: last}},
				Fundamentals: f,
			},
		},
	}
}

func TestSummarize(t *testing.T) {
	positions := []domain.Position{
		{Ticker: "AAA", Lots: 10, AverageCost: cost(1000)},
		{Ticker: "BBB", Lots: 5},
		{Ticker: "CCC", Lots: 1, AverageCost: cost(50)},
	}
	missing := marketdata.Result{Ticker: "CCC", Source: marketdata.SourceNone}
	missing.Warnings.Add(domain.NewWarning(domain.WarnDataUnavailable, "CCC", "no data"))
	results := map[string]marketdata.Result{
		"AAA": entry("AAA", 1200, domain.Fundamentals{DividendYield: domain.Float(0.05), Sector: "Financial Services"}),
		"BBB": entry("BBB", 2000, domain.Fundamentals{}),
		"CCC": missing,
	}

	s, warnings := Summarize(positions, results)

	require.Len(t, s.Positions, 3)
	assert.True(t, warnings.Has(domain.WarnDataUnavailable, "CCC"))
	assert.Equal(t, 2, s.Priced)
	assert.True(t, decimal.NewFromInt(2_200_000).Equal(s.TotalValue))
	assert.True(t, decimal.NewFromInt(1_000_000).Equal(s.TotalCost))
	assert.True(t, decimal.NewFromInt(200_000).Equal(s.TotalPnL))
	pct, ok := s.TotalPnLPct.Get()
	require.True(t, ok)
	assert.InDelta(t, 0.2, pct, 1e-12)

	aaa := s.Positions[0]
	require.NotNil(t, aaa.MarketValue)
	assert.True(t, decimal.NewFromInt(1_200_000).Equal(*aaa.MarketValue))
	pnl, ok := aaa.UnrealizedPnL.Get()
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(200_000).Equal(pnl))

	bbb := s.Positions[1]
	assert.Equal(t, domain.Undefined, bbb.UnrealizedPnL.Status)
	assert.Equal(t, "cost unknown", bbb.UnrealizedPct.Reason)

	ccc := s.Positions[2]
	assert.Nil(t, ccc.MarketValue)
	assert.Equal(t, "price unknown", ccc.UnrealizedPnL.Reason)

	assert.InDelta(t, 0.05*1.2/2.2, s.DividendYield, 1e-12)
	require.Len(t, s.Sectors, 2)
	assert.Equal(t, "Financial Services", s.Sectors[0].Name)
	assert.Equal(t, allocation.OtherGroup, s.Sectors[1].Name)
}

func TestSummarize_Empty(t *testing.T) {
	s, warnings := Summarize(nil, nil)

	assert.Empty(t, warnings)
	assert.True(t, s.TotalValue.IsZero())
	assert.Equal(t, domain.Undefined, s.TotalPnLPct.Status)
	assert.Zero(t, s.DividendYield)
	assert.Empty(t, s.Sectors)
}
