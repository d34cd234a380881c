// Package portfolio is the analytics engine entry point: it values the
// ledger against market data and runs batch analyses across every holding.
package portfolio

import (
	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/allocation"
	"github.com/aristath/folio/internal/modules/marketdata"
	"github.com/shopspring/decimal"
)

// PositionSummary values one position.
type PositionSummary struct {
	Ticker      string           `json:"ticker"`
	Lots        int64            `json:"lots"`
	Shares      int64            `json:"shares"`
	AverageCost *decimal.Decimal `json:"average_cost"`
	LastClose   *float64         `json:"last_close"`
	MarketValue *decimal.Decimal `json:"market_value"`
	CostBasis   *decimal.Decimal `json:"cost_basis"`
	// UnrealizedPnL and UnrealizedPct are undefined when either the cost or
	// the price is unknown.
	UnrealizedPnL domain.Optional[decimal.Decimal] `json:"unrealized_pnl"`
	UnrealizedPct domain.Optional[float64]         `json:"unrealized_pct"`
	Weight        float64                          `json:"weight"`
	DividendYield *float64                         `json:"dividend_yield"`
	Sector        string                           `json:"sector,omitempty"`
	Stale         bool                             `json:"stale"`
}

// Summary values the whole ledger.
type Summary struct {
	Positions  []PositionSummary `json:"positions"`
	TotalValue decimal.Decimal   `json:"total_value"`
	// TotalCost and TotalPnL cover only positions with known cost and price.
	TotalCost     decimal.Decimal              `json:"total_cost"`
	TotalPnL      decimal.Decimal              `json:"total_pnl"`
	TotalPnLPct   domain.Optional[float64]     `json:"total_pnl_pct"`
	DividendYield float64                      `json:"dividend_yield"`
	Sectors       []allocation.GroupAllocation `json:"sectors"`
	Priced        int                          `json:"priced"`
}

// Summarize values positions using results keyed by ticker. Positions whose
// data is missing are listed without a value and reported as warnings.
func Summarize(positions []domain.Position, results map[string]marketdata.Result) (Summary, domain.Warnings) {
	var warnings domain.Warnings
	summary := Summary{Positions: make([]PositionSummary, 0, len(positions))}

	knownCost := decimal.Zero
	knownValue := decimal.Zero
	for _, p := range positions {
		ps := PositionSummary{
			Ticker:      p.Ticker,
			Lots:        p.Lots,
			Shares:      p.Shares(),
			AverageCost: p.AverageCost,
			CostBasis:   p.CostBasis(),
		}

		res, ok := results[p.Ticker]
		if ok {
			warnings.Merge(res.Warnings)
		}
		if ok && !res.Empty() {
			ps.Stale = res.Stale()
			ps.DividendYield = res.Entry.Data.Fundamentals.DividendYield
			ps.Sector = res.Entry.Data.Fundamentals.Sector
			ps.LastClose = res.Entry.Data.Prices.LastClose()
		}

		if ps.LastClose != nil {
			value := decimal.NewFromFloat(*ps.LastClose).Mul(decimal.NewFromInt(ps.Shares))
			ps.MarketValue = &value
			summary.TotalValue = summary.TotalValue.Add(value)
			summary.Priced++
		}
		ps.UnrealizedPnL, ps.UnrealizedPct = unrealized(ps.MarketValue, ps.CostBasis)
		if ps.MarketValue != nil && ps.CostBasis != nil {
			knownCost = knownCost.Add(*ps.CostBasis)
			knownValue = knownValue.Add(*ps.MarketValue)
		}

		summary.Positions = append(summary.Positions, ps)
	}

	summary.TotalCost = knownCost
	summary.TotalPnL = knownValue.Sub(knownCost)
	if knownCost.IsPositive() {
		summary.TotalPnLPct = domain.Some(summary.TotalPnL.Div(knownCost).InexactFloat64())
	} else {
		summary.TotalPnLPct = domain.None[float64]("no position has both a known cost and a price")
	}

	total := summary.TotalValue.InexactFloat64()
	holdings := make([]allocation.Holding, 0, len(summary.Positions))
	for i := range summary.Positions {
		ps := &summary.Positions[i]
		if ps.MarketValue == nil {
			continue
		}
		value := ps.MarketValue.InexactFloat64()
		if total > 0 {
			ps.Weight = value / total
			if ps.DividendYield != nil {
				summary.DividendYield += *ps.DividendYield * ps.Weight
			}
		}
		holdings = append(holdings, allocation.Holding{Ticker: ps.Ticker, Sector: ps.Sector, Value: value})
	}
	summary.Sectors = allocation.BySector(holdings)

	return summary, warnings
}

func unrealized(value, cost *decimal.Decimal) (domain.Optional[decimal.Decimal], domain.Optional[float64]) {
	if value == nil {
		return domain.None[decimal.Decimal]("price unknown"), domain.None[float64]("price unknown")
	}
	if cost == nil {
		return domain.None[decimal.Decimal]("cost unknown"), domain.None[float64]("cost unknown")
	}
	pnl := value.Sub(*cost)
	if !cost.IsPositive() {
		return domain.Some(pnl), domain.None[float64]("cost is zero")
	}
	return domain.Some(pnl), domain.Some(pnl.Div(*cost).InexactFloat64())
}
