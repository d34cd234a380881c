// Package optimization computes long-only maximum Sharpe allocations from
// aligned historical prices.
package optimization

import (
	"fmt"
	"sort"
	"time"

	"github.com/aristath/folio/internal/domain"
)

// PriceMatrix holds closes for dates present in every ticker's series.
// Prices[d][t] is the close of Tickers[t] on Dates[d].
type PriceMatrix struct {
	Tickers []string
	Dates   []time.Time
	Prices  [][]float64
}

// AlignPrices builds the strict date intersection of the given series, in
// ticker order. No interpolation or forward-fill is applied. It fails with
// domain.ErrInfeasible when fewer than two tickers or two common dates remain.
func AlignPrices(tickers []string, series map[string]domain.PriceSeries) (PriceMatrix, error) {
	if len(tickers) < 2 {
		return PriceMatrix{}, fmt.Errorf("%w: need at least 2 tickers, got %d", domain.ErrInfeasible, len(tickers))
	}

	byDate := make([]map[string]float64, len(tickers))
	counts := make(map[string]int)
	days := make(map[string]time.Time)
	for i, t := range tickers {
		byDate[i] = series[t].CloseByDate()
		for key := range byDate[i] {
			counts[key]++
		}
		for _, bar := range series[t] {
			days[bar.Date.Format(domain.DateLayout)] = bar.Date
		}
	}

	common := make([]string, 0, len(counts))
	for key, c := range counts {
		if c == len(tickers) {
			common = append(common, key)
		}
	}
	sort.Strings(common)

	if len(common) < 2 {
		return PriceMatrix{}, fmt.Errorf("%w: only %d overlapping dates", domain.ErrInfeasible, len(common))
	}

	m := PriceMatrix{
		Tickers: append([]string(nil), tickers...),
		Dates:   make([]time.Time, len(common)),
		Prices:  make([][]float64, len(common)),
	}
	for d, key := range common {
		m.Dates[d] = days[key]
		row := make([]float64, len(tickers))
		for i := range tickers {
			row[i] = byDate[i][key]
		}
		m.Prices[d] = row
	}
	return m, nil
}
