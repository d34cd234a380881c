// Package risk computes portfolio beta, historical Value-at-Risk and an
// illustrative stress table.
package risk

import (
	"sort"
	"time"

	"github.com/aristath/folio/internal/domain"
)

// DatedReturns maps a calendar day (yyyy-mm-dd) to the simple return
// realized on that day relative to the previous bar.
type DatedReturns map[string]float64

// SeriesReturns converts a price series into dated simple returns. A bar
// whose previous close is zero is skipped.
func SeriesReturns(series domain.PriceSeries) DatedReturns {
	out := make(DatedReturns, max(len(series)-1, 0))
	for i := 1; i < len(series); i++ {
		prev := series[i-1].Close
		if prev == 0 {
			continue
		}
		out[series[i].Date.Format(domain.DateLayout)] = series[i].Close/prev - 1
	}
	return out
}

// PortfolioReturns combines per-ticker returns into a lot-weighted average.
// On each day only the tickers that have a return for that day contribute,
// and their lot weights are renormalized among themselves.
func PortfolioReturns(lots map[string]int64, returns map[string]DatedReturns) DatedReturns {
	type acc struct {
		sum    float64
		weight float64
	}
	days := make(map[string]*acc)

	for ticker, rs := range returns {
		w := float64(lots[ticker])
		if w <= 0 {
			continue
		}
		for day, r := range rs {
			a, ok := days[day]
			if !ok {
				a = &acc{}
				days[day] = a
			}
			a.sum += w * r
			a.weight += w
		}
	}

	out := make(DatedReturns, len(days))
	for day, a := range days {
		if a.weight > 0 {
			out[day] = a.sum / a.weight
		}
	}
	return out
}

// Values returns the returns ordered by date.
func (d DatedReturns) Values() []float64 {
	days := d.Days()
	out := make([]float64, len(days))
	for i, day := range days {
		out[i] = d[day]
	}
	return out
}

// Days returns the dates in ascending order.
func (d DatedReturns) Days() []string {
	days := make([]string, 0, len(d))
	for day := range d {
		days = append(days, day)
	}
	sort.Strings(days)
	return days
}

// Overlap pairs a and b on the days present in both, in date order.
func Overlap(a, b DatedReturns) (xs, ys []float64, days []string) {
	for _, day := range a.Days() {
		y, ok := b[day]
		if !ok {
			continue
		}
		xs = append(xs, a[day])
		ys = append(ys, y)
		days = append(days, day)
	}
	return xs, ys, days
}

func parseDay(day string) *time.Time {
	t, err := time.Parse(domain.DateLayout, day)
	if err != nil {
		return nil
	}
	return &t
}
