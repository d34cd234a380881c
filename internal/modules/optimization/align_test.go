package optimization

import (
	"testing"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func seriesOn(days []int, closes []float64) domain.PriceSeries {
	out := make(domain.PriceSeries, len(days))
	for i, d := range days {
		out[i] = domain.DailyBar{Date: day(d), Close: closes[i]}
	}
	return out
}

func TestAlignPrices_StrictIntersection(t *testing.T) {
	series := map[string]domain.PriceSeries{
		"AAA": seriesOn([]int{1, 2, 3, 4}, []float64{10, 11, 12, 13}),
		"BBB": seriesOn([]int{2, 4, 5}, []float64{20, 21, 22}),
	}

	m, err := AlignPrices([]string{"AAA", "BBB"}, series)

	require.NoError(t, err)
	assert.Equal(t, []time.Time{day(2), day(4)}, m.Dates)
	assert.Equal(t, [][]float64{{11, 20}, {13, 21}}, m.Prices, "no forward-fill across day 3")
}

func TestAlignPrices_Infeasible(t *testing.T) {
	series := map[string]domain.PriceSeries{
		"AAA": seriesOn([]int{1, 2}, []float64{10, 11}),
		"BBB": seriesOn([]int{3, 4}, []float64{20, 21}),
		"CCC": seriesOn([]int{2, 3}, []float64{5, 6}),
	}

	_, err := AlignPrices([]string{"AAA"}, series)
	assert.ErrorIs(t, err, domain.ErrInfeasible)

	_, err = AlignPrices([]string{"AAA", "BBB"}, series)
	assert.ErrorIs(t, err, domain.ErrInfeasible)

	_, err = AlignPrices([]string{"AAA", "CCC"}, series)
	assert.ErrorIs(t, err, domain.ErrInfeasible, "one overlapping date is not enough")
}

func TestEstimateReturns_Annualizes(t *testing.T) {
	m := PriceMatrix{
		Tickers: []string{"AAA", "BBB"},
		Prices:  [][]float64{{100, 100}, {101, 99}, {100, 100}, {101, 99}},
	}

	est := EstimateReturns(m)

	assert.Equal(t, 3, est.Observations)
	// Daily returns AAA: 0.01, -0.0099.., 0.01
	assert.InDelta(t, (0.01-1.0/101+0.01)/3*252, est.Mu[0], 1e-12)
	assert.Greater(t, est.Sigma.At(0, 0), 0.0)
	assert.Less(t, est.Sigma.At(0, 1), 0.0, "assets move in opposite directions")
	assert.Equal(t, est.Sigma.At(0, 1), est.Sigma.At(1, 0))
}

func TestEstimateReturns_SingleObservationHasZeroCovariance(t *testing.T) {
	m := PriceMatrix{Tickers: []string{"AAA", "BBB"}, Prices: [][]float64{{100, 100}, {110, 105}}}

	est := EstimateReturns(m)

	assert.Equal(t, 1, est.Observations)
	assert.InDelta(t, 0.1*252, est.Mu[0], 1e-9)
	assert.Equal(t, 0.0, est.Sigma.At(0, 0))
}
