package formulas

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is the annualization factor for daily samples.
const TradingDaysPerYear = 252

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Variance calculates the sample (n-1) variance
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.Variance(data, nil)
}

// Covariance calculates the sample (n-1) covariance of two equal-length slices
func Covariance(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}
	return stat.Covariance(x, y, nil)
}

// AnnualizedVolatility scales the daily standard deviation by sqrt(252)
func AnnualizedVolatility(dailyReturns []float64) float64 {
	return StdDev(dailyReturns) * math.Sqrt(TradingDaysPerYear)
}

// CalculateReturns converts prices to simple returns.
// Returns[i] = (Price[i+1] - Price[i]) / Price[i]; a zero base price yields 0.
func CalculateReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
		}
	}
	return returns
}

// EmpiricalQuantile returns the p-quantile taken directly from the sample
// (lower empirical quantile, no interpolation): the k-th smallest value
// with k = ceil(p*n). The input is not modified.
func EmpiricalQuantile(sample []float64, p float64) (float64, bool) {
	n := len(sample)
	if n == 0 || p < 0 || p > 1 || math.IsNaN(p) {
		return 0, false
	}

	sorted := make([]float64, n)
	copy(sorted, sample)
	sort.Float64s(sorted)

	// 1e-9 absorbs float noise such as 0.05*20 = 1.0000000000000002.
	k := int(math.Ceil(p*float64(n)-1e-9)) - 1
	if k < 0 {
		k = 0
	}
	if k >= n {
		k = n - 1
	}
	return sorted[k], true
}
