// Package formulas holds the pure numeric building blocks used by the
// indicator pipeline, the optimizer and the risk module.
//
// Series-returning functions keep the input length and mark positions
// without enough history as NaN, so outputs stay aligned to the source
// date index.
package formulas

import "math"

// SMA calculates a simple rolling mean over period samples.
// Values before the window fills are NaN.
func SMA(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA calculates an exponential moving average with multiplier 2/(period+1).
//
// The average is seeded with the SMA of the first period valid samples.
// Leading NaNs in the input are skipped, which lets EMA run over a series
// that is itself derived (the MACD line).
func EMA(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 {
		return out
	}

	start := firstValid(values)
	if start < 0 || len(values)-start < period {
		return out
	}

	var seed float64
	for i := start; i < start+period; i++ {
		seed += values[i]
	}
	prev := seed / float64(period)
	out[start+period-1] = prev

	k := 2.0 / float64(period+1)
	for i := start + period; i < len(values); i++ {
		prev = values[i]*k + prev*(1-k)
		out[i] = prev
	}
	return out
}

// Last returns the final value of a series, or nil when it is undefined.
func Last(series []float64) *float64 {
	if len(series) == 0 {
		return nil
	}
	v := series[len(series)-1]
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func firstValid(values []float64) int {
	for i, v := range values {
		if !math.IsNaN(v) {
			return i
		}
	}
	return -1
}
