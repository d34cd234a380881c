package formulas

import "math"

// Standard MACD parameters.
const (
	MACDFast   = 12
	MACDSlow   = 26
	MACDSignal = 9
)

// MACDResult holds the three aligned MACD series.
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACD calculates EMA(fast) - EMA(slow) of closes and the EMA(signal) of
// that difference.
func MACD(closes []float64, fast, slow, signal int) MACDResult {
	fastEMA := EMA(closes, fast)
	slowEMA := EMA(closes, slow)

	line := nanSeries(len(closes))
	for i := range closes {
		if math.IsNaN(fastEMA[i]) || math.IsNaN(slowEMA[i]) {
			continue
		}
		line[i] = fastEMA[i] - slowEMA[i]
	}

	sig := EMA(line, signal)
	hist := nanSeries(len(closes))
	for i := range closes {
		if math.IsNaN(line[i]) || math.IsNaN(sig[i]) {
			continue
		}
		hist[i] = line[i] - sig[i]
	}

	return MACDResult{MACD: line, Signal: sig, Histogram: hist}
}
