// Package technicals derives indicator sets and the moving average
// crossover signal from daily price history.
package technicals

import (
	"math"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/pkg/formulas"
)

// Moving average windows.
const (
	ShortMAPeriod = 50
	LongMAPeriod  = 200
)

// RSI zone thresholds.
const (
	RSIOverbought = 70.0
	RSIOversold   = 30.0
)

// IndicatorSet holds indicator series aligned to the source price index.
// Positions without enough history are NaN.
type IndicatorSet struct {
	Dates         []time.Time
	Close         []float64
	RSI14         []float64
	MACD          []float64
	MACDSignal    []float64
	MACDHistogram []float64
	SMA50         []float64
	SMA200        []float64
}

// Compute derives every indicator from series. It is pure and safe to call
// concurrently.
func Compute(series domain.PriceSeries) IndicatorSet {
	closes := series.Closes()
	macd := formulas.MACD(closes, formulas.MACDFast, formulas.MACDSlow, formulas.MACDSignal)

	return IndicatorSet{
		Dates:         series.Dates(),
		Close:         closes,
		RSI14:         formulas.RSI(closes, formulas.RSIPeriod),
		MACD:          macd.MACD,
		MACDSignal:    macd.Signal,
		MACDHistogram: macd.Histogram,
		SMA50:         formulas.SMA(closes, ShortMAPeriod),
		SMA200:        formulas.SMA(closes, LongMAPeriod),
	}
}

// Len returns the number of samples.
func (s IndicatorSet) Len() int {
	return len(s.Close)
}

// Tail returns the last n samples of every series.
func (s IndicatorSet) Tail(n int) IndicatorSet {
	if n <= 0 || n >= s.Len() {
		return s
	}
	from := s.Len() - n
	return IndicatorSet{
		Dates:         s.Dates[from:],
		Close:         s.Close[from:],
		RSI14:         s.RSI14[from:],
		MACD:          s.MACD[from:],
		MACDSignal:    s.MACDSignal[from:],
		MACDHistogram: s.MACDHistogram[from:],
		SMA50:         s.SMA50[from:],
		SMA200:        s.SMA200[from:],
	}
}

// Snapshot is the most recent value of each indicator; nil means undefined.
type Snapshot struct {
	Date       *time.Time `json:"date"`
	Close      *float64   `json:"close"`
	RSI14      *float64   `json:"rsi14"`
	MACD       *float64   `json:"macd"`
	MACDSignal *float64   `json:"macd_signal"`
	SMA50      *float64   `json:"sma50"`
	SMA200     *float64   `json:"sma200"`
}

// Latest returns the last sample of each series.
func (s IndicatorSet) Latest() Snapshot {
	snap := Snapshot{
		Close:      formulas.Last(s.Close),
		RSI14:      formulas.Last(s.RSI14),
		MACD:       formulas.Last(s.MACD),
		MACDSignal: formulas.Last(s.MACDSignal),
		SMA50:      formulas.Last(s.SMA50),
		SMA200:     formulas.Last(s.SMA200),
	}
	if n := len(s.Dates); n > 0 {
		d := s.Dates[n-1]
		snap.Date = &d
	}
	return snap
}

// RSIZone classifies an RSI reading.
func RSIZone(rsi *float64) string {
	switch {
	case rsi == nil:
		return "unknown"
	case *rsi >= RSIOverbought:
		return "overbought"
	case *rsi <= RSIOversold:
		return "oversold"
	default:
		return "neutral"
	}
}

// MACDTrend compares the MACD line with its signal line.
func MACDTrend(macd, signal *float64) string {
	switch {
	case macd == nil || signal == nil:
		return "unknown"
	case *macd > *signal:
		return "bullish"
	case *macd < *signal:
		return "bearish"
	default:
		return "flat"
	}
}

// Nullable converts NaN positions to nil for JSON encoding.
func Nullable(series []float64) []*float64 {
	out := make([]*float64, len(series))
	for i, v := range series {
		if math.IsNaN(v) {
			continue
		}
		out[i] = &v
	}
	return out
}
