package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMACD_ConstantSeriesConvergesToZero(t *testing.T) {
	closes := make([]float64, 300)
	for i := range closes {
		closes[i] = 4200
	}

	res := MACD(closes, MACDFast, MACDSlow, MACDSignal)

	warmUp := MACDSlow + MACDSignal - 2
	for i := warmUp; i < len(closes); i++ {
		assert.InDelta(t, 0.0, res.MACD[i], 1e-9)
		assert.InDelta(t, 0.0, res.Signal[i], 1e-9)
		assert.InDelta(t, 0.0, res.Histogram[i], 1e-9)
	}
}

func TestMACD_WarmUpAlignment(t *testing.T) {
	res := MACD(wave(100), MACDFast, MACDSlow, MACDSignal)

	assert.True(t, math.IsNaN(res.MACD[MACDSlow-2]))
	assert.False(t, math.IsNaN(res.MACD[MACDSlow-1]))

	firstSignal := MACDSlow - 1 + MACDSignal - 1
	assert.True(t, math.IsNaN(res.Signal[firstSignal-1]))
	assert.False(t, math.IsNaN(res.Signal[firstSignal]))
}

func TestMACD_LineIsFastMinusSlow(t *testing.T) {
	closes := wave(80)
	res := MACD(closes, MACDFast, MACDSlow, MACDSignal)

	fast := EMA(closes, MACDFast)
	slow := EMA(closes, MACDSlow)
	last := len(closes) - 1

	require.False(t, math.IsNaN(res.MACD[last]))
	assert.InDelta(t, fast[last]-slow[last], res.MACD[last], 1e-12)
	assert.InDelta(t, res.MACD[last]-res.Signal[last], res.Histogram[last], 1e-12)
}
