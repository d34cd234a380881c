package technicals

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectCrossover(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name       string
		fast, slow []float64
		want       Signal
	}{
		{"golden", []float64{1, 3}, []float64{2, 2}, GoldenCross},
		{"death", []float64{3, 1}, []float64{2, 2}, DeathCross},
		{"stays above", []float64{3, 4}, []float64{2, 2}, NoSignal},
		{"touching is not a cross", []float64{2, 3}, []float64{2, 2}, NoSignal},
		{"single valid pair", []float64{nan, 3}, []float64{nan, 2}, InsufficientData},
		{"empty", nil, nil, InsufficientData},
		{"warm-up ignored", []float64{nan, nan, 1, 3}, []float64{nan, nan, 2, 2}, GoldenCross},
		{"only latest transition", []float64{1, 3, 1}, []float64{2, 2, 2}, DeathCross},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectCrossover(tt.fast, tt.slow))
		})
	}
}

func TestCrossoverSeries_SingleUpwardCross(t *testing.T) {
	nan := math.NaN()
	fast := []float64{nan, 1, 1.5, 2, 2.5, 3, 3.5}
	slow := []float64{nan, 2.2, 2.2, 2.2, 2.2, 2.2, 2.2}

	signals := CrossoverSeries(fast, slow)

	for i, s := range signals {
		switch i {
		case 0, 1:
			assert.Equal(t, InsufficientData, s, "index %d", i)
		case 4:
			assert.Equal(t, GoldenCross, s, "index %d", i)
		default:
			assert.Equal(t, NoSignal, s, "index %d", i)
		}
	}
}
