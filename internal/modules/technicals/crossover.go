package technicals

import "math"

// Signal is the state of the SMA50/SMA200 crossover detector.
type Signal string

const (
	GoldenCross      Signal = "golden_cross"
	DeathCross       Signal = "death_cross"
	NoSignal         Signal = "no_signal"
	InsufficientData Signal = "insufficient_data"
)

// DetectCrossover inspects the last two positions where both fast and slow
// are defined. Only the most recent transition is reported.
func DetectCrossover(fast, slow []float64) Signal {
	n := min(len(fast), len(slow))

	last, prev := -1, -1
	for i := n - 1; i >= 0; i-- {
		if math.IsNaN(fast[i]) || math.IsNaN(slow[i]) {
			continue
		}
		if last < 0 {
			last = i
			continue
		}
		prev = i
		break
	}
	if prev < 0 {
		return InsufficientData
	}
	return transition(fast[prev], slow[prev], fast[last], slow[last])
}

// CrossoverSeries evaluates the detector at every index, as if the series
// ended there.
func CrossoverSeries(fast, slow []float64) []Signal {
	n := min(len(fast), len(slow))
	out := make([]Signal, n)
	for i := range out {
		out[i] = DetectCrossover(fast[:i+1], slow[:i+1])
	}
	return out
}

func transition(prevFast, prevSlow, fast, slow float64) Signal {
	switch {
	case prevFast < prevSlow && fast > slow:
		return GoldenCross
	case prevFast > prevSlow && fast < slow:
		return DeathCross
	default:
		return NoSignal
	}
}
