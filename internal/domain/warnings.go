package domain

import (
	"fmt"
	"sort"
)

// WarningCode identifies a non-fatal condition surfaced with a result.
type WarningCode string

const (
	WarnStaleDataUsed           WarningCode = "stale_data_used"
	WarnDataUnavailable         WarningCode = "data_unavailable"
	WarnMalformedPersistedState WarningCode = "malformed_persisted_state"
	WarnCostBasisApproximated   WarningCode = "cost_basis_approximated"
	WarnOptimizationInfeasible  WarningCode = "optimization_infeasible"
	WarnProviderError           WarningCode = "provider_error"
	WarnNotFound                WarningCode = "not_found"
)

// Warning accompanies a partial result.
type Warning struct {
	Code    WarningCode `json:"code"`
	Ticker  string      `json:"ticker,omitempty"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	if w.Ticker == "" {
		return fmt.Sprintf("%s: %s", w.Code, w.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", w.Code, w.Ticker, w.Message)
}

// NewWarning formats a warning message.
func NewWarning(code WarningCode, ticker, format string, args ...any) Warning {
	return Warning{Code: code, Ticker: ticker, Message: fmt.Sprintf(format, args...)}
}

// Warnings is an ordered collection with stable de-duplication.
type Warnings []Warning

// Add appends w unless an identical warning is already present.
func (ws *Warnings) Add(w Warning) {
	for _, existing := range *ws {
		if existing == w {
			return
		}
	}
	*ws = append(*ws, w)
}

// Merge appends every warning in other.
func (ws *Warnings) Merge(other []Warning) {
	for _, w := range other {
		ws.Add(w)
	}
}

// Has reports whether a warning with code exists for ticker ("" matches any).
func (ws Warnings) Has(code WarningCode, ticker string) bool {
	for _, w := range ws {
		if w.Code == code && (ticker == "" || w.Ticker == ticker) {
			return true
		}
	}
	return false
}

// Sorted returns a copy ordered by ticker then code, for deterministic output
// after parallel collection.
func (ws Warnings) Sorted() Warnings {
	out := make(Warnings, len(ws))
	copy(out, ws)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Ticker != out[j].Ticker {
			return out[i].Ticker < out[j].Ticker
		}
		return out[i].Code < out[j].Code
	})
	return out
}
