package allocation

import (
	"fmt"
	"sort"

	"github.com/aristath/folio/internal/domain"
	"github.com/shopspring/decimal"
)

// RiskProfile selects how capital is split across the top dividend payers.
type RiskProfile string

const (
	Conservative RiskProfile = "conservative"
	Moderate     RiskProfile = "moderate"
	Aggressive   RiskProfile = "aggressive"
)

var profileWeights = map[RiskProfile][]float64{
	Conservative: {0.6, 0.3, 0.1},
	Moderate:     {0.5, 0.3, 0.2},
	Aggressive:   {0.4, 0.3, 0.3},
}

// ParseRiskProfile validates a profile name. Empty means Moderate.
func ParseRiskProfile(s string) (RiskProfile, error) {
	if s == "" {
		return Moderate, nil
	}
	p := RiskProfile(s)
	if _, ok := profileWeights[p]; !ok {
		return "", fmt.Errorf("%w: risk profile %q", domain.ErrInvalidInput, s)
	}
	return p, nil
}

// Weights returns the split for the top payers, highest yield first.
func (p RiskProfile) Weights() []float64 {
	w := profileWeights[p]
	out := make([]float64, len(w))
	copy(out, w)
	return out
}

// Candidate is a ticker eligible for dividend allocation.
type Candidate struct {
	Ticker        string
	DividendYield *float64
	Price         *float64
}

// DividendTargets picks the highest yielding candidates and assigns the
// profile's weights in yield order. Candidates with unknown yield are not
// eligible. With fewer eligible candidates than weights the unused weights
// are left unallocated.
func DividendTargets(candidates []Candidate, profile RiskProfile) []Target {
	eligible := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.DividendYield != nil {
			eligible = append(eligible, c)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return *eligible[i].DividendYield > *eligible[j].DividendYield
	})

	weights := profile.Weights()
	out := make([]Target, 0, len(weights))
	for i, c := range eligible {
		if i >= len(weights) {
			break
		}
		out = append(out, Target{Ticker: c.Ticker, Weight: weights[i]})
	}
	return out
}

// DividendPlan allocates capital to the top dividend payers for profile.
func DividendPlan(capital decimal.Decimal, candidates []Candidate, profile RiskProfile) (Plan, error) {
	prices := make(map[string]float64, len(candidates))
	for _, c := range candidates {
		if c.Price != nil {
			prices[c.Ticker] = *c.Price
		}
	}
	return PlanLots(capital, DividendTargets(candidates, profile), prices)
}
