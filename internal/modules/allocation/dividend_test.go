package allocation

import (
	"testing"

	"github.com/aristath/folio/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func yield(v float64) *float64 { return &v }

func TestParseRiskProfile(t *testing.T) {
	p, err := ParseRiskProfile("")
	require.NoError(t, err)
	assert.Equal(t, Moderate, p)

	p, err = ParseRiskProfile("aggressive")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.4, 0.3, 0.3}, p.Weights())

	_, err = ParseRiskProfile("yolo")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDividendTargets(t *testing.T) {
	candidates := []Candidate{
		{Ticker: "LOW", DividendYield: yield(0.01)},
		{Ticker: "HIGH", DividendYield: yield(0.09)},
		{Ticker: "NONE"},
		{Ticker: "MID", DividendYield: yield(0.05)},
		{Ticker: "MID2", DividendYield: yield(0.04)},
	}

	targets := DividendTargets(candidates, Conservative)

	require.Len(t, targets, 3)
	assert.Equal(t, Target{Ticker: "HIGH", Weight: 0.6}, targets[0])
	assert.Equal(t, Target{Ticker: "MID", Weight: 0.3}, targets[1])
	assert.Equal(t, Target{Ticker: "MID2", Weight: 0.1}, targets[2])
}

func TestDividendPlan_FewerCandidatesLeavesRemainder(t *testing.T) {
	price := 1000.0
	plan, err := DividendPlan(decimal.NewFromInt(1_000_000), []Candidate{
		{Ticker: "ONLY", DividendYield: yield(0.05), Price: &price},
	}, Moderate)
	require.NoError(t, err)

	require.Len(t, plan.Orders, 1)
	// 500,000 / 100,000 = 5 lots
	assert.Equal(t, int64(5), plan.Orders[0].Lots)
	assert.True(t, decimal.NewFromInt(500_000).Equal(plan.Leftover))
}
