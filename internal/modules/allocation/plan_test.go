package allocation

import (
	"testing"

	"github.com/aristath/folio/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanLots(t *testing.T) {
	capital := decimal.NewFromInt(10_000_000)
	targets := []Target{{Ticker: "BBCA.JK", Weight: 0.6}, {Ticker: "TLKM.JK", Weight: 0.4}}
	prices := map[string]float64{"BBCA.JK": 9000, "TLKM.JK": 3500}

	plan, err := PlanLots(capital, targets, prices)
	require.NoError(t, err)
	require.Len(t, plan.Orders, 2)

	// 6,000,000 / 900,000 = 6.67 -> 6 lots
	assert.Equal(t, int64(6), plan.Orders[0].Lots)
	assert.True(t, decimal.NewFromInt(5_400_000).Equal(plan.Orders[0].Cost))
	// 4,000,000 / 350,000 = 11.43 -> 11 lots
	assert.Equal(t, int64(11), plan.Orders[1].Lots)
	assert.True(t, decimal.NewFromInt(3_850_000).Equal(plan.Orders[1].Cost))

	assert.True(t, decimal.NewFromInt(9_250_000).Equal(plan.Spent))
	assert.True(t, decimal.NewFromInt(750_000).Equal(plan.Leftover))
}

func TestPlanLots_MissingPriceStaysInLeftover(t *testing.T) {
	plan, err := PlanLots(decimal.NewFromInt(1000), []Target{{Ticker: "AAA", Weight: 1}}, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(0), plan.Orders[0].Lots)
	assert.Equal(t, "price unavailable", plan.Orders[0].Note)
	assert.True(t, decimal.NewFromInt(1000).Equal(plan.Leftover))
}

func TestPlanLots_Validation(t *testing.T) {
	_, err := PlanLots(decimal.NewFromInt(-1), nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = PlanLots(decimal.NewFromInt(1), []Target{{Ticker: "A", Weight: -0.1}}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = PlanLots(decimal.NewFromInt(1), []Target{{Ticker: "A", Weight: 0.7}, {Ticker: "B", Weight: 0.7}}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestProportionalTargets(t *testing.T) {
	targets := ProportionalTargets(map[string]float64{"BBB": 300, "AAA": 100, "CCC": 0})

	require.Len(t, targets, 2)
	assert.Equal(t, Target{Ticker: "AAA", Weight: 0.25}, targets[0])
	assert.Equal(t, Target{Ticker: "BBB", Weight: 0.75}, targets[1])
	assert.Nil(t, ProportionalTargets(nil))
}

func TestBySector(t *testing.T) {
	groups := BySector([]Holding{
		{Ticker: "BBCA.JK", Sector: "Financial Services", Value: 600},
		{Ticker: "BBRI.JK", Sector: "Financial Services", Value: 200},
		{Ticker: "XXXX.JK", Value: 200},
	})

	require.Len(t, groups, 2)
	assert.Equal(t, "Financial Services", groups[0].Name)
	assert.Equal(t, 0.8, groups[0].CurrentPct)
	assert.Equal(t, []string{"BBCA.JK", "BBRI.JK"}, groups[0].Tickers)
	assert.Equal(t, OtherGroup, groups[1].Name)
	assert.Equal(t, 0.2, groups[1].CurrentPct)
}
