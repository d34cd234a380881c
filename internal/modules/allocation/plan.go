// Package allocation turns target weights and fresh capital into whole-lot
// purchase plans.
package allocation

import (
	"fmt"
	"math"
	"sort"

	"github.com/aristath/folio/internal/domain"
	"github.com/shopspring/decimal"
)

// weightTolerance absorbs float noise when weights are checked to sum to 1.
const weightTolerance = 1e-6

// Target is a desired share of new capital for one ticker.
type Target struct {
	Ticker string  `json:"ticker"`
	Weight float64 `json:"weight"`
}

// Order is the purchase derived for one target.
type Order struct {
	Ticker    string          `json:"ticker"`
	Weight    float64         `json:"weight"`
	Allocated decimal.Decimal `json:"allocated"`
	Price     *float64        `json:"price"`
	Lots      int64           `json:"lots"`
	Cost      decimal.Decimal `json:"cost"`
	Note      string          `json:"note,omitempty"`
}

// Plan is a set of orders for a capital amount. Leftover is the capital not
// spent on whole lots.
type Plan struct {
	Capital  decimal.Decimal `json:"capital"`
	Orders   []Order         `json:"orders"`
	Spent    decimal.Decimal `json:"spent"`
	Leftover decimal.Decimal `json:"leftover"`
}

// PlanLots buys floor(capital*w / (price*100)) lots of each target. A target
// without a positive price buys nothing and its share stays in Leftover.
// Weights must be non-negative and sum to at most 1.
func PlanLots(capital decimal.Decimal, targets []Target, prices map[string]float64) (Plan, error) {
	if capital.IsNegative() {
		return Plan{}, fmt.Errorf("%w: capital must not be negative", domain.ErrInvalidInput)
	}
	sum := 0.0
	for _, t := range targets {
		if t.Weight < 0 || math.IsNaN(t.Weight) {
			return Plan{}, fmt.Errorf("%w: weight for %s must not be negative", domain.ErrInvalidInput, t.Ticker)
		}
		sum += t.Weight
	}
	if sum > 1+weightTolerance {
		return Plan{}, fmt.Errorf("%w: weights sum to %.6f", domain.ErrInvalidInput, sum)
	}

	lotSize := decimal.NewFromInt(domain.SharesPerLot)
	plan := Plan{Capital: capital, Orders: make([]Order, 0, len(targets))}
	for _, t := range targets {
		order := Order{
			Ticker:    t.Ticker,
			Weight:    t.Weight,
			Allocated: capital.Mul(decimal.NewFromFloat(t.Weight)).Round(2),
		}

		price, ok := prices[t.Ticker]
		switch {
		case !ok || price <= 0:
			order.Note = "price unavailable"
		default:
			order.Price = domain.Float(price)
			lotPrice := decimal.NewFromFloat(price).Mul(lotSize)
			order.Lots = order.Allocated.Div(lotPrice).Floor().IntPart()
			order.Cost = lotPrice.Mul(decimal.NewFromInt(order.Lots))
			if order.Lots == 0 {
				order.Note = "allocation below one lot"
			}
		}

		plan.Spent = plan.Spent.Add(order.Cost)
		plan.Orders = append(plan.Orders, order)
	}
	plan.Leftover = capital.Sub(plan.Spent)
	return plan, nil
}

// ProportionalTargets weights tickers by their share of total value.
func ProportionalTargets(values map[string]float64) []Target {
	total := 0.0
	for _, v := range values {
		if v > 0 {
			total += v
		}
	}
	if total == 0 {
		return nil
	}

	out := make([]Target, 0, len(values))
	for ticker, v := range values {
		if v > 0 {
			out = append(out, Target{Ticker: ticker, Weight: v / total})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out
}
