package risk

import (
	"fmt"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/pkg/formulas"
	"gonum.org/v1/gonum/stat"
)

// DefaultConfidences are the VaR levels reported when none are requested.
var DefaultConfidences = []float64{0.95, 0.99}

// Beta is Cov(portfolio, benchmark) / Var(benchmark) over the paired
// samples, using sample (n-1) statistics for both terms. It is undefined
// with fewer than two pairs or a flat benchmark.
func Beta(portfolio, benchmark []float64) domain.Optional[float64] {
	if len(portfolio) != len(benchmark) {
		return domain.None[float64]("return series have different lengths")
	}
	if len(portfolio) < 2 {
		return domain.None[float64]("fewer than two overlapping return samples")
	}

	variance := stat.Variance(benchmark, nil)
	if variance == 0 {
		return domain.None[float64]("benchmark variance is zero")
	}
	return domain.Some(stat.Covariance(portfolio, benchmark, nil) / variance)
}

// HistoricalVaR returns the empirical (1-confidence) quantile of returns.
// The result is a return, so a loss is negative.
func HistoricalVaR(returns []float64, confidence float64) (domain.Optional[float64], error) {
	if !(confidence > 0 && confidence < 1) {
		return domain.Optional[float64]{}, fmt.Errorf("%w: confidence must be in (0,1), got %v", domain.ErrInvalidInput, confidence)
	}
	q, ok := formulas.EmpiricalQuantile(returns, 1-confidence)
	if !ok {
		return domain.None[float64]("no return samples"), nil
	}
	return domain.Some(q), nil
}

// VaREstimate is VaR at one confidence level.
type VaREstimate struct {
	Confidence float64                 `json:"confidence"`
	Return     domain.Optional[float64] `json:"return"`
	// Amount is the loss in currency units implied by Return, reported as
	// a positive number. Nil when Return is undefined.
	Amount *float64 `json:"amount"`
}

// EstimateVaR evaluates HistoricalVaR at each confidence and scales it by
// the current portfolio value.
func EstimateVaR(returns []float64, value float64, confidences []float64) ([]VaREstimate, error) {
	out := make([]VaREstimate, 0, len(confidences))
	for _, c := range confidences {
		q, err := HistoricalVaR(returns, c)
		if err != nil {
			return nil, err
		}
		est := VaREstimate{Confidence: c, Return: q}
		if r, ok := q.Get(); ok {
			est.Amount = domain.Float(-r * value)
		}
		out = append(out, est)
	}
	return out, nil
}
