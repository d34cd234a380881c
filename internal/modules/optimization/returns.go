package optimization

import (
	"github.com/aristath/folio/pkg/formulas"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Estimates are annualized return and covariance estimates.
type Estimates struct {
	Mu           []float64
	Sigma        *mat.SymDense
	Observations int
}

// EstimateReturns computes the annualized mean of daily simple returns and
// the annualized sample covariance of those returns.
func EstimateReturns(m PriceMatrix) Estimates {
	n := len(m.Tickers)
	rows := len(m.Prices) - 1
	if rows < 0 {
		rows = 0
	}

	returns := mat.NewDense(max(rows, 1), n, nil)
	for d := 1; d < len(m.Prices); d++ {
		for i := 0; i < n; i++ {
			prev := m.Prices[d-1][i]
			if prev != 0 {
				returns.Set(d-1, i, m.Prices[d][i]/prev-1)
			}
		}
	}

	mu := make([]float64, n)
	for i := 0; i < n; i++ {
		if rows > 0 {
			mu[i] = stat.Mean(mat.Col(nil, i, returns), nil) * formulas.TradingDaysPerYear
		}
	}

	sigma := mat.NewSymDense(n, nil)
	if rows >= 2 {
		stat.CovarianceMatrix(sigma, returns, nil)
		sigma.ScaleSym(formulas.TradingDaysPerYear, sigma)
	}

	return Estimates{Mu: mu, Sigma: sigma, Observations: rows}
}
