package optimization

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/marketdata"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// Method names how a Result was produced.
type Method string

const (
	MethodMaxSharpe   Method = "max_sharpe"
	MethodEqualWeight Method = "equal_weight"
)

// Fallback selects what happens when optimization is infeasible.
type Fallback string

const (
	FallbackNone  Fallback = "none"
	FallbackEqual Fallback = "equal"
)

// ParseFallback validates a fallback name; "" means none.
func ParseFallback(s string) (Fallback, error) {
	switch Fallback(s) {
	case "", FallbackNone:
		return FallbackNone, nil
	case FallbackEqual:
		return FallbackEqual, nil
	}
	return "", fmt.Errorf("%w: unknown fallback %q", domain.ErrInvalidInput, s)
}

// Weight is one ticker's target allocation.
type Weight struct {
	Ticker string  `json:"ticker"`
	Weight float64 `json:"weight"`
}

// Result is an allocation with its in-sample statistics. Statistics are nil
// for the equal-weight fallback when no aligned history exists.
type Result struct {
	Method         Method     `json:"method"`
	Weights        []Weight   `json:"weights"`
	ExpectedReturn *float64   `json:"expected_return"`
	Volatility     *float64   `json:"volatility"`
	Sharpe         *float64   `json:"sharpe"`
	RiskFreeRate   float64    `json:"risk_free_rate"`
	Observations   int        `json:"observations"`
	From           *time.Time `json:"from,omitempty"`
	To             *time.Time `json:"to,omitempty"`
}

// WeightOf returns the weight for ticker, or 0.
func (r Result) WeightOf(ticker string) float64 {
	for _, w := range r.Weights {
		if w.Ticker == ticker {
			return w.Weight
		}
	}
	return 0
}

// OptimizeMatrix runs the max Sharpe solver on an aligned price matrix.
func OptimizeMatrix(m PriceMatrix, rf float64) (Result, error) {
	est := EstimateReturns(m)
	weights, err := MaxSharpe(est.Mu, est.Sigma, rf)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Method:       MethodMaxSharpe,
		Weights:      make([]Weight, len(weights)),
		RiskFreeRate: rf,
		Observations: est.Observations,
	}
	for i, w := range weights {
		res.Weights[i] = Weight{Ticker: m.Tickers[i], Weight: w}
	}

	v := mat.NewVecDense(len(weights), weights)
	ret := mat.Dot(v, mat.NewVecDense(len(est.Mu), est.Mu))
	vol := math.Sqrt(math.Max(mat.Inner(v, est.Sigma, v), 0))
	res.ExpectedReturn = &ret
	res.Volatility = &vol
	if vol > 0 {
		sharpe := (ret - rf) / vol
		res.Sharpe = &sharpe
	}
	from, to := m.Dates[0], m.Dates[len(m.Dates)-1]
	res.From, res.To = &from, &to
	return res, nil
}

// EqualWeightResult allocates 1/n to each ticker.
func EqualWeightResult(tickers []string, rf float64) Result {
	weights := EqualWeights(len(tickers))
	res := Result{Method: MethodEqualWeight, Weights: make([]Weight, len(tickers)), RiskFreeRate: rf}
	for i, t := range tickers {
		res.Weights[i] = Weight{Ticker: t, Weight: weights[i]}
	}
	return res
}

// MarketData is the subset of marketdata.Cache used here.
type MarketData interface {
	GetMany(ctx context.Context, tickers []string) map[string]marketdata.Result
}

// Options tune one optimization request.
type Options struct {
	RiskFreeRate *float64
	Fallback     Fallback
}

// Service optimizes allocations over cached price history.
type Service struct {
	data         MarketData
	riskFreeRate float64
	log          zerolog.Logger
}

// NewService creates an optimizer service with a default risk-free rate.
func NewService(data MarketData, riskFreeRate float64, log zerolog.Logger) *Service {
	return &Service{
		data:         data,
		riskFreeRate: riskFreeRate,
		log:          log.With().Str("component", "optimizer").Logger(),
	}
}

// Optimize computes max Sharpe weights for tickers. Tickers without data are
// dropped with a warning. When fewer than two usable tickers or two common
// dates remain it fails with domain.ErrInfeasible, unless opts.Fallback is
// FallbackEqual.
func (s *Service) Optimize(ctx context.Context, tickers []string, opts Options) (Result, domain.Warnings, error) {
	rf := s.riskFreeRate
	if opts.RiskFreeRate != nil {
		rf = *opts.RiskFreeRate
	}

	results := s.data.GetMany(ctx, tickers)

	var warnings domain.Warnings
	usable := make([]string, 0, len(tickers))
	series := make(map[string]domain.PriceSeries, len(tickers))
	for _, raw := range tickers {
		ticker, err := domain.NormalizeTicker(raw)
		if err != nil {
			warnings.Add(domain.NewWarning(domain.WarnDataUnavailable, raw, "invalid ticker"))
			continue
		}
		if _, dup := series[ticker]; dup {
			continue
		}
		res, ok := results[ticker]
		if !ok {
			continue
		}
		warnings.Merge(res.Warnings)
		if res.Empty() {
			continue
		}
		usable = append(usable, ticker)
		series[ticker] = res.Entry.Data.Prices
	}

	m, err := AlignPrices(usable, series)
	if err == nil {
		var res Result
		res, err = OptimizeMatrix(m, rf)
		if err == nil {
			s.log.Debug().Int("tickers", len(usable)).Int("observations", res.Observations).Msg("Optimization completed")
			return res, warnings, nil
		}
	}

	if !errors.Is(err, domain.ErrInfeasible) {
		return Result{}, warnings, err
	}

	warnings.Add(domain.NewWarning(domain.WarnOptimizationInfeasible, "", "%v", err))
	if opts.Fallback == FallbackEqual && len(usable) > 0 {
		s.log.Info().Err(err).Msg("Optimization infeasible, falling back to equal weights")
		return EqualWeightResult(usable, rf), warnings, nil
	}
	return Result{}, warnings, err
}
