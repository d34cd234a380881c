package allocation

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/marketdata"
	"github.com/aristath/folio/internal/modules/optimization"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Method chooses where plan weights come from.
type Method string

const (
	// MethodOptimized uses max Sharpe weights over the holdings.
	MethodOptimized Method = "optimized"
	// MethodProportional follows the holdings' current market values.
	MethodProportional Method = "proportional"
	// MethodEqual splits capital evenly.
	MethodEqual Method = "equal"
	// MethodCustom uses caller supplied weights.
	MethodCustom Method = "custom"
)

// ParseMethod validates a method name. Empty means optimized.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case "", MethodOptimized:
		return MethodOptimized, nil
	case MethodProportional, MethodEqual, MethodCustom:
		return Method(s), nil
	}
	return "", fmt.Errorf("%w: allocation method %q", domain.ErrInvalidInput, s)
}

// MarketData is the subset of marketdata.Cache used here.
type MarketData interface {
	GetMany(ctx context.Context, tickers []string) map[string]marketdata.Result
}

// Optimizer is the subset of optimization.Service used here.
type Optimizer interface {
	Optimize(ctx context.Context, tickers []string, opts optimization.Options) (optimization.Result, domain.Warnings, error)
}

// PlanRequest describes one purchase plan.
type PlanRequest struct {
	Capital   decimal.Decimal
	Method    Method
	Positions []domain.Position
	// Weights is required for MethodCustom and ignored otherwise.
	Weights map[string]float64
	// Fallback applies to MethodOptimized when the optimizer is infeasible.
	Fallback optimization.Fallback
}

// Service builds purchase plans from live prices.
type Service struct {
	data      MarketData
	optimizer Optimizer
	log       zerolog.Logger
}

// NewService creates an allocation service
func NewService(data MarketData, optimizer Optimizer, log zerolog.Logger) *Service {
	return &Service{
		data:      data,
		optimizer: optimizer,
		log:       log.With().Str("component", "allocation").Logger(),
	}
}

// Plan computes whole-lot orders for req.Capital.
func (s *Service) Plan(ctx context.Context, req PlanRequest) (Plan, domain.Warnings, error) {
	var warnings domain.Warnings

	tickers := make([]string, 0, len(req.Positions)+len(req.Weights))
	if req.Method == MethodCustom {
		weights := make(map[string]float64, len(req.Weights))
		for raw, w := range req.Weights {
			t, err := domain.NormalizeTicker(raw)
			if err != nil {
				return Plan{}, nil, err
			}
			weights[t] += w
			tickers = append(tickers, t)
		}
		req.Weights = weights
		sort.Strings(tickers)
		tickers = slices.Compact(tickers)
	} else {
		for _, p := range req.Positions {
			tickers = append(tickers, p.Ticker)
		}
	}
	if len(tickers) == 0 {
		return Plan{}, nil, fmt.Errorf("%w: no tickers to allocate", domain.ErrInvalidInput)
	}

	prices, ws := s.prices(ctx, tickers)
	warnings.Merge(ws)

	var targets []Target
	switch req.Method {
	case MethodCustom:
		targets = make([]Target, 0, len(req.Weights))
		for _, t := range tickers {
			targets = append(targets, Target{Ticker: t, Weight: req.Weights[t]})
		}
	case MethodEqual:
		w := optimization.EqualWeights(len(tickers))
		for i, t := range tickers {
			targets = append(targets, Target{Ticker: t, Weight: w[i]})
		}
	case MethodProportional:
		values := make(map[string]float64, len(req.Positions))
		for _, p := range req.Positions {
			if price, ok := prices[p.Ticker]; ok {
				values[p.Ticker] = float64(p.Shares()) * price
			}
		}
		targets = ProportionalTargets(values)
	default:
		res, ws, err := s.optimizer.Optimize(ctx, tickers, optimization.Options{Fallback: req.Fallback})
		warnings.Merge(ws)
		if err != nil {
			return Plan{}, warnings, err
		}
		for _, w := range res.Weights {
			targets = append(targets, Target{Ticker: w.Ticker, Weight: w.Weight})
		}
	}

	plan, err := PlanLots(req.Capital, targets, prices)
	if err != nil {
		return Plan{}, warnings, err
	}
	s.log.Debug().
		Str("method", string(req.Method)).
		Str("capital", req.Capital.String()).
		Str("leftover", plan.Leftover.String()).
		Msg("Purchase plan computed")
	return plan, warnings.Sorted(), nil
}

// Dividend allocates capital to the highest yielding of tickers.
func (s *Service) Dividend(ctx context.Context, capital decimal.Decimal, tickers []string, profile RiskProfile) (Plan, domain.Warnings, error) {
	results := s.data.GetMany(ctx, tickers)

	var warnings domain.Warnings
	candidates := make([]Candidate, 0, len(tickers))
	for _, res := range results {
		warnings.Merge(res.Warnings)
		if res.Empty() {
			continue
		}
		candidates = append(candidates, Candidate{
			Ticker:        res.Ticker,
			DividendYield: res.Entry.Data.Fundamentals.DividendYield,
			Price:         res.Entry.Data.Prices.LastClose(),
		})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Ticker < candidates[j].Ticker })

	plan, err := DividendPlan(capital, candidates, profile)
	if err != nil {
		return Plan{}, warnings, err
	}
	return plan, warnings.Sorted(), nil
}

func (s *Service) prices(ctx context.Context, tickers []string) (map[string]float64, domain.Warnings) {
	var warnings domain.Warnings
	prices := make(map[string]float64, len(tickers))
	for ticker, res := range s.data.GetMany(ctx, tickers) {
		warnings.Merge(res.Warnings)
		if res.Empty() {
			continue
		}
		if last := res.Entry.Data.Prices.LastClose(); last != nil {
			prices[ticker] = *last
		}
	}
	return prices, warnings
}
