package portfolio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/events"
	"github.com/aristath/folio/internal/modules/ledger"
	"github.com/aristath/folio/internal/modules/marketdata"
	"github.com/aristath/folio/internal/modules/optimization"
	"github.com/aristath/folio/internal/modules/projection"
	"github.com/aristath/folio/internal/modules/risk"
	"github.com/aristath/folio/internal/modules/technicals"
	"github.com/aristath/folio/internal/modules/valuation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// LedgerLoader loads a portfolio's positions.
type LedgerLoader interface {
	Load(ctx context.Context, portfolioID string) (*ledger.Ledger, domain.Warnings, error)
}

// MarketData is the subset of marketdata.Cache used here.
type MarketData interface {
	GetMany(ctx context.Context, tickers []string) map[string]marketdata.Result
}

// Technicals runs the indicator pipeline.
type Technicals interface {
	AnalyzeMany(ctx context.Context, tickers []string) ([]technicals.Report, domain.Warnings)
}

// Valuer computes fundamental valuation for one ticker.
type Valuer interface {
	Value(ctx context.Context, ticker string, forecast *float64) (valuation.Valuation, domain.Warnings, error)
}

// Optimizer computes target weights.
type Optimizer interface {
	Optimize(ctx context.Context, tickers []string, opts optimization.Options) (optimization.Result, domain.Warnings, error)
}

// RiskReporter computes beta, VaR and the stress table.
type RiskReporter interface {
	Report(ctx context.Context, positions []domain.Position, confidences []float64) (risk.Report, domain.Warnings, error)
}

// AnalyzeOptions tune one batch analysis.
type AnalyzeOptions struct {
	// Forecasts are optional external price forecasts keyed by ticker.
	Forecasts    map[string]float64
	RiskFreeRate *float64
	Fallback     optimization.Fallback
	Confidences  []float64
}

// Analysis is the output of one batch run over the ledger.
type Analysis struct {
	RunID        string                                `json:"run_id"`
	PortfolioID  string                                `json:"portfolio_id"`
	GeneratedAt  time.Time                             `json:"generated_at"`
	Summary      Summary                               `json:"summary"`
	Technicals   []technicals.Report                   `json:"technicals"`
	Valuations   []valuation.Valuation                 `json:"valuations"`
	Optimization domain.Optional[optimization.Result] `json:"optimization"`
	Risk         domain.Optional[risk.Report]          `json:"risk"`
	Warnings     domain.Warnings                       `json:"warnings"`
}

// Service is the engine facade over every analytics module.
type Service struct {
	ledger      LedgerLoader
	data        MarketData
	technicals  Technicals
	valuer      Valuer
	optimizer   Optimizer
	risk        RiskReporter
	events      events.Publisher
	concurrency int
	now         func() time.Time
	log         zerolog.Logger
}

// NewService creates the portfolio engine
func NewService(
	ledger LedgerLoader,
	data MarketData,
	technicals Technicals,
	valuer Valuer,
	optimizer Optimizer,
	risk RiskReporter,
	publisher events.Publisher,
	log zerolog.Logger,
) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		ledger:      ledger,
		data:        data,
		technicals:  technicals,
		valuer:      valuer,
		optimizer:   optimizer,
		risk:        risk,
		events:      publisher,
		concurrency: 4,
		now:         time.Now,
		log:         log.With().Str("component", "portfolio").Logger(),
	}
}

// Summary values the portfolio at current prices.
func (s *Service) Summary(ctx context.Context, portfolioID string) (Summary, domain.Warnings, error) {
	l, warnings, err := s.ledger.Load(ctx, orDefault(portfolioID))
	if err != nil {
		return Summary{}, warnings, fmt.Errorf("failed to load ledger: %w", err)
	}

	summary, ws := Summarize(l.Positions(), s.data.GetMany(ctx, l.Tickers()))
	warnings.Merge(ws)
	return summary, warnings.Sorted(), nil
}

// Baseline returns the current value and blended dividend yield used as the
// starting point of a growth projection.
func (s *Service) Baseline(ctx context.Context, portfolioID string) (projection.Baseline, domain.Warnings, error) {
	summary, warnings, err := s.Summary(ctx, portfolioID)
	if err != nil {
		return projection.Baseline{}, warnings, err
	}
	return projection.Baseline{
		Value:         summary.TotalValue.InexactFloat64(),
		DividendYield: summary.DividendYield,
	}, warnings, nil
}

// Analyze runs every analytics module over the ledger in one batch. A
// failure in one module or for one ticker is reported as a warning or an
// undefined section; it never aborts the other parts.
func (s *Service) Analyze(ctx context.Context, portfolioID string, opts AnalyzeOptions) (Analysis, domain.Warnings, error) {
	portfolioID = orDefault(portfolioID)
	l, warnings, err := s.ledger.Load(ctx, portfolioID)
	if err != nil {
		return Analysis{}, warnings, fmt.Errorf("failed to load ledger: %w", err)
	}

	positions := l.Positions()
	tickers := l.Tickers()
	analysis := Analysis{
		RunID:       uuid.NewString(),
		PortfolioID: portfolioID,
		GeneratedAt: s.now(),
	}

	// One fetch pass up front so every module below reads from the cache.
	results := s.data.GetMany(ctx, tickers)

	var mu sync.Mutex
	merge := func(ws domain.Warnings) {
		mu.Lock()
		warnings.Merge(ws)
		mu.Unlock()
	}

	var g errgroup.Group
	g.Go(func() error {
		summary, ws := Summarize(positions, results)
		analysis.Summary = summary
		merge(ws)
		return nil
	})
	g.Go(func() error {
		reports, ws := s.technicals.AnalyzeMany(ctx, tickers)
		analysis.Technicals = reports
		merge(ws)
		return nil
	})
	g.Go(func() error {
		analysis.Valuations = s.valuations(ctx, tickers, opts.Forecasts, merge)
		return nil
	})
	g.Go(func() error {
		res, ws, err := s.optimizer.Optimize(ctx, tickers, optimization.Options{
			RiskFreeRate: opts.RiskFreeRate,
			Fallback:     opts.Fallback,
		})
		merge(ws)
		if err != nil {
			analysis.Optimization = domain.None[optimization.Result](err.Error())
			return nil
		}
		analysis.Optimization = domain.Some(res)
		return nil
	})
	g.Go(func() error {
		report, ws, err := s.risk.Report(ctx, positions, opts.Confidences)
		merge(ws)
		if err != nil {
			analysis.Risk = domain.None[risk.Report](err.Error())
			return nil
		}
		analysis.Risk = domain.Some(report)
		return nil
	})
	_ = g.Wait()

	warnings = warnings.Sorted()
	analysis.Warnings = warnings

	s.events.Emit("portfolio", &events.AnalysisCompletedData{
		RunID:       analysis.RunID,
		PortfolioID: portfolioID,
		Tickers:     len(tickers),
		Warnings:    len(warnings),
	})
	s.log.Info().
		Str("run_id", analysis.RunID).
		Str("portfolio_id", portfolioID).
		Int("tickers", len(tickers)).
		Int("warnings", len(warnings)).
		Msg("Analysis completed")

	return analysis, warnings, nil
}

func (s *Service) valuations(ctx context.Context, tickers []string, forecasts map[string]float64, merge func(domain.Warnings)) []valuation.Valuation {
	out := make([]*valuation.Valuation, len(tickers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, t := range tickers {
		g.Go(func() error {
			var forecast *float64
			if f, ok := forecasts[t]; ok {
				forecast = &f
			}
			v, ws, err := s.valuer.Value(gctx, t, forecast)
			merge(ws)
			if err != nil {
				s.log.Debug().Err(err).Str("ticker", t).Msg("Skipping valuation")
				return nil
			}
			out[i] = &v
			return nil
		})
	}
	_ = g.Wait()

	vals := make([]valuation.Valuation, 0, len(out))
	for _, v := range out {
		if v != nil {
			vals = append(vals, *v)
		}
	}
	return vals
}

func orDefault(portfolioID string) string {
	if portfolioID == "" {
		return ledger.DefaultPortfolioID
	}
	return portfolioID
}
