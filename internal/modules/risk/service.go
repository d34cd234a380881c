package risk

import (
	"context"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/marketdata"
	"github.com/rs/zerolog"
)

// DefaultBenchmark is the reference index used for beta.
const DefaultBenchmark = "^JKSE"

// StressDisclaimer accompanies every stress table.
const StressDisclaimer = "Stress scenarios apply fixed illustrative multipliers to current value; they are not a statistical risk estimate."

// MarketData is the subset of marketdata.Cache used here.
type MarketData interface {
	GetMany(ctx context.Context, tickers []string) map[string]marketdata.Result
}

// Report is the portfolio risk summary.
type Report struct {
	Benchmark        string                   `json:"benchmark"`
	PortfolioValue   float64                  `json:"portfolio_value"`
	Beta             domain.Optional[float64] `json:"beta"`
	BetaObservations int                      `json:"beta_observations"`
	VaR              []VaREstimate            `json:"var"`
	Observations     int                      `json:"observations"`
	From             *time.Time               `json:"from,omitempty"`
	To               *time.Time               `json:"to,omitempty"`
	Stress           []StressResult           `json:"stress"`
	StressNote       string                   `json:"stress_note"`
}

// Service computes risk reports from cached market data.
type Service struct {
	data      MarketData
	benchmark string
	log       zerolog.Logger
}

// NewService creates a risk service. An empty benchmark means DefaultBenchmark.
func NewService(data MarketData, benchmark string, log zerolog.Logger) *Service {
	if benchmark == "" {
		benchmark = DefaultBenchmark
	}
	if t, err := domain.NormalizeTicker(benchmark); err == nil {
		benchmark = t
	}
	return &Service{
		data:      data,
		benchmark: benchmark,
		log:       log.With().Str("component", "risk").Logger(),
	}
}

// Benchmark returns the configured benchmark ticker.
func (s *Service) Benchmark() string {
	return s.benchmark
}

// Report computes beta, VaR at each confidence and the stress table for
// positions. Positions without data are skipped with a warning; they do not
// fail the report.
func (s *Service) Report(ctx context.Context, positions []domain.Position, confidences []float64) (Report, domain.Warnings, error) {
	if len(confidences) == 0 {
		confidences = DefaultConfidences
	}

	tickers := make([]string, 0, len(positions)+1)
	for _, p := range positions {
		tickers = append(tickers, p.Ticker)
	}
	tickers = append(tickers, s.benchmark)

	results := s.data.GetMany(ctx, tickers)

	var warnings domain.Warnings
	lots := make(map[string]int64, len(positions))
	returns := make(map[string]DatedReturns, len(positions))
	value := 0.0
	for _, p := range positions {
		res, ok := results[p.Ticker]
		if !ok {
			continue
		}
		warnings.Merge(res.Warnings)
		if res.Empty() {
			continue
		}
		prices := res.Entry.Data.Prices
		if last := prices.LastClose(); last != nil {
			value += float64(p.Shares()) * *last
		}
		lots[p.Ticker] = p.Lots
		returns[p.Ticker] = SeriesReturns(prices)
	}

	portfolio := PortfolioReturns(lots, returns)
	report := Report{
		Benchmark:      s.benchmark,
		PortfolioValue: value,
		Observations:   len(portfolio),
		Stress:         StressTest(value, DefaultScenarios),
		StressNote:     StressDisclaimer,
	}
	if days := portfolio.Days(); len(days) > 0 {
		report.From = parseDay(days[0])
		report.To = parseDay(days[len(days)-1])
	}

	var err error
	report.VaR, err = EstimateVaR(portfolio.Values(), value, confidences)
	if err != nil {
		return Report{}, warnings, err
	}

	bench, ok := results[s.benchmark]
	switch {
	case !ok || bench.Empty():
		if ok {
			warnings.Merge(bench.Warnings)
		}
		report.Beta = domain.None[float64]("benchmark data unavailable")
	default:
		warnings.Merge(bench.Warnings)
		xs, ys, _ := Overlap(portfolio, SeriesReturns(bench.Entry.Data.Prices))
		report.BetaObservations = len(xs)
		report.Beta = Beta(xs, ys)
	}

	s.log.Debug().
		Int("positions", len(lots)).
		Int("observations", report.Observations).
		Bool("beta_available", report.Beta.Ok()).
		Msg("Risk report computed")

	return report, warnings.Sorted(), nil
}
