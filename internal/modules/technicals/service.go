package technicals

import (
	"context"
	"sync"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/marketdata"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// MarketData is the subset of marketdata.Cache used here.
type MarketData interface {
	Get(ctx context.Context, ticker string) marketdata.Result
}

// Report is the indicator summary for one ticker.
type Report struct {
	Ticker    string       `json:"ticker"`
	Latest    Snapshot     `json:"latest"`
	Crossover Signal       `json:"crossover"`
	RSIZone   string       `json:"rsi_zone"`
	MACDTrend string       `json:"macd_trend"`
	Bars      int          `json:"bars"`
	Stale     bool         `json:"stale"`
	FetchedAt time.Time    `json:"fetched_at"`
	Set       IndicatorSet `json:"-"`
}

// BuildReport computes the report for a price series.
func BuildReport(ticker string, series domain.PriceSeries) Report {
	set := Compute(series)
	latest := set.Latest()
	return Report{
		Ticker:    ticker,
		Latest:    latest,
		Crossover: DetectCrossover(set.SMA50, set.SMA200),
		RSIZone:   RSIZone(latest.RSI14),
		MACDTrend: MACDTrend(latest.MACD, latest.MACDSignal),
		Bars:      set.Len(),
		Set:       set,
	}
}

// Service runs the indicator pipeline over cached market data.
type Service struct {
	data        MarketData
	concurrency int
	log         zerolog.Logger
}

// NewService creates a technicals service
func NewService(data MarketData, log zerolog.Logger) *Service {
	return &Service{
		data:        data,
		concurrency: 4,
		log:         log.With().Str("component", "technicals").Logger(),
	}
}

// Analyze computes the report for one ticker. It fails with
// domain.ErrDataUnavailable when no history exists.
func (s *Service) Analyze(ctx context.Context, ticker string) (Report, domain.Warnings, error) {
	res := s.data.Get(ctx, ticker)
	if res.Empty() {
		return Report{Ticker: res.Ticker}, res.Warnings, res.Err()
	}

	report := BuildReport(res.Ticker, res.Entry.Data.Prices)
	report.Stale = res.Stale()
	report.FetchedAt = res.Entry.FetchedAt
	return report, res.Warnings, nil
}

// AnalyzeMany computes reports in parallel. Tickers without data are
// skipped and reported as warnings; output keeps input order.
func (s *Service) AnalyzeMany(ctx context.Context, tickers []string) ([]Report, domain.Warnings) {
	reports := make([]*Report, len(tickers))
	var (
		mu       sync.Mutex
		warnings domain.Warnings
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, t := range tickers {
		g.Go(func() error {
			report, ws, err := s.Analyze(gctx, t)
			mu.Lock()
			warnings.Merge(ws)
			mu.Unlock()
			if err != nil {
				s.log.Debug().Err(err).Str("ticker", t).Msg("Skipping ticker without data")
				return nil
			}
			reports[i] = &report
			return nil
		})
	}
	_ = g.Wait()

	out := make([]Report, 0, len(reports))
	for _, r := range reports {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, warnings.Sorted()
}
