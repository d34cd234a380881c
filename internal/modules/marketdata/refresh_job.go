package marketdata

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TickerSource lists the tickers a refresh job should warm.
type TickerSource func(ctx context.Context) ([]string, error)

// RefreshJob refetches every held ticker plus the benchmark so interactive
// requests hit a fresh cache.
type RefreshJob struct {
	cache     *Cache
	tickers   TickerSource
	benchmark string
	timeout   time.Duration
	log       zerolog.Logger
}

// NewRefreshJob creates a cache warmup job.
func NewRefreshJob(cache *Cache, tickers TickerSource, benchmark string, log zerolog.Logger) *RefreshJob {
	return &RefreshJob{
		cache:     cache,
		tickers:   tickers,
		benchmark: benchmark,
		timeout:   5 * time.Minute,
		log:       log.With().Str("job", "market_data_refresh").Logger(),
	}
}

// Run refreshes every ticker. Individual failures are logged, not returned.
func (j *RefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	tickers, err := j.tickers(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to list tickers")
		return err
	}
	if j.benchmark != "" {
		tickers = append(tickers, j.benchmark)
	}

	failed := 0
	for _, t := range tickers {
		if res := j.cache.Refresh(ctx, t); res.Source != SourceProvider {
			failed++
		}
	}

	j.log.Info().Int("tickers", len(tickers)).Int("failed", failed).Msg("Market data refresh completed")
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *RefreshJob) Name() string {
	return "market_data_refresh"
}
