// Package marketdata provides the time-bounded cache in front of the market
// data provider.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/events"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Source tells where a Result came from.
type Source string

const (
	SourceCache    Source = "cache"
	SourceProvider Source = "provider"
	SourceStale    Source = "stale_cache"
	SourceNone     Source = "none"
)

// DefaultTTL is how long an entry is served without refetching.
const DefaultTTL = time.Hour

// Result is the outcome of a cache lookup. Entry is nil when no data exists;
// Reason then carries the provider failure.
type Result struct {
	Ticker   string
	Entry    *domain.CacheEntry
	Source   Source
	Reason   domain.ProviderReason
	Warnings domain.Warnings
}

// Empty reports whether the lookup produced no data.
func (r Result) Empty() bool {
	return r.Entry == nil
}

// Stale reports whether the data is past its TTL.
func (r Result) Stale() bool {
	return r.Source == SourceStale
}

// Err returns nil when data exists, else an error wrapping
// domain.ErrDataUnavailable with the reason.
func (r Result) Err() error {
	if r.Entry != nil {
		return nil
	}
	if r.Reason == "" {
		return fmt.Errorf("%s: %w", r.Ticker, domain.ErrDataUnavailable)
	}
	return fmt.Errorf("%s: %w (%s)", r.Ticker, domain.ErrDataUnavailable, r.Reason)
}

// Config tunes a Cache.
type Config struct {
	TTL         time.Duration
	WindowDays  int
	Concurrency int
}

// Cache serves market data from the store while fresh and refetches through
// the provider otherwise. Refreshes for one ticker are collapsed into a single
// in-flight call, so writes for a ticker never interleave.
type Cache struct {
	store    Store
	provider Provider
	cfg      Config
	events   events.Publisher
	flights  singleflight.Group
	now      func() time.Time
	log      zerolog.Logger

	mu sync.Mutex
	// invalidated maps a ticker to the generation of its pending
	// invalidation. Only a flight started at that generation may clear it.
	invalidated map[string]uint64
	generation  uint64
}

// NewCache creates a market data cache.
func NewCache(store Store, provider Provider, cfg Config, publisher events.Publisher, log zerolog.Logger) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 365
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Cache{
		store:       store,
		provider:    provider,
		cfg:         cfg,
		events:      publisher,
		now:         time.Now,
		log:         log.With().Str("component", "market_data_cache").Logger(),
		invalidated: make(map[string]uint64),
	}
}

// TTL returns the configured freshness window.
func (c *Cache) TTL() time.Duration {
	return c.cfg.TTL
}

// ProviderName names the underlying provider.
func (c *Cache) ProviderName() string {
	if c.provider == nil {
		return ""
	}
	return c.provider.Name()
}

// Get returns the cached entry for ticker while fresh, refetching otherwise.
func (c *Cache) Get(ctx context.Context, ticker string) Result {
	return c.get(ctx, ticker, false)
}

// Refresh refetches ticker regardless of freshness, with the same fallback
// rules as Get.
func (c *Cache) Refresh(ctx context.Context, ticker string) Result {
	return c.get(ctx, ticker, true)
}

// Invalidate forces the next Get for ticker to refetch. The stored entry is
// kept as a fallback.
func (c *Cache) Invalidate(ticker string) {
	normalized, err := domain.NormalizeTicker(ticker)
	if err != nil {
		return
	}
	c.mu.Lock()
	c.generation++
	c.invalidated[normalized] = c.generation
	c.mu.Unlock()
}

// GetMany looks up tickers concurrently. One ticker's failure never affects
// the others.
func (c *Cache) GetMany(ctx context.Context, tickers []string) map[string]Result {
	results := make([]Result, len(tickers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)
	for i, t := range tickers {
		g.Go(func() error {
			results[i] = c.Get(gctx, t)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]Result, len(tickers))
	for _, r := range results {
		out[r.Ticker] = r
	}
	return out
}

func (c *Cache) get(ctx context.Context, raw string, force bool) Result {
	ticker, err := domain.NormalizeTicker(raw)
	if err != nil {
		res := Result{Ticker: raw, Source: SourceNone, Reason: domain.ReasonNotFound}
		res.Warnings.Add(domain.NewWarning(domain.WarnDataUnavailable, raw, "invalid ticker: %v", err))
		return res
	}

	res := Result{Ticker: ticker}
	cached := c.load(ctx, ticker, &res.Warnings)

	if !force && cached != nil && !c.isInvalidated(ticker) && cached.IsFresh(c.now(), c.cfg.TTL) {
		res.Entry = cached
		res.Source = SourceCache
		return res
	}

	fresh, err := c.refresh(ctx, ticker, force)
	if err == nil {
		res.Entry = fresh
		res.Source = SourceProvider
		return res
	}

	reason := domain.ProviderReasonOf(err)
	if reason == "" {
		reason = ReasonFromContext(err)
	}
	res.Reason = reason

	if cached != nil {
		res.Entry = cached
		res.Source = SourceStale
		res.Warnings.Add(domain.NewWarning(domain.WarnStaleDataUsed, ticker,
			"provider failed (%s); using data fetched at %s", reason, cached.FetchedAt.UTC().Format(time.RFC3339)))
		c.log.Warn().
			Str("ticker", ticker).
			Str("reason", string(reason)).
			Time("fetched_at", cached.FetchedAt).
			Msg("Using stale market data")
		c.events.Emit("marketdata", &events.StaleDataUsedData{
			Ticker:    ticker,
			Reason:    string(reason),
			FetchedAt: cached.FetchedAt.UTC().Format(time.RFC3339),
		})
		return res
	}

	res.Source = SourceNone
	res.Warnings.Add(domain.NewWarning(domain.WarnDataUnavailable, ticker, "no cached data and provider failed (%s)", reason))
	c.log.Warn().Str("ticker", ticker).Str("reason", string(reason)).Msg("Market data unavailable")
	return res
}

// load reads the stored entry. Corrupt entries count as a miss.
func (c *Cache) load(ctx context.Context, ticker string, warnings *domain.Warnings) *domain.CacheEntry {
	entry, err := c.store.Get(ctx, ticker)
	if err == nil {
		return entry
	}
	if errors.Is(err, domain.ErrMalformedState) {
		warnings.Add(domain.NewWarning(domain.WarnMalformedPersistedState, ticker, "discarded corrupt cache entry"))
		c.log.Warn().Err(err).Str("ticker", ticker).Msg("Discarded corrupt cache entry")
		return nil
	}
	c.log.Error().Err(err).Str("ticker", ticker).Msg("Failed to read cache entry")
	return nil
}

// refresh fetches and stores ticker. Concurrent callers share one flight.
// The flight is detached from any single caller's cancellation; the provider
// timeout bounds it.
func (c *Cache) refresh(ctx context.Context, ticker string, force bool) (*domain.CacheEntry, error) {
	if c.provider == nil {
		return nil, domain.NewProviderError(ticker, domain.ReasonNetworkError, domain.ErrFeatureUnavailable)
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := c.flights.DoChan(ticker, func() (any, error) {
		now := c.now()
		pending := c.pendingInvalidation(ticker)

		// A flight that finished just before this one may already have
		// stored a fresh entry.
		if !force && !c.isInvalidated(ticker) {
			if e, err := c.store.Get(flightCtx, ticker); err == nil && e != nil && e.IsFresh(now, c.cfg.TTL) {
				return e, nil
			}
		}

		data, err := c.provider.Fetch(flightCtx, ticker, TrailingWindow(now, c.cfg.WindowDays))
		if err != nil {
			return nil, AsProviderError(ticker, err)
		}
		if len(data.Prices) == 0 {
			return nil, domain.NewProviderError(ticker, domain.ReasonNotFound, errors.New("empty price history"))
		}

		entry := domain.CacheEntry{Ticker: ticker, Data: data, FetchedAt: now}
		if err := c.store.Put(flightCtx, entry); err != nil {
			c.log.Error().Err(err).Str("ticker", ticker).Msg("Failed to store market data")
		}

		c.mu.Lock()
		if c.invalidated[ticker] == pending {
			delete(c.invalidated, ticker)
		}
		c.mu.Unlock()

		c.log.Debug().Str("ticker", ticker).Int("bars", len(data.Prices)).Msg("Market data refreshed")
		c.events.Emit("marketdata", &events.MarketDataRefreshedData{Ticker: ticker, Bars: len(data.Prices)})
		return &entry, nil
	})

	select {
	case <-ctx.Done():
		return nil, domain.NewProviderError(ticker, ReasonFromContext(ctx.Err()), ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*domain.CacheEntry), nil
	}
}

func (c *Cache) isInvalidated(ticker string) bool {
	return c.pendingInvalidation(ticker) != 0
}

// pendingInvalidation returns the generation of ticker's pending
// invalidation, or 0 when there is none.
func (c *Cache) pendingInvalidation(ticker string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invalidated[ticker]
}
