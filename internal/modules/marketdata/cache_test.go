package marketdata

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.EventData
}

func (p *recordingPublisher) Emit(_ string, data events.EventData) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, data)
}

func (p *recordingPublisher) count(t events.EventType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.EventType() == t {
			n++
		}
	}
	return n
}

type corruptStore struct {
	*MemoryStore
	corrupt bool
}

func (s *corruptStore) Get(ctx context.Context, ticker string) (*domain.CacheEntry, error) {
	if s.corrupt {
		s.corrupt = false
		return nil, domain.ErrMalformedState
	}
	return s.MemoryStore.Get(ctx, ticker)
}

func bars(closes ...float64) domain.PriceSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make(domain.PriceSeries, len(closes))
	for i, c := range closes {
		out[i] = domain.DailyBar{Date: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	return out
}

type fakeProvider struct {
	calls atomic.Int32
	err   error
	data  domain.MarketData
	gate  chan struct{}
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Fetch(ctx context.Context, ticker string, _ Window) (domain.MarketData, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return domain.MarketData{}, f.err
	}
	return f.data, nil
}

func newTestCache(store Store, p Provider, pub events.Publisher, now *time.Time) *Cache {
	c := NewCache(store, p, Config{TTL: time.Hour}, pub, zerolog.Nop())
	c.now = func() time.Time { return *now }
	return c
}

func TestCache_FreshEntryIsServedWithoutProvider(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), domain.CacheEntry{
		Ticker: "BBCA.JK", Data: domain.MarketData{Prices: bars(1, 2, 3)}, FetchedAt: now.Add(-30 * time.Minute),
	}))
	p := &fakeProvider{data: domain.MarketData{Prices: bars(9)}}
	c := newTestCache(store, p, nil, &now)

	res := c.Get(context.Background(), "bbca.jk")

	require.False(t, res.Empty())
	assert.Equal(t, SourceCache, res.Source)
	assert.Len(t, res.Entry.Data.Prices, 3)
	assert.Equal(t, int32(0), p.calls.Load())
}

func TestCache_ExpiredEntryIsReplacedWholesale(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), domain.CacheEntry{
		Ticker: "BBCA.JK",
		Data: domain.MarketData{
			Prices:       bars(1, 2, 3),
			Fundamentals: domain.Fundamentals{Sector: "Financials", TrailingPE: domain.Float(20)},
		},
		FetchedAt: now.Add(-2 * time.Hour),
	}))
	p := &fakeProvider{data: domain.MarketData{Prices: bars(9, 10)}}
	pub := &recordingPublisher{}
	c := newTestCache(store, p, pub, &now)

	res := c.Get(context.Background(), "BBCA.JK")

	require.False(t, res.Empty())
	assert.Equal(t, SourceProvider, res.Source)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, []float64{9, 10}, res.Entry.Data.Prices.Closes())
	assert.Nil(t, res.Entry.Data.Fundamentals.TrailingPE, "fundamentals are not merged")

	stored, err := store.Get(context.Background(), "BBCA.JK")
	require.NoError(t, err)
	assert.Equal(t, now, stored.FetchedAt)
	assert.Equal(t, 1, pub.count(events.MarketDataRefreshed))
}

func TestCache_ProviderFailureFallsBackToStale(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	fetched := now.Add(-72 * time.Hour)
	require.NoError(t, store.Put(context.Background(), domain.CacheEntry{
		Ticker: "TLKM.JK", Data: domain.MarketData{Prices: bars(5, 6)}, FetchedAt: fetched,
	}))
	p := &fakeProvider{err: domain.NewProviderError("TLKM.JK", domain.ReasonRateLimited, errors.New("429"))}
	pub := &recordingPublisher{}
	c := newTestCache(store, p, pub, &now)

	res := c.Get(context.Background(), "TLKM.JK")

	require.False(t, res.Empty())
	assert.True(t, res.Stale())
	assert.Equal(t, domain.ReasonRateLimited, res.Reason)
	assert.True(t, res.Warnings.Has(domain.WarnStaleDataUsed, "TLKM.JK"))
	assert.NoError(t, res.Err())
	assert.Equal(t, 1, pub.count(events.StaleDataUsed))
}

func TestCache_ProviderFailureWithoutEntryIsEmpty(t *testing.T) {
	now := time.Now()
	for _, reason := range []domain.ProviderReason{
		domain.ReasonNotFound, domain.ReasonRateLimited, domain.ReasonNetworkError, domain.ReasonTimeout,
	} {
		t.Run(string(reason), func(t *testing.T) {
			p := &fakeProvider{err: domain.NewProviderError("XXXX", reason, nil)}
			c := newTestCache(NewMemoryStore(), p, nil, &now)

			res := c.Get(context.Background(), "XXXX")

			assert.True(t, res.Empty())
			assert.Equal(t, reason, res.Reason)
			assert.ErrorIs(t, res.Err(), domain.ErrDataUnavailable)
			assert.Contains(t, res.Err().Error(), string(reason))
			assert.True(t, res.Warnings.Has(domain.WarnDataUnavailable, "XXXX"))
		})
	}
}

func TestCache_EmptyHistoryIsTreatedAsFailure(t *testing.T) {
	now := time.Now()
	p := &fakeProvider{data: domain.MarketData{}}
	c := newTestCache(NewMemoryStore(), p, nil, &now)

	res := c.Get(context.Background(), "XXXX")

	assert.True(t, res.Empty())
	assert.Equal(t, domain.ReasonNotFound, res.Reason)
}

func TestCache_CorruptEntryIsAMiss(t *testing.T) {
	now := time.Now()
	store := &corruptStore{MemoryStore: NewMemoryStore(), corrupt: true}
	p := &fakeProvider{data: domain.MarketData{Prices: bars(1)}}
	c := newTestCache(store, p, nil, &now)

	res := c.Get(context.Background(), "AAA")

	require.False(t, res.Empty())
	assert.Equal(t, SourceProvider, res.Source)
	assert.True(t, res.Warnings.Has(domain.WarnMalformedPersistedState, "AAA"))
}

func TestCache_ConcurrentRefreshesShareOneFlight(t *testing.T) {
	now := time.Now()
	p := &fakeProvider{data: domain.MarketData{Prices: bars(1, 2)}, gate: make(chan struct{})}
	c := newTestCache(NewMemoryStore(), p, nil, &now)

	var wg sync.WaitGroup
	results := make([]Result, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = c.Get(context.Background(), "AAA")
		}()
	}

	require.Eventually(t, func() bool { return p.calls.Load() == 1 }, time.Second, time.Millisecond)
	close(p.gate)
	wg.Wait()

	assert.Equal(t, int32(1), p.calls.Load())
	for _, r := range results {
		assert.False(t, r.Empty())
	}
}

func TestCache_InvalidateForcesRefetch(t *testing.T) {
	now := time.Now()
	p := &fakeProvider{data: domain.MarketData{Prices: bars(1)}}
	c := newTestCache(NewMemoryStore(), p, nil, &now)
	ctx := context.Background()

	c.Get(ctx, "AAA")
	c.Get(ctx, "AAA")
	require.Equal(t, int32(1), p.calls.Load())

	c.Invalidate("aaa")
	res := c.Get(ctx, "AAA")
	assert.Equal(t, SourceProvider, res.Source)
	assert.Equal(t, int32(2), p.calls.Load())

	c.Get(ctx, "AAA")
	assert.Equal(t, int32(2), p.calls.Load())
}

func TestCache_InvalidateDuringFlightStillRefetches(t *testing.T) {
	now := time.Now()
	p := &fakeProvider{data: domain.MarketData{Prices: bars(1)}, gate: make(chan struct{})}
	c := newTestCache(NewMemoryStore(), p, nil, &now)
	ctx := context.Background()

	done := make(chan Result)
	go func() { done <- c.Get(ctx, "AAA") }()
	require.Eventually(t, func() bool { return p.calls.Load() == 1 }, time.Second, time.Millisecond)

	c.Invalidate("AAA")
	close(p.gate)
	require.Equal(t, SourceProvider, (<-done).Source)

	res := c.Get(ctx, "AAA")
	assert.Equal(t, SourceProvider, res.Source)
	assert.Equal(t, int32(2), p.calls.Load())

	res = c.Get(ctx, "AAA")
	assert.Equal(t, SourceCache, res.Source)
	assert.Equal(t, int32(2), p.calls.Load())
}

func TestCache_GetManyIsolatesFailures(t *testing.T) {
	now := time.Now()
	p := ProviderFunc{Fn: func(_ context.Context, ticker string, _ Window) (domain.MarketData, error) {
		if ticker == "BAD" {
			return domain.MarketData{}, domain.NewProviderError(ticker, domain.ReasonNotFound, nil)
		}
		return domain.MarketData{Prices: bars(1, 2)}, nil
	}}
	c := newTestCache(NewMemoryStore(), p, nil, &now)

	results := c.GetMany(context.Background(), []string{"AAA", "BAD", "CCC"})

	require.Len(t, results, 3)
	assert.False(t, results["AAA"].Empty())
	assert.True(t, results["BAD"].Empty())
	assert.False(t, results["CCC"].Empty())
}

func TestCache_InvalidTicker(t *testing.T) {
	now := time.Now()
	p := &fakeProvider{}
	c := newTestCache(NewMemoryStore(), p, nil, &now)

	res := c.Get(context.Background(), "bad ticker!")

	assert.True(t, res.Empty())
	assert.Equal(t, int32(0), p.calls.Load())
}
