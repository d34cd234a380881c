// Package clientdata provides persistent caching for market data provider
// responses. Entries are stored as msgpack blobs stamped with their fetch
// time; freshness is decided by the caller's TTL.
package clientdata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/vmihailenco/msgpack/v5"
)

// payloadVersion guards against decoding blobs written by an older layout.
const payloadVersion = 1

type payload struct {
	Version int               `msgpack:"v"`
	Data    domain.MarketData `msgpack:"data"`
}

// Repository provides cache operations over the market_data table.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new client data repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Put stores entry, replacing any previous entry for the ticker.
func (r *Repository) Put(ctx context.Context, entry domain.CacheEntry) error {
	blob, err := msgpack.Marshal(payload{Version: payloadVersion, Data: entry.Data})
	if err != nil {
		return fmt.Errorf("failed to encode market data for %s: %w", entry.Ticker, err)
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO market_data (ticker, payload, fetched_at) VALUES (?, ?, ?)",
		entry.Ticker, blob, entry.FetchedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to store market data for %s: %w", entry.Ticker, err)
	}
	return nil
}

// Get returns the entry regardless of age. Returns nil, nil when absent.
// A blob that cannot be decoded is deleted and reported with an error
// wrapping domain.ErrMalformedState so callers can treat it as a miss.
func (r *Repository) Get(ctx context.Context, ticker string) (*domain.CacheEntry, error) {
	var (
		blob      []byte
		fetchedAt int64
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT payload, fetched_at FROM market_data WHERE ticker = ?", ticker,
	).Scan(&blob, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read market data for %s: %w", ticker, err)
	}

	var p payload
	if err := msgpack.Unmarshal(blob, &p); err != nil || p.Version != payloadVersion {
		if delErr := r.Delete(ctx, ticker); delErr != nil {
			return nil, delErr
		}
		if err == nil {
			err = fmt.Errorf("unsupported payload version %d", p.Version)
		}
		return nil, fmt.Errorf("%w: cache entry for %s: %v", domain.ErrMalformedState, ticker, err)
	}

	return &domain.CacheEntry{
		Ticker:    ticker,
		Data:      p.Data,
		FetchedAt: time.UnixMilli(fetchedAt),
	}, nil
}

// Delete removes a specific entry.
func (r *Repository) Delete(ctx context.Context, ticker string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM market_data WHERE ticker = ?", ticker); err != nil {
		return fmt.Errorf("failed to delete market data for %s: %w", ticker, err)
	}
	return nil
}

// DeleteOlderThan removes entries fetched before cutoff.
// Returns the number of rows deleted.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM market_data WHERE fetched_at < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old market data: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// Count returns the number of cached tickers.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM market_data").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count market data: %w", err)
	}
	return n, nil
}
