package marketdata

import (
	"context"
	"sync"

	"github.com/aristath/folio/internal/domain"
)

// Store persists cache entries. Get returns nil, nil on a miss and an
// error wrapping domain.ErrMalformedState for an unreadable entry.
type Store interface {
	Get(ctx context.Context, ticker string) (*domain.CacheEntry, error)
	Put(ctx context.Context, entry domain.CacheEntry) error
	Delete(ctx context.Context, ticker string) error
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]domain.CacheEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]domain.CacheEntry)}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, ticker string) (*domain.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[ticker]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

// Put implements Store.
func (s *MemoryStore) Put(_ context.Context, entry domain.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.Ticker] = entry
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, ticker string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, ticker)
	return nil
}
