package ledger

import "sync"

// Locks hands out one mutex per portfolio so load-mutate-save cycles on the
// same ledger never interleave.
type Locks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocks creates an empty lock table.
func NewLocks() *Locks {
	return &Locks{locks: make(map[string]*sync.Mutex)}
}

// Lock blocks until portfolioID is free and returns the unlock function.
func (l *Locks) Lock(portfolioID string) func() {
	l.mu.Lock()
	m, ok := l.locks[portfolioID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[portfolioID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
