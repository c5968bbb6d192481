// Package idempotency suppresses repeated deliveries of the same webhook
// event within a fixed retention window.
//
// The guard is best-effort: the in-memory implementation forgets everything
// on restart, and the Redis implementation only shares state between
// instances pointed at the same Redis.
package idempotency

import (
	"context"
	"sync"
	"time"
)

// DefaultRetention is how long an accepted event id suppresses repeats.
const DefaultRetention = time.Hour

// Guard records event ids. MarkIfNew is an atomic check-and-insert: it
// returns true exactly once per id per retention window. An empty id is
// always new and never recorded.
type Guard interface {
	MarkIfNew(ctx context.Context, eventID string) (bool, error)
}

// MemoryGuard keeps ids in process memory. Each id expires retention after
// it was inserted; expiry never slides.
type MemoryGuard struct {
	retention time.Duration
	now       func() time.Time

	mu      sync.Mutex
	expires map[string]time.Time
}

type MemoryOption func(*MemoryGuard)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(g *MemoryGuard) { g.now = now }
}

func NewMemoryGuard(retention time.Duration, opts ...MemoryOption) *MemoryGuard {
	if retention <= 0 {
		retention = DefaultRetention
	}
	g := &MemoryGuard{
		retention: retention,
		now:       time.Now,
		expires:   map[string]time.Time{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *MemoryGuard) MarkIfNew(_ context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return true, nil
	}
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	if exp, ok := g.expires[eventID]; ok && now.Before(exp) {
		return false, nil
	}
	g.expires[eventID] = now.Add(g.retention)
	return true, nil
}

// Len returns the number of ids currently held, expired or not.
func (g *MemoryGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.expires)
}

// Sweep drops expired ids and returns how many were removed.
func (g *MemoryGuard) Sweep() int {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for id, exp := range g.expires {
		if !now.Before(exp) {
			delete(g.expires, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired ids every interval until ctx is done.
func (g *MemoryGuard) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Sweep()
		}
	}
}
