// Package owners resolves the configured owner email to a CRM owner id.
package owners

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/md-rashed-zaman/purchasesync/services/contact-sync-service/internal/crm"
	"github.com/md-rashed-zaman/purchasesync/services/contact-sync-service/internal/metrics"
)

// DefaultTTL bounds how long a resolved owner id is reused.
const DefaultTTL = time.Hour

type Directory interface {
	ListOwners(ctx context.Context) ([]crm.Owner, error)
}

type cacheEntry struct {
	ownerID    string
	resolvedAt time.Time
}

// Resolver caches a single email -> owner id mapping for the process
// lifetime. Only successful matches are cached; a miss asks the directory
// again next time.
type Resolver struct {
	email  string
	dir    Directory
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	cache   atomic.Pointer[cacheEntry]
	refresh sync.Mutex
}

type Option func(*Resolver)

func WithTTL(ttl time.Duration) Option {
	return func(r *Resolver) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

func NewResolver(email string, dir Directory, logger *slog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		email:  strings.TrimSpace(email),
		dir:    dir,
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the owner id, or "" when no owner is configured, none
// matches, or the directory call fails. It never returns an error: owner
// assignment must not block a contact upsert.
func (r *Resolver) Resolve(ctx context.Context) string {
	if r.email == "" || r.dir == nil {
		return ""
	}
	if id, ok := r.cached(); ok {
		metrics.OwnerCache.WithLabelValues("hit").Inc()
		return id
	}

	r.refresh.Lock()
	defer r.refresh.Unlock()

	// Another request may have refreshed while we waited.
	if id, ok := r.cached(); ok {
		metrics.OwnerCache.WithLabelValues("hit").Inc()
		return id
	}
	metrics.OwnerCache.WithLabelValues("miss").Inc()

	list, err := r.dir.ListOwners(ctx)
	if err != nil {
		metrics.OwnerCache.WithLabelValues("error").Inc()
		r.logger.Error("owner directory lookup failed", "err", err)
		return ""
	}
	for _, o := range list {
		if o.ID != "" && strings.EqualFold(strings.TrimSpace(o.Email), r.email) {
			r.cache.Store(&cacheEntry{ownerID: o.ID, resolvedAt: r.now()})
			return o.ID
		}
	}
	metrics.OwnerCache.WithLabelValues("not_found").Inc()
	r.logger.Warn("configured owner email not found in directory", "owners", len(list))
	return ""
}

// cached reports the owner id while its age is within the TTL; an entry
// exactly TTL old is still fresh.
func (r *Resolver) cached() (string, bool) {
	e := r.cache.Load()
	if e == nil || e.ownerID == "" {
		return "", false
	}
	if r.now().Sub(e.resolvedAt) > r.ttl {
		return "", false
	}
	return e.ownerID, true
}
