package idempotency

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisGuard shares accepted ids across instances with SET NX PX, which is
// atomic on the server.
type RedisGuard struct {
	rdb       redis.Cmdable
	retention time.Duration
	prefix    string
}

func NewRedisGuard(rdb redis.Cmdable, retention time.Duration, prefix string) *RedisGuard {
	if retention <= 0 {
		retention = DefaultRetention
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "webhook:event"
	}
	return &RedisGuard{rdb: rdb, retention: retention, prefix: prefix}
}

func (g *RedisGuard) MarkIfNew(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return true, nil
	}
	return g.rdb.SetNX(ctx, g.prefix+":"+eventID, 1, g.retention).Result()
}
