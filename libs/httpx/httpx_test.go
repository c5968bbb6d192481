package httpx

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(okHandler(), mark("a"), mark("b"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestWithRequestID(t *testing.T) {
	var seen string
	h := WithRequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rw.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "req-123", seen)
}

func TestWithBodyLimit(t *testing.T) {
	var readErr error
	h := WithBodyLimit(4)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("too long")))
	require.Error(t, readErr)
}

func TestWithRecover(t *testing.T) {
	h := WithRecover(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rw.Code)
}

func TestAccessLogCapturesStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := WithAccessLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/hotmart", nil))
	assert.Contains(t, buf.String(), `"status":401`)
	assert.Contains(t, buf.String(), `"path":"/hotmart"`)
}

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := rl.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := rl.Allow(ctx, "10.0.0.1")
	assert.False(t, ok)

	ok, _ = rl.Allow(ctx, "10.0.0.2")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = rl.Allow(ctx, "10.0.0.1")
	assert.True(t, ok)
	assert.Len(t, rl.visitors, 1)
}

func TestWithRateLimit(t *testing.T) {
	h := WithRateLimit(NewRateLimiter(1, time.Minute), discardLogger(), true)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/hotmart", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	assert.Equal(t, http.StatusOK, rw.Code)

	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	assert.Equal(t, http.StatusTooManyRequests, rw.Code)
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func TestWithRateLimitFailureModes(t *testing.T) {
	open := WithRateLimit(failingLimiter{}, discardLogger(), true)(okHandler())
	rw := httptest.NewRecorder()
	open.ServeHTTP(rw, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusOK, rw.Code)

	closed := WithRateLimit(failingLimiter{}, discardLogger(), false)(okHandler())
	rw = httptest.NewRecorder()
	closed.ServeHTTP(rw, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rw.Code)
}

func TestRedisRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	rl := NewRedisRateLimiter(rdb, 2, time.Minute, "test")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := rl.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := rl.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(2 * time.Minute)
	ok, err = rl.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)
}
