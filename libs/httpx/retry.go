package httpx

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"time"
)

// Doer executes HTTP requests. *http.Client and *RetryClient satisfy it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RetryClient retries transient failures (network errors, 429, 5xx) with
// exponential backoff and full jitter. Callers bound the total time through
// the request context.
type RetryClient struct {
	client     Doer
	logger     *slog.Logger
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func NewRetryClient(client Doer, logger *slog.Logger, cfg RetryConfig) *RetryClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 200 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 5 * time.Second
	}
	return &RetryClient{
		client:     client,
		logger:     logger,
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.BaseDelay,
		maxDelay:   cfg.MaxDelay,
	}
}

// Do returns the last response as-is when retries run out so the caller can
// read the error body.
func (rc *RetryClient) Do(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= rc.maxRetries; attempt++ {
		if err := req.Context().Err(); err != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, err
		}

		if attempt > 0 {
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("httpx: reset request body: %w", err)
				}
				req.Body = body
			}

			delay := rc.delay(attempt)
			rc.logger.Warn("http retry",
				"attempt", attempt,
				"max_retries", rc.maxRetries,
				"method", req.Method,
				"host", req.URL.Host,
				"path", req.URL.Path,
				"wait_ms", delay.Milliseconds(),
				"err", lastErr,
			)

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-req.Context().Done():
				timer.Stop()
				if lastErr != nil {
					return nil, lastErr
				}
				return nil, req.Context().Err()
			}
		}

		resp, err := rc.client.Do(req)
		if err != nil {
			lastErr = err
			if req.Context().Err() != nil {
				return nil, err
			}
			continue
		}

		if !retryableStatus(resp.StatusCode) || attempt == rc.maxRetries {
			return resp, nil
		}

		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		lastErr = fmt.Errorf("httpx: retryable status %d", resp.StatusCode)
	}

	return nil, lastErr
}

// delay is random(0, min(maxDelay, baseDelay*2^(attempt-1))) with a small floor.
func (rc *RetryClient) delay(attempt int) time.Duration {
	exp := float64(rc.baseDelay) * math.Pow(2, float64(attempt-1))
	if exp > float64(rc.maxDelay) {
		exp = float64(rc.maxDelay)
	}
	d := time.Duration(rand.Float64() * exp)
	if floor := rc.baseDelay / 10; d < floor {
		d = floor
	}
	return d
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
