// Package crm talks to the HubSpot CRM v3 API: the owner directory and
// contact create-or-update by email.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"

	"github.com/md-rashed-zaman/purchasesync/libs/httpx"
	"github.com/md-rashed-zaman/purchasesync/services/contact-sync-service/internal/metrics"
)

const (
	DefaultBaseURL = "https://api.hubapi.com"
	defaultTimeout = 10 * time.Second
	ownersPageSize = 100
	maxOwnerPages  = 50
	maxErrorBody   = 2048
)

type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration // per call, retries included
	MaxRetries int
	// Transport is the innermost round tripper; nil means http.DefaultTransport.
	Transport http.RoundTripper
}

type Client struct {
	baseURL string
	timeout time.Duration
	hasAuth bool
	http    httpx.Doer
	logger  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	inner := cfg.Transport
	if inner == nil {
		inner = http.DefaultTransport
	}
	token := strings.TrimSpace(cfg.Token)

	authed := &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   otelhttp.NewTransport(inner),
		},
		Timeout: cfg.Timeout,
	}

	return &Client{
		baseURL: base,
		timeout: cfg.Timeout,
		hasAuth: token != "",
		http:    httpx.NewRetryClient(authed, logger, httpx.RetryConfig{MaxRetries: cfg.MaxRetries}),
		logger:  logger,
	}
}

// ListOwners returns every owner in the directory, following pagination.
func (c *Client) ListOwners(ctx context.Context) ([]Owner, error) {
	var owners []Owner
	err := c.observe(ctx, "list_owners", func(ctx context.Context) error {
		after := ""
		for page := 0; page < maxOwnerPages; page++ {
			q := url.Values{}
			q.Set("limit", fmt.Sprint(ownersPageSize))
			if after != "" {
				q.Set("after", after)
			}
			var out ownersPage
			if err := c.do(ctx, "list_owners", http.MethodGet, "/crm/v3/owners/?"+q.Encode(), nil, &out); err != nil {
				return err
			}
			owners = append(owners, out.Results...)
			if out.Paging == nil || out.Paging.Next == nil || out.Paging.Next.After == "" {
				return nil
			}
			after = out.Paging.Next.After
		}
		c.logger.Warn("crm owner listing truncated", "pages", maxOwnerPages)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return owners, nil
}

// UpsertContact creates the contact identified by properties["email"] or
// updates it when it already exists.
func (c *Client) UpsertContact(ctx context.Context, properties map[string]string) (Contact, error) {
	var out Contact
	err := c.observe(ctx, "upsert_contact", func(ctx context.Context) error {
		return c.do(ctx, "upsert_contact", http.MethodPost, "/crm/v3/objects/contacts?idProperty=email",
			upsertRequest{Properties: properties}, &out)
	})
	if err != nil {
		return Contact{}, err
	}
	if out.ID == "" {
		return Contact{}, fmt.Errorf("crm upsert_contact: response without contact id")
	}
	return out, nil
}

func (c *Client) observe(ctx context.Context, op string, fn func(context.Context) error) error {
	if !c.hasAuth {
		metrics.CRMRequests.WithLabelValues(op, "unconfigured").Inc()
		return ErrMissingToken
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	metrics.CRMDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.CRMRequests.WithLabelValues(op, result).Inc()
	return err
}

func (c *Client) do(ctx context.Context, op, method, path string, body any, out any) error {
	var reader io.Reader
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("crm %s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("crm %s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(raw)), nil
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("crm %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("crm %s: decode response: %w", op, err)
	}
	return nil
}
