package crm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL: srv.URL,
		Token:   "pat-test",
		Timeout: 2 * time.Second,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestListOwnersFollowsPaging(t *testing.T) {
	var calls int
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "Bearer pat-test", r.Header.Get("Authorization"))
		assert.Equal(t, "/crm/v3/owners/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("after") == "" {
			_, _ = w.Write([]byte(`{"results":[{"id":"1","email":"one@x.com"}],"paging":{"next":{"after":"cursor-2"}}}`))
			return
		}
		assert.Equal(t, "cursor-2", r.URL.Query().Get("after"))
		_, _ = w.Write([]byte(`{"results":[{"id":"2","email":"two@x.com"}]}`))
	})

	owners, err := c.ListOwners(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, owners, 2)
	assert.Equal(t, Owner{ID: "2", Email: "two@x.com"}, owners[1])
}

func TestUpsertContact(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/crm/v3/objects/contacts", r.URL.Path)
		assert.Equal(t, "email", r.URL.Query().Get("idProperty"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body upsertRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a@x.com", body.Properties["email"])

		_, _ = w.Write([]byte(`{"id":"501","properties":{"email":"a@x.com","firstname":null},"createdAt":"2026-01-02T03:04:05.678Z","updatedAt":"2026-01-02T03:04:05.678Z","archived":false}`))
	})

	contact, err := c.UpsertContact(context.Background(), map[string]string{"email": "a@x.com"})
	require.NoError(t, err)
	assert.Equal(t, "501", contact.ID)
	assert.Equal(t, "a@x.com", contact.Properties["email"])
	assert.Equal(t, 2026, contact.CreatedAt.Year())
}

func TestUpsertContactAPIError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":"error","message":"Authentication credentials not found"}`))
	})

	_, err := c.UpsertContact(context.Background(), map[string]string{"email": "a@x.com"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "Authentication credentials")
}

func TestUpsertContactMalformedResponse(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})
	_, err := c.UpsertContact(context.Background(), map[string]string{"email": "a@x.com"})
	require.Error(t, err)

	c = testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	_, err = c.UpsertContact(context.Background(), map[string]string{"email": "a@x.com"})
	require.Error(t, err)
}

func TestMissingTokenSkipsCall(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := c.ListOwners(context.Background())
	require.ErrorIs(t, err, ErrMissingToken)
	_, err = c.UpsertContact(context.Background(), map[string]string{"email": "a@x.com"})
	require.ErrorIs(t, err, ErrMissingToken)
	assert.False(t, called)
}

func TestCallTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Token: "pat-test", Timeout: 50 * time.Millisecond},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	start := time.Now()
	_, err := c.UpsertContact(context.Background(), map[string]string{"email": "a@x.com"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
