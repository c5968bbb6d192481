package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/purchasesync/services/contact-sync-service/internal/payload"
)

func TestExtractCommand(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "payload.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"id":"evt1","data":{"buyer":{"email":"a@x.com"},"purchase":{"status":"REFUND"}}}`), 0o600))

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"extract", file})
	require.NoError(t, cmd.Execute())

	var got map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "a@x.com", got["email"])
	assert.Equal(t, "refunded", got["status"])
	assert.Equal(t, "evt1", got["event_id"])
}

func TestExtractCommandStdin(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("email=b%40x.com&status=chargeback"))
	cmd.SetArgs([]string{"extract"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), `"chargeback"`)
}

func TestSendCommandJSON(t *testing.T) {
	var got payload.Event
	var secret string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body, err := payload.Decode(r.Header.Get("Content-Type"), raw)
		assert.NoError(t, err)
		got = payload.Extract(body)
		secret = r.Header.Get("X-Hotmart-Secret")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"send", "--base-url", srv.URL, "--email", "a@x.com", "--secret", "s3cr3t", "--id", "evt9", "--event", "PURCHASE_CHARGEBACK"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "status=200 body=ok\n", out.String())
	assert.Equal(t, payload.Event{Email: "a@x.com", Status: payload.StatusChargeback, Product: "Sample Course", EventID: "evt9"}, got)
	assert.Equal(t, "s3cr3t", secret)
}

func TestBuildRequestForm(t *testing.T) {
	req, err := buildRequest(sendOptions{baseURL: "http://svc/", email: "a@x.com", product: "Ebook", event: "PURCHASE_APPROVED", eventID: "HP1", secret: "tok", form: true})
	require.NoError(t, err)
	assert.Equal(t, "http://svc/hotmart", req.URL.String())

	raw, _ := io.ReadAll(req.Body)
	body, err := payload.Decode(req.Header.Get("Content-Type"), raw)
	require.NoError(t, err)
	assert.Equal(t, payload.Event{Email: "a@x.com", Status: payload.StatusApproved, Product: "Ebook", EventID: "HP1"}, payload.Extract(body))
	assert.Equal(t, "tok", body.Lookup(payload.P("hottok")))
}

func TestSendRequiresEmail(t *testing.T) {
	t.Setenv("BUYER_EMAIL", "")
	cmd := newRootCmd()
	cmd.SetArgs([]string{"send"})
	require.Error(t, cmd.Execute())
}
