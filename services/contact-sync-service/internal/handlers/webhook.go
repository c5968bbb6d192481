package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/purchasesync/libs/httpx"
	"github.com/md-rashed-zaman/purchasesync/services/contact-sync-service/internal/metrics"
	"github.com/md-rashed-zaman/purchasesync/services/contact-sync-service/internal/payload"
	"github.com/md-rashed-zaman/purchasesync/services/contact-sync-service/internal/pipeline"
	"github.com/md-rashed-zaman/purchasesync/services/contact-sync-service/internal/webhookauth"
)

const (
	OnlineMessage       = "Hotmart → HubSpot webhook is online"
	unauthorizedMessage = "Unauthorized"
	defaultBodyLimit    = 1 << 20
)

type Processor interface {
	Process(ctx context.Context, body payload.RawPayload) pipeline.Result
}

type Handler struct {
	auth      *webhookauth.Authenticator
	svc       Processor
	logger    *slog.Logger
	bodyLimit int64
}

type Config struct {
	BodyLimitBytes int64
}

func New(auth *webhookauth.Authenticator, svc Processor, logger *slog.Logger, cfg Config) *Handler {
	if cfg.BodyLimitBytes <= 0 {
		cfg.BodyLimitBytes = defaultBodyLimit
	}
	return &Handler{
		auth:      auth,
		svc:       svc,
		logger:    logger,
		bodyLimit: cfg.BodyLimitBytes,
	}
}

// Index answers the root path so uptime checks have something to hit.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeText(w, http.StatusOK, OnlineMessage)
}

// Webhook receives purchase events (no JWT auth; the shared secret is the auth).
// Anything past authentication is acknowledged with 200 so the sender does not
// retry; the body tells what happened.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeText(w, http.StatusOK, OnlineMessage)
		return
	}
	log := h.logger.With("request_id", httpx.RequestIDFromContext(r.Context()))

	body := h.readPayload(log, r)

	if err := h.auth.Authenticate(r, body); err != nil {
		metrics.WebhookOutcomes.WithLabelValues("unauthorized").Inc()
		log.Warn("webhook rejected", "err", err, "remote", r.RemoteAddr)
		writeText(w, http.StatusUnauthorized, unauthorizedMessage)
		return
	}

	res := h.svc.Process(r.Context(), body)
	metrics.WebhookOutcomes.WithLabelValues(string(res.Outcome)).Inc()
	if res.Outcome == pipeline.OutcomeFailed {
		log.Error("webhook acknowledged without sync", "event_id", res.Event.EventID, "err", res.Err)
	}
	writeText(w, http.StatusOK, string(res.Outcome))
}

// readPayload never fails the request: an unreadable or malformed body is
// logged and treated as empty so header and query credentials still apply.
// A form body keeps whatever pairs decoded cleanly.
func (h *Handler) readPayload(log *slog.Logger, r *http.Request) payload.RawPayload {
	raw, err := io.ReadAll(io.LimitReader(r.Body, h.bodyLimit+1))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Warn("webhook body over limit", "limit", tooLarge.Limit)
		} else {
			log.Warn("webhook body read failed", "err", err)
		}
		return payload.RawPayload{}
	}
	if int64(len(raw)) > h.bodyLimit {
		log.Warn("webhook body over limit", "limit", h.bodyLimit)
		return payload.RawPayload{}
	}
	body, err := payload.Decode(r.Header.Get("Content-Type"), raw)
	if err != nil {
		log.Warn("webhook body not decodable", "err", err, "content_type", r.Header.Get("Content-Type"))
	}
	return body
}

func writeText(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}
