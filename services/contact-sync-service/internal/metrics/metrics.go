package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Webhook outcomes: ok, duplicate, no-email, received (failed), unauthorized.
	WebhookOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_sync_webhook_outcomes_total",
			Help: "Webhook deliveries by outcome",
		},
		[]string{"outcome"},
	)

	WebhookStatuses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_sync_webhook_statuses_total",
			Help: "Accepted purchase events by canonical status",
		},
		[]string{"status"},
	)

	CRMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_sync_crm_requests_total",
			Help: "CRM API calls by operation and result",
		},
		[]string{"op", "result"},
	)

	CRMDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contact_sync_crm_request_duration_seconds",
			Help:    "CRM API call duration in seconds, retries included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	OwnerCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_sync_owner_cache_total",
			Help: "Owner resolution lookups by result (hit, miss, not_found, error)",
		},
		[]string{"result"},
	)

	IdempotencyErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "contact_sync_idempotency_errors_total",
			Help: "Idempotency guard failures (event processed anyway)",
		},
	)

	PublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "contact_sync_publish_errors_total",
			Help: "Failures publishing contact.synced events",
		},
	)
)
