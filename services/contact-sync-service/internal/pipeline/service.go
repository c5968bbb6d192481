// Package pipeline runs one purchase webhook through extraction, duplicate
// suppression and the CRM upsert.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/purchasesync/libs/runtime"
	"github.com/md-rashed-zaman/purchasesync/services/contact-sync-service/internal/contacts"
	"github.com/md-rashed-zaman/purchasesync/services/contact-sync-service/internal/crm"
	"github.com/md-rashed-zaman/purchasesync/services/contact-sync-service/internal/events"
	"github.com/md-rashed-zaman/purchasesync/services/contact-sync-service/internal/idempotency"
	"github.com/md-rashed-zaman/purchasesync/services/contact-sync-service/internal/metrics"
	"github.com/md-rashed-zaman/purchasesync/services/contact-sync-service/internal/payload"
)

// Outcome is what the sender is told. Every outcome maps to HTTP 200; a
// failed sync is acknowledged as "received" so the sender does not retry,
// and the error stays on the Result for logs and metrics.
type Outcome string

const (
	OutcomeSynced    Outcome = "ok"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeNoEmail   Outcome = "no-email"
	OutcomeFailed    Outcome = "received"
)

type Result struct {
	Outcome Outcome
	Event   payload.Event
	Contact crm.Contact
	Err     error
}

type ContactUpserter interface {
	Upsert(ctx context.Context, email, product string, status payload.Status) (crm.Contact, error)
}

type Service struct {
	guard     idempotency.Guard
	contacts  ContactUpserter
	publisher events.Publisher
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

func NewService(guard idempotency.Guard, contacts ContactUpserter, publisher events.Publisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &Service{
		guard:     guard,
		contacts:  contacts,
		publisher: publisher,
		logger:    logger,
		tracer:    otel.Tracer("github.com/md-rashed-zaman/purchasesync/contact-sync"),
		now:       time.Now,
	}
}

// Process handles one authenticated webhook payload.
func (s *Service) Process(ctx context.Context, body payload.RawPayload) Result {
	ctx, span := s.tracer.Start(ctx, "contact_sync.process")
	defer span.End()

	evt := payload.Extract(body)
	res := Result{Event: evt}
	span.SetAttributes(
		attribute.String("webhook.event_id", evt.EventID),
		attribute.String("webhook.status", string(evt.Status)),
	)
	log := s.logger.With("event_id", evt.EventID, "status", evt.Status, "email", runtime.MaskEmail(evt.Email))

	if evt.Email == "" {
		res.Outcome = OutcomeNoEmail
		log.Warn("webhook without buyer email ignored")
		return s.finish(span, res)
	}

	isNew, err := s.guard.MarkIfNew(ctx, evt.EventID)
	if err != nil {
		// Fail open: a flaky guard must not drop purchases.
		metrics.IdempotencyErrors.Inc()
		log.Warn("idempotency guard unavailable, processing anyway", "err", err)
		isNew = true
	}
	if !isNew {
		res.Outcome = OutcomeDuplicate
		log.Info("duplicate webhook event ignored")
		return s.finish(span, res)
	}

	contact, err := s.contacts.Upsert(ctx, evt.Email, evt.Product, evt.Status)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Err = err
		log.Error("contact upsert failed", "err", err)
		return s.finish(span, res)
	}
	res.Contact = contact
	res.Outcome = OutcomeSynced
	metrics.WebhookStatuses.WithLabelValues(evt.Status.MetricLabel()).Inc()
	log.Info("contact synced", "contact_id", contact.ID, "product", evt.Product)

	if err := s.publisher.Publish(ctx, events.ContactSynced{
		SourceEventID: evt.EventID,
		ContactID:     contact.ID,
		Email:         evt.Email,
		Status:        string(evt.Status),
		Product:       evt.Product,
		OwnerID:       ownerID(contact),
		OccurredAt:    s.now().UTC(),
	}); err != nil {
		metrics.PublishErrors.Inc()
		log.Error("contact synced event publish failed", "err", err, "contact_id", contact.ID)
	}
	return s.finish(span, res)
}

func (s *Service) finish(span trace.Span, res Result) Result {
	span.SetAttributes(attribute.String("webhook.outcome", string(res.Outcome)))
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, "contact sync failed")
	}
	return res
}

func ownerID(c crm.Contact) string {
	if v, ok := c.Properties[contacts.PropOwnerID].(string); ok {
		return v
	}
	return ""
}
