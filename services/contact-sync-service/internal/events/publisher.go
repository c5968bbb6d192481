// Package events announces synced contacts to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/md-rashed-zaman/purchasesync/libs/kafkax"
)

const (
	TypeContactSynced = "contact.synced"
	DefaultTopic      = "crm.contact.synced"
)

// ContactSynced is published after every successful contact upsert.
type ContactSynced struct {
	EventID       string    `json:"event_id"`
	SourceEventID string    `json:"source_event_id,omitempty"`
	ContactID     string    `json:"contact_id"`
	Email         string    `json:"email"`
	Status        string    `json:"status"`
	Product       string    `json:"product,omitempty"`
	OwnerID       string    `json:"owner_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, evt ContactSynced) error
}

// MessageWriter is the subset of *kafka.Writer we use.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer  MessageWriter
	topic   string
	timeout time.Duration
	logger  *slog.Logger
}

type KafkaConfig struct {
	Brokers string
	Topic   string
	Timeout time.Duration
}

// NewKafkaPublisher returns a NoopPublisher when no brokers are configured.
func NewKafkaPublisher(cfg KafkaConfig, logger *slog.Logger) Publisher {
	brokers := kafkax.SplitBrokers(cfg.Brokers)
	if len(brokers) == 0 {
		logger.Info("contact event publishing disabled (no kafka brokers configured)")
		return NoopPublisher{}
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(w, cfg.Topic, cfg.Timeout, logger)
}

func newKafkaPublisher(w MessageWriter, topic string, timeout time.Duration, logger *slog.Logger) *KafkaPublisher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &KafkaPublisher{writer: w, topic: topic, timeout: timeout, logger: logger}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt ContactSynced) error {
	if evt.EventID == "" {
		evt.EventID = uuid.NewString()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	value, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	meta := kafkax.EventMeta{EventID: evt.EventID, EventType: TypeContactSynced}
	msg := kafka.Message{
		Key:     []byte(evt.Email),
		Value:   value,
		Headers: kafkax.InjectTraceHeaders(ctx, meta.Headers()),
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.writer.WriteMessages(ctx, msg)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, ContactSynced) error { return nil }
