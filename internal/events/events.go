// Package events publishes domain notifications to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/veille/backend/internal/logger"
)

const (
	TypeSummaryCreated  = "summary.created"
	TypeArticleCompiled = "article.compiled"
	TypeIngestCompleted = "ingest.completed"
)

// Event is the envelope written to the topic. Subject is the id of the record it describes.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Subject    string    `json:"subject,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data,omitempty"`
}

// New stamps a fresh event.
func New(eventType, subject string, data any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Subject:    subject,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop drops every event. It is used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const batchTimeout = 10 * time.Millisecond

// Kafka writes JSON-encoded events keyed by subject.
type Kafka struct {
	w   messageWriter
	log *slog.Logger
}

// NewKafka returns a Kafka publisher, or Nop when brokers is empty.
func NewKafka(brokers []string, topic string, log *slog.Logger) Publisher {
	if len(brokers) == 0 || topic == "" {
		return Nop{}
	}
	// events go out one at a time and each Publish waits for delivery
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      brokers,
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		MaxAttempts:  3,
		BatchTimeout: batchTimeout,
	})
	return newKafka(w, log)
}

func newKafka(w messageWriter, log *slog.Logger) *Kafka {
	if log == nil {
		log = logger.Discard()
	}
	return &Kafka{w: w, log: log}
}

func (k *Kafka) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(ev.Subject),
		Value: payload,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	}
	if err := k.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write event %s: %w", ev.Type, err)
	}

	k.log.Debug("event published", slog.String("type", ev.Type), slog.String("subject", ev.Subject))
	return nil
}

func (k *Kafka) Close() error {
	return k.w.Close()
}
