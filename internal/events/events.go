// Package events publishes price search events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/GTDGit/keyprice_api/internal/metrics"
)

// PublishTimeout bounds a single asynchronous publish.
const PublishTimeout = 5 * time.Second

// SearchEvent records one completed price search.
type SearchEvent struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Currency   string    `json:"currency"`
	Platform   string    `json:"platform"`
	Outcome    string    `json:"outcome"`
	Groups     int       `json:"groups"`
	FromCache  bool      `json:"fromCache"`
	ClientID   string    `json:"clientId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewSearchEvent stamps an event with a fresh id and the current time.
func NewSearchEvent(title, currency, platform, outcome string) SearchEvent {
	return SearchEvent{
		ID:         uuid.New().String(),
		Title:      title,
		Currency:   currency,
		Platform:   platform,
		Outcome:    outcome,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher delivers search events.
type Publisher interface {
	Publish(ctx context.Context, ev SearchEvent) error
	io.Closer
}

// NopPublisher discards events. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, SearchEvent) error { return nil }
func (NopPublisher) Close() error                                { return nil }

// kafkaMessageWriter abstracts kafka.Writer for testability.
type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher writes events as JSON keyed by the normalized title.
type KafkaPublisher struct {
	writer kafkaMessageWriter
	closer io.Closer
}

// NewKafkaPublisher creates a publisher for topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaPublisher{writer: w, closer: w}
}

// NewKafkaPublisherWith is only for tests to inject a fake writer.
func NewKafkaPublisherWith(w kafkaMessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

func (k *KafkaPublisher) Publish(ctx context.Context, ev SearchEvent) error {
	b, err := json.Marshal(&ev)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.Title),
		Value: b,
		Time:  ev.OccurredAt,
	})
}

func (k *KafkaPublisher) Close() error {
	if k.closer == nil {
		return nil
	}
	return k.closer.Close()
}

// PublishAsync publishes ev in the background. Failures are logged and counted only.
func PublishAsync(p Publisher, ev SearchEvent, m *metrics.Registry) <-chan error {
	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()
		err := p.Publish(ctx, ev)
		if err != nil {
			log.Warn().Err(err).Str("event_id", ev.ID).Str("title", ev.Title).Msg("Failed to publish search event")
		}
		m.ObserveEvent(err == nil)
		done <- err
		close(done)
	}()
	return done
}
