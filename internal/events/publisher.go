// Package events publishes paper lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Publisher delivers event envelopes to the event bus.
type Publisher interface {
	Publish(ctx context.Context, env *Envelope) error
	Close() error
}

// Config holds configuration for the Kafka publisher.
type Config struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string
	// Topic is the Kafka topic for paper events.
	Topic string
	// WriteTimeout bounds a single write.
	WriteTimeout time.Duration
}

// messageWriter is the subset of *kafka.Writer used by KafkaPublisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes envelopes as JSON messages keyed by paper ID.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger zerolog.Logger
}

var _ Publisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates a publisher backed by a kafka.Writer.
func NewKafkaPublisher(cfg Config, logger zerolog.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           cfg.WriteTimeout,
		AllowAutoTopicCreation: true,
	}

	return newKafkaPublisher(writer, cfg.Topic, logger), nil
}

func newKafkaPublisher(w messageWriter, topic string, logger zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: w,
		topic:  topic,
		logger: logger.With().Str("component", "event_publisher").Str("topic", topic).Logger(),
	}
}

// Publish writes one envelope.
func (p *KafkaPublisher) Publish(ctx context.Context, env *Envelope) error {
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(env.PaperID),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
			{Key: "source", Value: []byte(env.Metadata.Source)},
		},
	}
	if env.Metadata.CorrelationID != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "correlation_id", Value: []byte(env.Metadata.CorrelationID)})
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s event: %w", env.EventType, err)
	}

	p.logger.Debug().
		Str("event_type", env.EventType).
		Str("paper_id", env.PaperID).
		Msg("event published")
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	p.logger.Info().Msg("closing event publisher")
	return p.writer.Close()
}

// NopPublisher discards events. Used when Kafka is disabled.
type NopPublisher struct{}

var _ Publisher = NopPublisher{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, *Envelope) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }
