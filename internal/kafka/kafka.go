// Package kafka publishes controller events to a Kafka topic.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/sweeney/greenhouse/internal/logic"
	"github.com/sweeney/greenhouse/internal/telemetry"
)

const writeTimeout = 5 * time.Second

// Config holds producer settings.
type Config struct {
	Brokers     []string
	Topic       string
	TopicSystem string
	// Key partitions messages; every event from one controller shares it so
	// ordering is kept.
	Key string
}

// messageWriter is the subset of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes events to Kafka.
type Publisher struct {
	events messageWriter
	system messageWriter
	key    []byte
}

// NewPublisher creates writers for the event and system topics.
func NewPublisher(cfg Config) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka: no topic configured")
	}
	if cfg.TopicSystem == "" {
		cfg.TopicSystem = cfg.Topic + ".system"
	}
	writer := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		}
	}
	return newPublisher(writer(cfg.Topic), writer(cfg.TopicSystem), cfg.Key), nil
}

func newPublisher(events, system messageWriter, key string) *Publisher {
	if key == "" {
		key = "greenhouse"
	}
	return &Publisher{events: events, system: system, key: []byte(key)}
}

// Publish writes one controller event.
func (p *Publisher) Publish(event logic.Event) error {
	payload, err := telemetry.FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return p.write(p.events, payload, event.Timestamp)
}

// PublishSystem writes one lifecycle event.
func (p *Publisher) PublishSystem(event telemetry.SystemEvent) error {
	payload, err := telemetry.FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.write(p.system, payload, event.Timestamp)
}

func (p *Publisher) write(w messageWriter, payload []byte, ts time.Time) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := w.WriteMessages(ctx, kafka.Message{Key: p.key, Value: payload, Time: ts}); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

// Close flushes and closes both writers.
func (p *Publisher) Close() error {
	return errors.Join(p.events.Close(), p.system.Close())
}
