package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/config"
	"github.com/segmentio/kafka-go"
)

const contentTypeJSON = "application/json"

// Event is the unit of data published to Kafka. Key is used for partition
// hashing and Value is JSON-serialised.
type Event struct {
	Key   string
	Value any
}

// Publisher is the subset of Producer used by components that emit events,
// so they can be exercised without a broker.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	PublishBatch(ctx context.Context, events []Event) error
}

// Producer publishes JSON-encoded events to a Kafka topic. Events with the
// same key land on the same partition, which keeps a document's results in
// order.
type Producer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewProducer creates a Producer for the given topic. Batching is left to the
// caller, so the writer flushes as soon as a write call returns.
func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 100
	}
	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			BatchSize:              batch,
			BatchTimeout:           5 * time.Millisecond,
			MaxAttempts:            3,
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		logger: slog.Default().With("component", "kafka-producer", "topic", topic),
	}
}

// Publish writes a single event synchronously.
func (p *Producer) Publish(ctx context.Context, event Event) error {
	return p.PublishBatch(ctx, []Event{event})
}

// PublishBatch encodes every event before writing any, so a value that fails
// to marshal leaves the topic untouched.
func (p *Producer) PublishBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	messages, err := encode(events)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		p.logger.Error("failed to publish batch",
			"count", len(messages),
			"error", err,
		)
		return fmt.Errorf("publishing %d events to %s: %w", len(messages), p.writer.Topic, err)
	}
	p.logger.Debug("batch published", "count", len(messages))
	return nil
}

func encode(events []Event) ([]kafka.Message, error) {
	messages := make([]kafka.Message, len(events))
	for i, event := range events {
		value, err := json.Marshal(event.Value)
		if err != nil {
			return nil, fmt.Errorf("marshaling event %q: %w", event.Key, err)
		}
		messages[i] = kafka.Message{
			Key:     []byte(event.Key),
			Value:   value,
			Headers: []kafka.Header{{Key: "content-type", Value: []byte(contentTypeJSON)}},
		}
	}
	return messages, nil
}

// Close flushes pending writes and closes the underlying Kafka writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
