// Package kafka provides Kafka producer and consumer clients backed by
// segmentio/kafka-go. The producer serialises events as JSON, while the
// consumer decodes them via a pluggable MessageHandler callback.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/resilience"
	"github.com/segmentio/kafka-go"
)

// MessageHandler is a callback invoked for each Kafka message.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// reader is the part of *kafka.Reader the consume loop depends on.
type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads a topic as a member of a consumer group. A message's offset
// is committed once its handler succeeds or has exhausted its attempts; a
// shutdown mid-retry leaves it uncommitted for redelivery.
type Consumer struct {
	reader     reader
	handler    MessageHandler
	retry      resilience.RetryConfig
	fetchPause time.Duration
	logger     *slog.Logger
}

// NewConsumer creates a Consumer for the given topic and handler. A new
// consumer group starts from the oldest retained message so no score request
// published before the first deployment is skipped.
func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
		StartOffset: kafka.FirstOffset,
	})
	c := newConsumer(r, handler, cfg.HandlerAttempts)
	c.logger = c.logger.With("topic", topic, "group", cfg.ConsumerGroup)
	return c
}

func newConsumer(r reader, handler MessageHandler, attempts int) *Consumer {
	if attempts <= 0 {
		attempts = 3
	}
	return &Consumer{
		reader:  r,
		handler: handler,
		retry: resilience.RetryConfig{
			MaxAttempts:  attempts,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     5 * time.Second,
		},
		fetchPause: time.Second,
		logger:     slog.Default().With("component", "kafka-consumer"),
	}
}

// Start runs the consume loop until ctx is cancelled, then closes the reader.
func (c *Consumer) Start(ctx context.Context) error {
	if c.handler == nil {
		return errors.New("kafka consumer started without a handler")
	}
	defer c.reader.Close()

	c.logger.Info("consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		switch {
		case ctx.Err() != nil:
			c.logger.Info("consumer stopping", "reason", ctx.Err())
			return nil
		case errors.Is(err, io.EOF):
			return fmt.Errorf("kafka reader closed: %w", err)
		case err != nil:
			c.logger.Error("failed to fetch message", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(c.fetchPause):
			}
			continue
		}
		c.dispatch(ctx, msg)
	}
}

func (c *Consumer) dispatch(ctx context.Context, msg kafka.Message) {
	log := c.logger.With("partition", msg.Partition, "offset", msg.Offset)
	log.Debug("message received", "key", string(msg.Key), "value_size", len(msg.Value))

	err := resilience.Retry(ctx, "handle message", c.retry, func(ctx context.Context) error {
		return c.handler(ctx, msg.Key, msg.Value)
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Error("dropping message", "key", string(msg.Key), "error", err)
	}
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		log.Error("failed to commit message", "error", err)
	}
}

// Close closes the underlying Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeJSON is a generic helper that unmarshals a Kafka message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
