// Package events provides the Kafka transport for queue jobs. Each delivery
// queue maps to its own topic, and jobs travel as JSON envelopes keyed by
// tenant so that a tenant's jobs stay ordered within a partition.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher writes JSON-encoded jobs to a single Kafka topic.
type Publisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewPublisher creates a Publisher for the given brokers and topic.
func NewPublisher(brokers []string, topic string, logger *zap.Logger) *Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
	return &Publisher{writer: writer, logger: logger}
}

// Publish marshals payload and writes it to the topic under key. Messages
// sharing a key land on the same partition.
func (p *Publisher) Publish(ctx context.Context, key string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("events: marshal payload for topic %s: %w", p.writer.Topic, err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: raw,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("failed to publish message",
			zap.String("topic", p.writer.Topic),
			zap.String("key", key),
			zap.Error(err),
		)
		return fmt.Errorf("events: publish to topic %s: %w", p.writer.Topic, err)
	}

	p.logger.Debug("published message",
		zap.String("topic", p.writer.Topic),
		zap.String("key", key),
		zap.Int("bytes", len(raw)),
	)
	return nil
}

// Close flushes buffered messages and releases the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
