package events

import (
	"context"
	"errors"
	"io"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Handler processes the raw value of a consumed message.
type Handler func(ctx context.Context, value []byte)

// Consumer reads jobs from a single topic as part of a consumer group and
// hands each message to a Handler.
type Consumer struct {
	reader *kafka.Reader
	logger *zap.Logger
}

// NewConsumer creates a Consumer joining groupID on the given topic.
func NewConsumer(brokers []string, topic, groupID string, logger *zap.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: reader, logger: logger}
}

// Run fetches messages until ctx is cancelled or the reader is closed. Each
// message is committed after handle returns, so handle must not return before
// the job has been fully processed or handed to a pool that owns it.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			c.logger.Error("failed to fetch message",
				zap.String("topic", c.reader.Config().Topic),
				zap.Error(err),
			)
			return err
		}

		handle(ctx, msg.Value)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit message",
				zap.String("topic", c.reader.Config().Topic),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}
	}
}

// Close shuts the underlying reader down, unblocking Run.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
