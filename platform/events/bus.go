package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/formflux/formflux/internal/models"
	"github.com/formflux/formflux/pkg/config"
)

// Bus fans jobs out to the per-queue Kafka topics. It satisfies the enqueue
// interfaces of the packages that produce jobs.
type Bus struct {
	events   *Publisher
	webhooks *Publisher
	dlq      *Publisher
	push     *Publisher
}

// NewBus creates publishers for every delivery queue topic.
func NewBus(brokers []string, cfg config.Queues, logger *zap.Logger) *Bus {
	return &Bus{
		events:   NewPublisher(brokers, cfg.EventTopic, logger),
		webhooks: NewPublisher(brokers, cfg.WebhookTopic, logger),
		dlq:      NewPublisher(brokers, cfg.DLQTopic, logger),
		push:     NewPublisher(brokers, cfg.PushTopic, logger),
	}
}

// EnqueueEvent publishes an ingested event for trigger processing.
func (b *Bus) EnqueueEvent(ctx context.Context, job models.EventJob) error {
	return b.events.Publish(ctx, job.Event.TenantID, job)
}

// EnqueueWebhook publishes a webhook delivery job.
func (b *Bus) EnqueueWebhook(ctx context.Context, job models.WebhookJob) error {
	return b.webhooks.Publish(ctx, job.TenantID, job)
}

// EnqueueDLQ publishes a dead-letter replay job.
func (b *Bus) EnqueueDLQ(ctx context.Context, job models.DLQJob) error {
	return b.dlq.Publish(ctx, job.EntryID, job)
}

// EnqueuePush publishes a push delivery job.
func (b *Bus) EnqueuePush(ctx context.Context, job models.PushJob) error {
	return b.push.Publish(ctx, job.TenantID, job)
}

// Close flushes and closes every underlying publisher. The first error wins
// but all publishers are closed regardless.
func (b *Bus) Close() error {
	var first error
	for _, p := range []*Publisher{b.events, b.webhooks, b.dlq, b.push} {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
