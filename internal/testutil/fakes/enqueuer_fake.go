package fakes

import (
	"context"
	"sync"

	"github.com/formflux/formflux/internal/models"
)

// FakeEnqueuer records published jobs instead of writing to Kafka.
type FakeEnqueuer struct {
	mu          sync.Mutex
	EventJobs   []models.EventJob
	WebhookJobs []models.WebhookJob
	DLQJobs     []models.DLQJob
	PushJobs    []models.PushJob

	Err error
}

func NewFakeEnqueuer() *FakeEnqueuer {
	return &FakeEnqueuer{}
}

func (f *FakeEnqueuer) EnqueueEvent(_ context.Context, job models.EventJob) error {
	if f.Err != nil {
		return f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.EventJobs = append(f.EventJobs, job)
	return nil
}

func (f *FakeEnqueuer) EnqueueWebhook(_ context.Context, job models.WebhookJob) error {
	if f.Err != nil {
		return f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WebhookJobs = append(f.WebhookJobs, job)
	return nil
}

func (f *FakeEnqueuer) EnqueueDLQ(_ context.Context, job models.DLQJob) error {
	if f.Err != nil {
		return f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DLQJobs = append(f.DLQJobs, job)
	return nil
}

func (f *FakeEnqueuer) EnqueuePush(_ context.Context, job models.PushJob) error {
	if f.Err != nil {
		return f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PushJobs = append(f.PushJobs, job)
	return nil
}
