package worker

import (
	"context"
	"errors"
	"time"

	"github.com/formflux/formflux/internal/gateway"
	"github.com/formflux/formflux/internal/pipeline"
	"github.com/formflux/formflux/internal/transform"
)

// RetryPolicy controls queue-level re-execution of a failed job. Attempts are
// total, so MaxAttempts of 3 means two retries after the first failure.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Per-queue policies. Delivery queues retry longer than the event queue
// because event processing already escalates critical failures on its own.
var (
	EventRetryPolicy   = RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second}
	WebhookRetryPolicy = RetryPolicy{MaxAttempts: 5, BaseDelay: 5 * time.Second, MaxDelay: 2 * time.Minute}
	PushRetryPolicy    = RetryPolicy{MaxAttempts: 5, BaseDelay: 30 * time.Second, MaxDelay: 5 * time.Minute}
	DLQRetryPolicy     = RetryPolicy{MaxAttempts: 3, BaseDelay: 10 * time.Second, MaxDelay: time.Minute}
)

// Delay returns how long to wait before the given attempt. The first attempt
// runs immediately and each retry doubles the wait, capped at MaxDelay.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	d := p.BaseDelay << (attempt - 2)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Run executes fn under the policy, starting at the attempt the job carries.
// It stops early on success, on a fatal error, or when ctx is cancelled, and
// returns the last error on exhaustion.
func (p RetryPolicy) Run(ctx context.Context, startAttempt int, fn func(ctx context.Context, attempt int) error) error {
	if startAttempt < 1 {
		startAttempt = 1
	}

	var lastErr error
	for attempt := startAttempt; attempt <= p.MaxAttempts; attempt++ {
		if delay := p.Delay(attempt); delay > 0 && attempt > startAttempt {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if IsFatal(lastErr) || errors.Is(lastErr, context.Canceled) {
			return lastErr
		}
	}
	return lastErr
}

// IsFatal reports whether retrying the job cannot change the outcome.
// Validation failures and definitive connector rejections fall in this bucket.
func IsFatal(err error) bool {
	var pipelineErr *pipeline.ValidationError
	if errors.As(err, &pipelineErr) {
		return true
	}
	var transformErr *transform.ValidationError
	if errors.As(err, &transformErr) {
		return true
	}
	var gatewayErr *gateway.GatewayError
	if errors.As(err, &gatewayErr) && gatewayErr.StatusCode >= 400 && gatewayErr.StatusCode < 500 {
		return true
	}
	return false
}
