package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/formflux/formflux/internal/gateway"
	"github.com/formflux/formflux/internal/logging"
	"github.com/formflux/formflux/internal/models"
	"github.com/formflux/formflux/internal/storage"
	"github.com/formflux/formflux/pkg/clock"
)

// EventHandler consumes event jobs and runs them through trigger matching.
// Exhausted jobs are dropped because the pipeline has already dead-lettered
// any failure that matters.
type EventHandler struct {
	processor EventProcessor
	policy    RetryPolicy
	logger    logging.Logger
}

// NewEventHandler creates the handler for the events queue.
func NewEventHandler(processor EventProcessor, policy RetryPolicy, logger logging.Logger) *EventHandler {
	return &EventHandler{processor: processor, policy: policy, logger: logger}
}

// Handle decodes and processes one event job under the retry policy.
func (h *EventHandler) Handle(ctx context.Context, raw []byte) {
	var job models.EventJob
	if err := json.Unmarshal(raw, &job); err != nil {
		h.logger.Error("dropping malformed event job", zap.Error(err))
		return
	}

	err := h.policy.Run(ctx, job.Attempt, func(ctx context.Context, attempt int) error {
		job.Attempt = attempt
		return h.processor.ProcessEvent(ctx, job)
	})
	if err != nil {
		h.logger.Error("event job exhausted retries",
			zap.String("job_id", job.JobID),
			zap.String("event_id", job.Event.ID),
			zap.Int("attempt", job.Attempt),
			zap.Error(err),
		)
	}
}

// WebhookHandler consumes standalone webhook delivery jobs. Every final
// outcome leaves a delivery record for the audit trail.
type WebhookHandler struct {
	deliverer Deliverer
	records   DeliveryRecorder
	policy    RetryPolicy
	logger    logging.Logger
	clock     clock.Clock
}

// NewWebhookHandler creates the handler for the webhooks queue.
func NewWebhookHandler(deliverer Deliverer, records DeliveryRecorder, policy RetryPolicy, logger logging.Logger, clk clock.Clock) *WebhookHandler {
	return &WebhookHandler{deliverer: deliverer, records: records, policy: policy, logger: logger, clock: clk}
}

// Handle delivers one webhook job under the retry policy.
func (h *WebhookHandler) Handle(ctx context.Context, raw []byte) {
	var job models.WebhookJob
	if err := json.Unmarshal(raw, &job); err != nil {
		h.logger.Error("dropping malformed webhook job", zap.Error(err))
		return
	}

	lastAttempt := job.Attempt
	err := h.policy.Run(ctx, job.Attempt, func(ctx context.Context, attempt int) error {
		lastAttempt = attempt
		resp, err := h.deliverer.Send(ctx, job.ConnectorID, job.TenantID, gateway.Request{
			URL:     job.URL,
			Headers: job.Headers,
			Body:    job.Payload,
		})
		if err != nil {
			return err
		}
		h.record(ctx, &job, attempt, "success", &resp.StatusCode, resp.ElapsedMs, nil)
		return nil
	})
	if err != nil {
		statusCode, elapsedMs := deliveryFailureDetails(err)
		msg := err.Error()
		h.record(ctx, &job, lastAttempt, "failed", statusCode, elapsedMs, &msg)
		h.logger.Error("webhook job failed",
			zap.String("job_id", job.JobID),
			zap.String("connector_id", job.ConnectorID),
			zap.Int("attempt", lastAttempt),
			zap.Error(err),
		)
	}
}

func (h *WebhookHandler) record(ctx context.Context, job *models.WebhookJob, attempt int, status string, statusCode *int, elapsedMs int64, errMsg *string) {
	rec := &models.DeliveryRecord{
		ID:             uuid.NewString(),
		JobID:          job.JobID,
		Queue:          models.QueueWebhooks,
		TenantID:       job.TenantID,
		Endpoint:       job.URL,
		Attempt:        attempt,
		Status:         status,
		HTTPStatusCode: statusCode,
		ResponseTimeMs: elapsedMs,
		ErrorMessage:   errMsg,
		CreatedAt:      h.clock.Now().UTC(),
	}
	if err := h.records.CreateDeliveryRecord(ctx, rec); err != nil {
		h.logger.Error("failed to persist delivery record",
			zap.String("job_id", job.JobID),
			zap.Error(err),
		)
	}
}

// PushHandler consumes outbound push jobs targeting ERP/CRM systems.
type PushHandler struct {
	deliverer Deliverer
	records   DeliveryRecorder
	policy    RetryPolicy
	logger    logging.Logger
	clock     clock.Clock
}

// NewPushHandler creates the handler for the push queue.
func NewPushHandler(deliverer Deliverer, records DeliveryRecorder, policy RetryPolicy, logger logging.Logger, clk clock.Clock) *PushHandler {
	return &PushHandler{deliverer: deliverer, records: records, policy: policy, logger: logger, clock: clk}
}

// Handle delivers one push job under the retry policy.
func (h *PushHandler) Handle(ctx context.Context, raw []byte) {
	var job models.PushJob
	if err := json.Unmarshal(raw, &job); err != nil {
		h.logger.Error("dropping malformed push job", zap.Error(err))
		return
	}

	lastAttempt := job.Attempt
	err := h.policy.Run(ctx, job.Attempt, func(ctx context.Context, attempt int) error {
		lastAttempt = attempt
		resp, err := h.deliverer.Send(ctx, job.ConnectorID, job.TenantID, gateway.Request{
			URL:    job.URL,
			Method: job.Method,
			Body:   job.Payload,
		})
		if err != nil {
			return err
		}
		h.record(ctx, &job, attempt, "success", &resp.StatusCode, resp.ElapsedMs, nil)
		return nil
	})
	if err != nil {
		statusCode, elapsedMs := deliveryFailureDetails(err)
		msg := err.Error()
		h.record(ctx, &job, lastAttempt, "failed", statusCode, elapsedMs, &msg)
		h.logger.Error("push job failed",
			zap.String("job_id", job.JobID),
			zap.String("connector_id", job.ConnectorID),
			zap.Int("attempt", lastAttempt),
			zap.Error(err),
		)
	}
}

func (h *PushHandler) record(ctx context.Context, job *models.PushJob, attempt int, status string, statusCode *int, elapsedMs int64, errMsg *string) {
	rec := &models.DeliveryRecord{
		ID:             uuid.NewString(),
		JobID:          job.JobID,
		Queue:          models.QueuePush,
		TenantID:       job.TenantID,
		Endpoint:       job.URL,
		Attempt:        attempt,
		Status:         status,
		HTTPStatusCode: statusCode,
		ResponseTimeMs: elapsedMs,
		ErrorMessage:   errMsg,
		CreatedAt:      h.clock.Now().UTC(),
	}
	if err := h.records.CreateDeliveryRecord(ctx, rec); err != nil {
		h.logger.Error("failed to persist delivery record",
			zap.String("job_id", job.JobID),
			zap.Error(err),
		)
	}
}

// DLQHandler consumes replay jobs scheduled by the sweeper or the API.
type DLQHandler struct {
	replayer Replayer
	policy   RetryPolicy
	logger   logging.Logger
}

// NewDLQHandler creates the handler for the dead-letter queue.
func NewDLQHandler(replayer Replayer, policy RetryPolicy, logger logging.Logger) *DLQHandler {
	return &DLQHandler{replayer: replayer, policy: policy, logger: logger}
}

// Handle replays one dead-letter entry under the retry policy. An entry that
// was deleted or resolved since the job was enqueued is skipped.
func (h *DLQHandler) Handle(ctx context.Context, raw []byte) {
	var job models.DLQJob
	if err := json.Unmarshal(raw, &job); err != nil {
		h.logger.Error("dropping malformed dead-letter job", zap.Error(err))
		return
	}

	err := h.policy.Run(ctx, job.Attempt, func(ctx context.Context, attempt int) error {
		if err := h.replayer.Replay(ctx, job.EntryID); err != nil {
			if errors.Is(err, storage.ErrDeadLetterNotFound) {
				h.logger.Warn("skipping replay of missing dead-letter entry",
					zap.String("entry_id", job.EntryID),
				)
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		h.logger.Error("dead-letter replay job exhausted retries",
			zap.String("job_id", job.JobID),
			zap.String("entry_id", job.EntryID),
			zap.Error(err),
		)
	}
}

// deliveryFailureDetails pulls the HTTP status and elapsed time out of a
// gateway error when they are known.
func deliveryFailureDetails(err error) (*int, int64) {
	var gatewayErr *gateway.GatewayError
	if errors.As(err, &gatewayErr) {
		if gatewayErr.StatusCode > 0 {
			code := gatewayErr.StatusCode
			return &code, gatewayErr.ElapsedMs
		}
		return nil, gatewayErr.ElapsedMs
	}
	var timeoutErr *gateway.TimeoutError
	if errors.As(err, &timeoutErr) {
		return nil, timeoutErr.ElapsedMs
	}
	var circuitErr *gateway.CircuitBreakerError
	if errors.As(err, &circuitErr) {
		return nil, circuitErr.ElapsedMs
	}
	var rateErr *gateway.RateLimitError
	if errors.As(err, &rateErr) {
		return nil, rateErr.ElapsedMs
	}
	return nil, 0
}
