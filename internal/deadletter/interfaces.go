package deadletter

import (
	"context"

	"github.com/formflux/formflux/internal/models"
)

// Store defines persistence required by the dead-letter subsystem.
type Store interface {
	UpsertDeadLetter(ctx context.Context, entry *models.DeadLetterEntry) error
	GetDeadLetter(ctx context.Context, entryID string) (*models.DeadLetterEntry, error)
	GetDeadLetterByKey(ctx context.Context, eventID, triggerID, actionID string) (*models.DeadLetterEntry, error)
	ListDeadLetters(ctx context.Context, query models.ListDeadLettersQuery) ([]models.DeadLetterEntry, int64, error)
	ListPendingDeadLetters(ctx context.Context, limit int) ([]models.DeadLetterEntry, error)
	UpdateDeadLetterStatus(ctx context.Context, entryID string, status models.DeadLetterStatus) error
	RecordReplayFailure(ctx context.Context, entryID, lastError string, maxFailures int) error
	DeleteDeadLetter(ctx context.Context, entryID string) error
}

// ExecutionUpdater reconciles the action execution record after a
// successful replay.
type ExecutionUpdater interface {
	MarkExecutionSuccessForAction(ctx context.Context, eventID, actionID string) error
}

// ActionRunner replays a frozen action against a frozen event. The pipeline
// service satisfies this, so replays and live executions share one path.
type ActionRunner interface {
	ExecuteAction(ctx context.Context, event *models.Event, action *models.Action) (string, error)
}

// Enqueuer schedules dead-letter replays on the DLQ queue.
type Enqueuer interface {
	EnqueueDLQ(ctx context.Context, job models.DLQJob) error
}
