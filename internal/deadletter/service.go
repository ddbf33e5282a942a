package deadletter

import (
	"context"
	"fmt"

	"github.com/formflux/formflux/internal/logging"
	"github.com/formflux/formflux/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxReplayFailures is the failure count at which an entry becomes
// terminally failed and is no longer replayed automatically.
const maxReplayFailures = 5

// Service owns the dead-letter lifecycle: escalation of exhausted action
// failures, snapshot-based replay, and the operator surface.
type Service struct {
	store      Store
	executions ExecutionUpdater
	runner     ActionRunner
	logger     logging.Logger
}

// NewService wires the dead-letter service.
func NewService(store Store, executions ExecutionUpdater, runner ActionRunner, logger logging.Logger) *Service {
	return &Service{
		store:      store,
		executions: executions,
		runner:     runner,
		logger:     logger,
	}
}

// BindRunner attaches the action runner after construction. Replays execute
// through the same pipeline that escalates into this service, so the runner
// cannot exist yet when NewService is called.
func (s *Service) BindRunner(runner ActionRunner) {
	s.runner = runner
}

// Escalate records an exhausted action failure. Escalation is idempotent
// per (event, trigger, action): a repeat escalation increments the existing
// entry's failure count instead of creating a second row. Snapshots are
// copied now so replay never depends on live rows.
func (s *Service) Escalate(ctx context.Context, event *models.Event, trigger *models.Trigger, action *models.Action, cause error) (*models.DeadLetterEntry, error) {
	eventSnapshot, err := event.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("snapshot event %s: %w", event.ID, err)
	}
	actionSnapshot, err := action.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("snapshot action %s: %w", action.ID, err)
	}

	entry := &models.DeadLetterEntry{
		ID:             uuid.New().String(),
		EventID:        event.ID,
		TenantID:       event.TenantID,
		TriggerID:      trigger.ID,
		ActionID:       action.ID,
		FailureCount:   1,
		LastError:      cause.Error(),
		EventSnapshot:  eventSnapshot,
		ActionSnapshot: actionSnapshot,
		Status:         models.DeadLetterStatusPending,
	}

	if err := s.store.UpsertDeadLetter(ctx, entry); err != nil {
		return nil, fmt.Errorf("escalate action %s for event %s: %w", action.ID, event.ID, err)
	}

	stored, err := s.store.GetDeadLetterByKey(ctx, event.ID, trigger.ID, action.ID)
	if err != nil {
		return nil, fmt.Errorf("load escalated entry: %w", err)
	}

	s.logger.Warn("action escalated to dead letter",
		zap.String("entry_id", stored.ID),
		zap.String("event_id", event.ID),
		zap.String("trigger_id", trigger.ID),
		zap.String("action_id", action.ID),
		zap.Int("failure_count", stored.FailureCount))

	return stored, nil
}

// Replay re-executes the entry's frozen action against its frozen event.
// Terminal entries are no-ops, which makes duplicate replay triggers safe.
func (s *Service) Replay(ctx context.Context, entryID string) error {
	if s.runner == nil {
		return fmt.Errorf("replay entry %s: no action runner bound", entryID)
	}

	entry, err := s.store.GetDeadLetter(ctx, entryID)
	if err != nil {
		return err
	}

	if entry.Status.IsTerminal() {
		s.logger.Info("replay skipped, entry already terminal",
			zap.String("entry_id", entryID),
			zap.String("status", string(entry.Status)))
		return nil
	}

	event, err := models.EventFromSnapshot(entry.EventSnapshot)
	if err != nil {
		return fmt.Errorf("decode event snapshot for entry %s: %w", entryID, err)
	}
	action, err := models.ActionFromSnapshot(entry.ActionSnapshot)
	if err != nil {
		return fmt.Errorf("decode action snapshot for entry %s: %w", entryID, err)
	}

	if _, err := s.runner.ExecuteAction(ctx, event, action); err != nil {
		if recordErr := s.store.RecordReplayFailure(ctx, entryID, err.Error(), maxReplayFailures); recordErr != nil {
			s.logger.Error("failed to record replay failure",
				zap.String("entry_id", entryID),
				zap.Error(recordErr))
		}
		s.logger.Warn("dead-letter replay failed",
			zap.String("entry_id", entryID),
			zap.String("event_id", entry.EventID),
			zap.String("action_id", entry.ActionID),
			zap.Error(err))
		return fmt.Errorf("replay entry %s: %w", entryID, err)
	}

	if err := s.store.UpdateDeadLetterStatus(ctx, entryID, models.DeadLetterStatusResolved); err != nil {
		return fmt.Errorf("mark entry %s resolved: %w", entryID, err)
	}
	if err := s.executions.MarkExecutionSuccessForAction(ctx, entry.EventID, entry.ActionID); err != nil {
		s.logger.Error("failed to reconcile execution after replay",
			zap.String("entry_id", entryID),
			zap.String("event_id", entry.EventID),
			zap.String("action_id", entry.ActionID),
			zap.Error(err))
	}

	s.logger.Info("dead-letter entry resolved",
		zap.String("entry_id", entryID),
		zap.String("event_id", entry.EventID),
		zap.String("action_id", entry.ActionID))
	return nil
}

// Ignore marks a pending entry ignored. Terminal entries are left as-is.
func (s *Service) Ignore(ctx context.Context, entryID string) error {
	entry, err := s.store.GetDeadLetter(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.Status.IsTerminal() {
		return nil
	}
	return s.store.UpdateDeadLetterStatus(ctx, entryID, models.DeadLetterStatusIgnored)
}

// Get returns one entry by id.
func (s *Service) Get(ctx context.Context, entryID string) (*models.DeadLetterEntry, error) {
	return s.store.GetDeadLetter(ctx, entryID)
}

// List returns entries matching the query along with pagination metadata.
func (s *Service) List(ctx context.Context, query models.ListDeadLettersQuery) ([]models.DeadLetterEntry, models.Pagination, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit < 1 {
		query.Limit = 20
	}
	if query.Limit > 100 {
		query.Limit = 100
	}

	entries, total, err := s.store.ListDeadLetters(ctx, query)
	if err != nil {
		return nil, models.Pagination{}, err
	}

	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(query.Limit) - 1) / int64(query.Limit))
	}

	return entries, models.Pagination{
		CurrentPage:  query.Page,
		PageSize:     query.Limit,
		TotalPages:   totalPages,
		TotalRecords: total,
	}, nil
}

// Delete removes an entry. Operator use only.
func (s *Service) Delete(ctx context.Context, entryID string) error {
	return s.store.DeleteDeadLetter(ctx, entryID)
}
