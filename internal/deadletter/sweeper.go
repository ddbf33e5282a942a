package deadletter

import (
	"context"

	"github.com/formflux/formflux/internal/logging"
	"github.com/formflux/formflux/internal/models"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// sweepBatchSize bounds how many pending entries one sweep enqueues.
const sweepBatchSize = 100

// Sweeper periodically enqueues pending dead-letter entries for replay so
// transient connector outages heal without operator involvement.
type Sweeper struct {
	cron     *cron.Cron
	store    Store
	enqueuer Enqueuer
	logger   logging.Logger
	spec     string
}

// NewSweeper builds a sweeper on the given cron spec (standard five-field
// syntax, e.g. "*/10 * * * *").
func NewSweeper(spec string, store Store, enqueuer Enqueuer, logger logging.Logger) *Sweeper {
	return &Sweeper{
		cron:     cron.New(),
		store:    store,
		enqueuer: enqueuer,
		logger:   logger,
		spec:     spec,
	}
}

// Start registers the sweep job and begins the cron loop.
func (s *Sweeper) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.Sweep(ctx) }); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("dead-letter sweeper started", zap.String("spec", s.spec))
	return nil
}

// Stop halts the cron loop and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("dead-letter sweeper stopped")
}

// Sweep enqueues one batch of pending entries for replay. Exported so the
// operator API can trigger an immediate sweep.
func (s *Sweeper) Sweep(ctx context.Context) {
	entries, err := s.store.ListPendingDeadLetters(ctx, sweepBatchSize)
	if err != nil {
		s.logger.Error("dead-letter sweep failed", zap.Error(err))
		return
	}
	if len(entries) == 0 {
		return
	}

	enqueued := 0
	for _, entry := range entries {
		job := models.DLQJob{
			JobID:   uuid.New().String(),
			EntryID: entry.ID,
			Attempt: 1,
		}
		if err := s.enqueuer.EnqueueDLQ(ctx, job); err != nil {
			s.logger.Error("failed to enqueue dead-letter replay",
				zap.String("entry_id", entry.ID),
				zap.Error(err))
			continue
		}
		enqueued++
	}

	s.logger.Info("dead-letter sweep complete",
		zap.Int("pending", len(entries)),
		zap.Int("enqueued", enqueued))
}
