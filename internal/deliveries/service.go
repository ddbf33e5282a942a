// Package deliveries exposes the delivery audit trail and enforces its
// retention window.
package deliveries

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/formflux/formflux/internal/logging"
	"github.com/formflux/formflux/internal/models"
	"github.com/formflux/formflux/pkg/clock"
)

// Store defines the persistence the audit service needs.
type Store interface {
	ListDeliveryRecords(ctx context.Context, query models.ListDeliveryRecordsQuery) ([]models.DeliveryRecord, int64, error)
	DeleteDeliveryRecordsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Service lists delivery records and purges expired ones on a cron schedule.
type Service struct {
	store  Store
	logger logging.Logger
	clock  clock.Clock

	cron      *cron.Cron
	purgeSpec string
	maxAge    time.Duration
}

// NewService wires the delivery audit service. A maxAge of zero disables
// the retention purge entirely.
func NewService(store Store, logger logging.Logger, clk clock.Clock, purgeSpec string, maxAge time.Duration) *Service {
	return &Service{
		store:     store,
		logger:    logger,
		clock:     clk,
		cron:      cron.New(),
		purgeSpec: purgeSpec,
		maxAge:    maxAge,
	}
}

// List returns delivery records matching the query with pagination metadata.
func (s *Service) List(ctx context.Context, query models.ListDeliveryRecordsQuery) ([]models.DeliveryRecord, models.Pagination, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit < 1 {
		query.Limit = 20
	}
	if query.Limit > 100 {
		query.Limit = 100
	}

	records, total, err := s.store.ListDeliveryRecords(ctx, query)
	if err != nil {
		return nil, models.Pagination{}, err
	}

	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(query.Limit) - 1) / int64(query.Limit))
	}

	return records, models.Pagination{
		CurrentPage:  query.Page,
		PageSize:     query.Limit,
		TotalPages:   totalPages,
		TotalRecords: total,
	}, nil
}

// StartRetention registers the purge job and begins the cron loop.
func (s *Service) StartRetention(ctx context.Context) error {
	if s.maxAge <= 0 {
		return nil
	}
	if _, err := s.cron.AddFunc(s.purgeSpec, func() { s.Purge(ctx) }); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("delivery retention started",
		zap.String("spec", s.purgeSpec),
		zap.Duration("max_age", s.maxAge))
	return nil
}

// StopRetention halts the cron loop and waits for a running purge to finish.
func (s *Service) StopRetention() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
}

// Purge removes records older than the retention window. Exported so an
// operator can trigger an immediate purge.
func (s *Service) Purge(ctx context.Context) {
	cutoff := s.clock.Now().UTC().Add(-s.maxAge)
	purged, err := s.store.DeleteDeliveryRecordsBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("delivery retention purge failed", zap.Error(err))
		return
	}
	if purged > 0 {
		s.logger.Info("delivery retention purge complete",
			zap.Int64("purged", purged),
			zap.Time("cutoff", cutoff))
	}
}
