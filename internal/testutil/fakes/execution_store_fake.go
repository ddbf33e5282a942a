package fakes

import (
	"context"
	"sync"
	"time"

	"github.com/formflux/formflux/internal/models"
)

// FakeExecutionStore records action executions and delivery audit rows in
// memory.
type FakeExecutionStore struct {
	mu         sync.Mutex
	Executions []models.ActionExecution
	Deliveries []models.DeliveryRecord

	CreateErr error
}

func NewFakeExecutionStore() *FakeExecutionStore {
	return &FakeExecutionStore{}
}

func (f *FakeExecutionStore) CreateActionExecution(_ context.Context, exec *models.ActionExecution) error {
	if f.CreateErr != nil {
		return f.CreateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Executions = append(f.Executions, *exec)
	return nil
}

func (f *FakeExecutionStore) CompleteActionExecution(_ context.Context, executionID string, status models.ExecutionStatus, response, errMsg *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.Executions {
		if f.Executions[i].ID == executionID {
			now := time.Now().UTC()
			f.Executions[i].Status = status
			f.Executions[i].Response = response
			f.Executions[i].Error = errMsg
			f.Executions[i].CompletedAt = &now
			return nil
		}
	}
	return nil
}

func (f *FakeExecutionStore) MarkExecutionSuccessForAction(_ context.Context, eventID, actionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	best := -1
	for i := range f.Executions {
		e := f.Executions[i]
		if e.EventID != eventID || e.ActionID != actionID || e.Status != models.ExecutionStatusFailed {
			continue
		}
		if best == -1 || e.Attempt > f.Executions[best].Attempt {
			best = i
		}
	}
	if best >= 0 {
		now := time.Now().UTC()
		f.Executions[best].Status = models.ExecutionStatusSuccess
		f.Executions[best].CompletedAt = &now
	}
	return nil
}

func (f *FakeExecutionStore) CreateDeliveryRecord(_ context.Context, rec *models.DeliveryRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Deliveries = append(f.Deliveries, *rec)
	return nil
}

func (f *FakeExecutionStore) ListDeliveryRecords(_ context.Context, query models.ListDeliveryRecordsQuery) ([]models.DeliveryRecord, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	matched := make([]models.DeliveryRecord, 0)
	for _, rec := range f.Deliveries {
		if query.TenantID != "" && rec.TenantID != query.TenantID {
			continue
		}
		if query.Queue != "" && rec.Queue != query.Queue {
			continue
		}
		if query.Status != "" && rec.Status != query.Status {
			continue
		}
		matched = append(matched, rec)
	}

	total := int64(len(matched))
	start := (query.Page - 1) * query.Limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + query.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (f *FakeExecutionStore) DeleteDeliveryRecordsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	kept := f.Deliveries[:0]
	var purged int64
	for _, rec := range f.Deliveries {
		if rec.CreatedAt.Before(cutoff) {
			purged++
			continue
		}
		kept = append(kept, rec)
	}
	f.Deliveries = kept
	return purged, nil
}

// LatestExecution returns the most recently created execution row, or nil.
func (f *FakeExecutionStore) LatestExecution() *models.ActionExecution {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Executions) == 0 {
		return nil
	}
	copied := f.Executions[len(f.Executions)-1]
	return &copied
}
