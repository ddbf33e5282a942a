package fakes

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/formflux/formflux/internal/models"
	"github.com/formflux/formflux/internal/storage"
)

// FakeTriggerStore is an in-memory implementation of the trigger storage
// used by both the pipeline and the configuration service.
type FakeTriggerStore struct {
	mu       sync.Mutex
	triggers map[string]models.Trigger

	ListErr error
}

func NewFakeTriggerStore() *FakeTriggerStore {
	return &FakeTriggerStore{triggers: make(map[string]models.Trigger)}
}

// Seed inserts a trigger directly, bypassing validation.
func (f *FakeTriggerStore) Seed(trigger models.Trigger) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers[trigger.ID] = trigger
}

func (f *FakeTriggerStore) CreateTrigger(_ context.Context, trigger *models.Trigger) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := *trigger
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
		t.UpdatedAt = t.CreatedAt
	}
	f.triggers[t.ID] = t
	return nil
}

func (f *FakeTriggerStore) GetTrigger(_ context.Context, triggerID string) (*models.Trigger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.triggers[triggerID]
	if !ok {
		return nil, storage.ErrTriggerNotFound
	}
	copied := t
	return &copied, nil
}

func (f *FakeTriggerStore) ListTriggers(_ context.Context, query models.ListTriggersQuery) ([]models.Trigger, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	matched := make([]models.Trigger, 0)
	for _, t := range f.triggers {
		if query.TenantID != "" && t.TenantID != query.TenantID {
			continue
		}
		if query.EventType != "" && t.EventType != query.EventType {
			continue
		}
		if query.Status != "" && string(t.Status) != query.Status {
			continue
		}
		matched = append(matched, t)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

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

func (f *FakeTriggerStore) ListActiveTriggers(_ context.Context, tenantID, eventType string) ([]models.Trigger, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	matched := make([]models.Trigger, 0)
	for _, t := range f.triggers {
		if t.TenantID == tenantID && t.EventType == eventType && t.Status == models.TriggerStatusActive {
			matched = append(matched, t)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Priority != matched[j].Priority {
			return matched[i].Priority > matched[j].Priority
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})
	return matched, nil
}

func (f *FakeTriggerStore) UpdateTrigger(_ context.Context, triggerID string, updates map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.triggers[triggerID]
	if !ok {
		return storage.ErrTriggerNotFound
	}
	if v, ok := updates["event_type"]; ok {
		t.EventType = v.(string)
	}
	if v, ok := updates["conditions"]; ok {
		var conditions []models.Condition
		if err := json.Unmarshal([]byte(v.(string)), &conditions); err != nil {
			return err
		}
		t.Conditions = conditions
	}
	if v, ok := updates["priority"]; ok {
		t.Priority = v.(int)
	}
	if v, ok := updates["status"]; ok {
		t.Status = v.(models.TriggerStatus)
	}
	if v, ok := updates["error_handling"]; ok {
		t.ErrorHandling = v.(models.ErrorHandlingStrategy)
	}
	if v, ok := updates["updated_at"]; ok {
		t.UpdatedAt = v.(time.Time)
	}
	f.triggers[triggerID] = t
	return nil
}

func (f *FakeTriggerStore) ReplaceTriggerActions(_ context.Context, triggerID string, actions []models.Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.triggers[triggerID]
	if !ok {
		return storage.ErrTriggerNotFound
	}
	t.Actions = actions
	f.triggers[triggerID] = t
	return nil
}

func (f *FakeTriggerStore) DeleteTrigger(_ context.Context, triggerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.triggers[triggerID]; !ok {
		return storage.ErrTriggerNotFound
	}
	delete(f.triggers, triggerID)
	return nil
}
