package fakes

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/formflux/formflux/internal/models"
	"github.com/formflux/formflux/internal/storage"
)

// FakeDeadLetterStore mirrors the MySQL dead-letter semantics in memory,
// including the upsert-on-duplicate-key behavior.
type FakeDeadLetterStore struct {
	mu      sync.Mutex
	entries map[string]models.DeadLetterEntry

	UpsertErr error
}

func NewFakeDeadLetterStore() *FakeDeadLetterStore {
	return &FakeDeadLetterStore{entries: make(map[string]models.DeadLetterEntry)}
}

// Seed inserts an entry directly.
func (f *FakeDeadLetterStore) Seed(entry models.DeadLetterEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[entry.ID] = entry
}

// Count returns how many entries are stored.
func (f *FakeDeadLetterStore) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

func (f *FakeDeadLetterStore) UpsertDeadLetter(_ context.Context, entry *models.DeadLetterEntry) error {
	if f.UpsertErr != nil {
		return f.UpsertErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for id, existing := range f.entries {
		if existing.EventID == entry.EventID && existing.TriggerID == entry.TriggerID && existing.ActionID == entry.ActionID {
			existing.FailureCount++
			existing.LastError = entry.LastError
			existing.Status = models.DeadLetterStatusPending
			existing.UpdatedAt = time.Now().UTC()
			f.entries[id] = existing
			return nil
		}
	}
	f.entries[entry.ID] = *entry
	return nil
}

func (f *FakeDeadLetterStore) GetDeadLetter(_ context.Context, entryID string) (*models.DeadLetterEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[entryID]
	if !ok {
		return nil, storage.ErrDeadLetterNotFound
	}
	copied := entry
	return &copied, nil
}

func (f *FakeDeadLetterStore) GetDeadLetterByKey(_ context.Context, eventID, triggerID, actionID string) (*models.DeadLetterEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, entry := range f.entries {
		if entry.EventID == eventID && entry.TriggerID == triggerID && entry.ActionID == actionID {
			copied := entry
			return &copied, nil
		}
	}
	return nil, storage.ErrDeadLetterNotFound
}

func (f *FakeDeadLetterStore) ListDeadLetters(_ context.Context, query models.ListDeadLettersQuery) ([]models.DeadLetterEntry, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	matched := make([]models.DeadLetterEntry, 0)
	for _, entry := range f.entries {
		if query.TenantID != "" && entry.TenantID != query.TenantID {
			continue
		}
		if query.Status != "" && string(entry.Status) != query.Status {
			continue
		}
		matched = append(matched, entry)
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

func (f *FakeDeadLetterStore) ListPendingDeadLetters(_ context.Context, limit int) ([]models.DeadLetterEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pending := make([]models.DeadLetterEntry, 0)
	for _, entry := range f.entries {
		if entry.Status == models.DeadLetterStatusPending {
			pending = append(pending, entry)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (f *FakeDeadLetterStore) UpdateDeadLetterStatus(_ context.Context, entryID string, status models.DeadLetterStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[entryID]
	if !ok {
		return storage.ErrDeadLetterNotFound
	}
	entry.Status = status
	entry.UpdatedAt = time.Now().UTC()
	f.entries[entryID] = entry
	return nil
}

func (f *FakeDeadLetterStore) RecordReplayFailure(_ context.Context, entryID, lastError string, maxFailures int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[entryID]
	if !ok {
		return storage.ErrDeadLetterNotFound
	}
	entry.FailureCount++
	entry.LastError = lastError
	if entry.FailureCount >= maxFailures {
		entry.Status = models.DeadLetterStatusFailed
	} else {
		entry.Status = models.DeadLetterStatusPending
	}
	entry.UpdatedAt = time.Now().UTC()
	f.entries[entryID] = entry
	return nil
}

func (f *FakeDeadLetterStore) DeleteDeadLetter(_ context.Context, entryID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.entries[entryID]; !ok {
		return storage.ErrDeadLetterNotFound
	}
	delete(f.entries, entryID)
	return nil
}
