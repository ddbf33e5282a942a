package deliveries

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formflux/formflux/internal/logging"
	"github.com/formflux/formflux/internal/models"
	"github.com/formflux/formflux/internal/testutil/fakes"
	"github.com/formflux/formflux/pkg/clock"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seedRecord(store *fakes.FakeExecutionStore, id, tenantID, queue, status string, createdAt time.Time) {
	store.Deliveries = append(store.Deliveries, models.DeliveryRecord{
		ID:        id,
		JobID:     "job-" + id,
		Queue:     queue,
		TenantID:  tenantID,
		Endpoint:  "https://example.com/hook",
		Attempt:   1,
		Status:    status,
		CreatedAt: createdAt,
	})
}

func TestList_WhenFiltered_ThenOnlyMatchingRecordsReturned(t *testing.T) {
	// Arrange
	store := fakes.NewFakeExecutionStore()
	seedRecord(store, "d1", "tenant-1", models.QueueWebhooks, "success", fixedNow)
	seedRecord(store, "d2", "tenant-1", models.QueuePush, "failed", fixedNow)
	seedRecord(store, "d3", "tenant-2", models.QueueWebhooks, "success", fixedNow)
	service := NewService(store, logging.NewNoOpLogger(), clock.NewFixed(fixedNow), "0 3 * * *", 720*time.Hour)

	// Act
	records, pagination, err := service.List(context.Background(), models.ListDeliveryRecordsQuery{
		TenantID: "tenant-1",
		Queue:    models.QueueWebhooks,
	})

	// Assert
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "d1", records[0].ID)
	assert.Equal(t, int64(1), pagination.TotalRecords)
	assert.Equal(t, 20, pagination.PageSize)
}

func TestList_WhenLimitAboveCap_ThenClamped(t *testing.T) {
	// Arrange
	service := NewService(fakes.NewFakeExecutionStore(), logging.NewNoOpLogger(), clock.NewFixed(fixedNow), "0 3 * * *", 720*time.Hour)

	// Act
	_, pagination, err := service.List(context.Background(), models.ListDeliveryRecordsQuery{Limit: 500})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 100, pagination.PageSize)
}

func TestPurge_WhenRecordsOlderThanWindow_ThenRemoved(t *testing.T) {
	// Arrange
	store := fakes.NewFakeExecutionStore()
	seedRecord(store, "old", "tenant-1", models.QueueWebhooks, "failed", fixedNow.Add(-31*24*time.Hour))
	seedRecord(store, "recent", "tenant-1", models.QueueWebhooks, "success", fixedNow.Add(-24*time.Hour))
	service := NewService(store, logging.NewNoOpLogger(), clock.NewFixed(fixedNow), "0 3 * * *", 720*time.Hour)

	// Act
	service.Purge(context.Background())

	// Assert
	require.Len(t, store.Deliveries, 1)
	assert.Equal(t, "recent", store.Deliveries[0].ID)
}

func TestStartRetention_WhenMaxAgeZero_ThenPurgeDisabled(t *testing.T) {
	// Arrange
	service := NewService(fakes.NewFakeExecutionStore(), logging.NewNoOpLogger(), clock.NewFixed(fixedNow), "0 3 * * *", 0)

	// Act
	err := service.StartRetention(context.Background())

	// Assert
	assert.NoError(t, err)
}

func TestStartRetention_WhenSpecInvalid_ThenFails(t *testing.T) {
	// Arrange
	service := NewService(fakes.NewFakeExecutionStore(), logging.NewNoOpLogger(), clock.NewFixed(fixedNow), "bogus", time.Hour)

	// Act
	err := service.StartRetention(context.Background())

	// Assert
	assert.Error(t, err)
}
