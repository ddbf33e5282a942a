package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formflux/formflux/internal/models"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client), mr
}

func TestGetCircuit_WhenNoRecord_ThenReturnsNil(t *testing.T) {
	// Arrange
	store, _ := newTestRedisStore(t)

	// Act
	circuit, err := store.GetCircuit(context.Background(), "conn-1")

	// Assert
	require.NoError(t, err)
	assert.Nil(t, circuit)
}

func TestSetCircuit_WhenStored_ThenRoundTripsWithTTL(t *testing.T) {
	// Arrange
	store, mr := newTestRedisStore(t)
	openedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	circuit := &models.ConnectorCircuit{
		State:    models.CircuitOpen,
		Failures: 5,
		OpenedAt: openedAt,
	}

	// Act
	err := store.SetCircuit(context.Background(), "conn-1", circuit, 5*time.Minute)

	// Assert
	require.NoError(t, err)
	loaded, err := store.GetCircuit(context.Background(), "conn-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, models.CircuitOpen, loaded.State)
	assert.Equal(t, 5, loaded.Failures)
	assert.True(t, loaded.OpenedAt.Equal(openedAt))
	assert.Greater(t, mr.TTL("cb:conn-1"), time.Duration(0))
}

func TestSetCircuit_WhenTTLExpires_ThenRecordSelfHeals(t *testing.T) {
	// Arrange
	store, mr := newTestRedisStore(t)
	require.NoError(t, store.SetCircuit(context.Background(), "conn-1", &models.ConnectorCircuit{
		State:    models.CircuitOpen,
		Failures: 5,
	}, time.Minute))

	// Act
	mr.FastForward(2 * time.Minute)

	// Assert
	circuit, err := store.GetCircuit(context.Background(), "conn-1")
	require.NoError(t, err)
	assert.Nil(t, circuit)
}

func TestDeleteCircuit_WhenCalled_ThenRecordRemoved(t *testing.T) {
	// Arrange
	store, _ := newTestRedisStore(t)
	require.NoError(t, store.SetCircuit(context.Background(), "conn-1", &models.ConnectorCircuit{
		State: models.CircuitHalfOpen,
	}, time.Minute))

	// Act
	err := store.DeleteCircuit(context.Background(), "conn-1")

	// Assert
	require.NoError(t, err)
	circuit, err := store.GetCircuit(context.Background(), "conn-1")
	require.NoError(t, err)
	assert.Nil(t, circuit)
}

func TestReserve_WhenUnderLimit_ThenAllowsUpToLimit(t *testing.T) {
	// Arrange
	store, _ := newTestRedisStore(t)
	now := time.Now()

	// Act & Assert
	for i := 0; i < 3; i++ {
		allowed, err := store.Reserve(context.Background(), "conn-1", now.Add(time.Duration(i)*time.Millisecond), time.Minute, 3)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := store.Reserve(context.Background(), "conn-1", now.Add(4*time.Millisecond), time.Minute, 3)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestReserve_WhenWindowSlides_ThenOldEntriesFreeSlots(t *testing.T) {
	// Arrange
	store, _ := newTestRedisStore(t)
	start := time.Now()

	allowed, err := store.Reserve(context.Background(), "conn-1", start, time.Minute, 1)
	require.NoError(t, err)
	require.True(t, allowed)

	full, err := store.Reserve(context.Background(), "conn-1", start.Add(time.Second), time.Minute, 1)
	require.NoError(t, err)
	require.False(t, full)

	// Act
	later, err := store.Reserve(context.Background(), "conn-1", start.Add(61*time.Second), time.Minute, 1)

	// Assert
	require.NoError(t, err)
	assert.True(t, later)
}

func TestCount_WhenWindowQueried_ThenOnlyRecentEntriesCounted(t *testing.T) {
	// Arrange
	store, _ := newTestRedisStore(t)
	start := time.Now()
	for i := 0; i < 4; i++ {
		_, err := store.Reserve(context.Background(), "conn-1", start.Add(time.Duration(i)*time.Second), time.Minute, 10)
		require.NoError(t, err)
	}

	// Act
	within, err := store.Count(context.Background(), "conn-1", start.Add(5*time.Second), time.Minute)
	require.NoError(t, err)
	afterWindow, err2 := store.Count(context.Background(), "conn-1", start.Add(2*time.Minute), time.Minute)

	// Assert
	require.NoError(t, err2)
	assert.Equal(t, int64(4), within)
	assert.Equal(t, int64(0), afterWindow)
}

func TestReserve_WhenConnectorsDiffer_ThenWindowsIsolated(t *testing.T) {
	// Arrange
	store, _ := newTestRedisStore(t)
	now := time.Now()

	allowed, err := store.Reserve(context.Background(), "conn-1", now, time.Minute, 1)
	require.NoError(t, err)
	require.True(t, allowed)

	// Act
	other, err := store.Reserve(context.Background(), "conn-2", now, time.Minute, 1)

	// Assert
	require.NoError(t, err)
	assert.True(t, other)
}
