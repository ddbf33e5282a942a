package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/formflux/formflux/internal/logging"
)

func TestPool_WhenJobsSubmitted_ThenAllHandled(t *testing.T) {
	// Arrange
	var mu sync.Mutex
	var handled [][]byte
	pool := NewPool("events", 4, 0, func(_ context.Context, raw []byte) {
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, raw)
	}, logging.NewNoOpLogger())
	pool.Start(context.Background())

	// Act
	for i := 0; i < 20; i++ {
		pool.Submit([]byte{byte(i)})
	}
	pool.Stop()

	// Assert
	assert.Len(t, handled, 20)
}

func TestPool_WhenStopped_ThenInFlightJobsFinish(t *testing.T) {
	// Arrange
	var mu sync.Mutex
	handled := 0
	pool := NewPool("webhooks", 2, 0, func(_ context.Context, _ []byte) {
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		defer mu.Unlock()
		handled++
	}, logging.NewNoOpLogger())
	pool.Start(context.Background())
	for i := 0; i < 4; i++ {
		pool.Submit([]byte("job"))
	}

	// Act
	pool.Stop()

	// Assert
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 4, handled)
}

func TestPool_WhenContextCancelled_ThenWorkersStopPickingJobs(t *testing.T) {
	// Arrange
	ctx, cancel := context.WithCancel(context.Background())
	var mu sync.Mutex
	handled := 0
	pool := NewPool("push", 1, 0, func(_ context.Context, _ []byte) {
		mu.Lock()
		defer mu.Unlock()
		handled++
	}, logging.NewNoOpLogger())
	pool.Start(ctx)

	// Act
	cancel()
	time.Sleep(5 * time.Millisecond)
	pool.Submit([]byte("job"))
	pool.Stop()

	// Assert
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, handled)
}

func TestPool_WhenRateCapConfigured_ThenJobStartsSpacedOut(t *testing.T) {
	// Arrange
	var mu sync.Mutex
	handled := 0
	pool := NewPool("dlq", 2, 10, func(_ context.Context, _ []byte) {
		mu.Lock()
		defer mu.Unlock()
		handled++
	}, logging.NewNoOpLogger())
	pool.Start(context.Background())

	// Act
	start := time.Now()
	for i := 0; i < 15; i++ {
		pool.Submit([]byte("job"))
	}
	pool.Stop()
	elapsed := time.Since(start)

	// Assert
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 15, handled)
	// 15 jobs at 10 per second with a burst of 10 needs at least half a second.
	assert.GreaterOrEqual(t, elapsed, 400*time.Millisecond)
}
