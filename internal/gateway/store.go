package gateway

import (
	"context"
	"time"

	"github.com/formflux/formflux/internal/models"
)

// CircuitStore is the shared fast-store capability backing circuit state.
// State is connector-scoped and expires on its own; a missing record means
// the circuit is closed.
type CircuitStore interface {
	GetCircuit(ctx context.Context, connectorID string) (*models.ConnectorCircuit, error)
	SetCircuit(ctx context.Context, connectorID string, circuit *models.ConnectorCircuit, ttl time.Duration) error
	DeleteCircuit(ctx context.Context, connectorID string) error
}

// RateWindow is the shared fast-store capability backing the sliding-window
// rate limiter: a sorted set of request timestamps pruned on each check.
type RateWindow interface {
	// Reserve prunes entries older than the window, then reserves a slot if
	// the connector is under limit. Returns false when the window is full.
	Reserve(ctx context.Context, connectorID string, now time.Time, window time.Duration, limit int) (bool, error)
	// Count returns the number of requests currently inside the window.
	Count(ctx context.Context, connectorID string, now time.Time, window time.Duration) (int64, error)
}
