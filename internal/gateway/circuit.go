package gateway

import (
	"context"
	"time"

	"github.com/formflux/formflux/internal/logging"
	"github.com/formflux/formflux/internal/models"
	"github.com/formflux/formflux/pkg/clock"
	"go.uber.org/zap"
)

// CircuitBreaker guards outbound connectors with a three-state circuit kept
// in the shared fast store. Reads and updates are last-write-wins: a stale
// counter at worst delays opening by one request, and the state's own TTL
// self-heals any drift. On store errors the breaker fails open.
type CircuitBreaker struct {
	store     CircuitStore
	logger    logging.Logger
	clock     clock.Clock
	threshold int
	cooldown  time.Duration
	ttl       time.Duration
}

// NewCircuitBreaker builds a breaker over the given store.
func NewCircuitBreaker(store CircuitStore, logger logging.Logger, clk clock.Clock, threshold int, cooldown, ttl time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		store:     store,
		logger:    logger,
		clock:     clk,
		threshold: threshold,
		cooldown:  cooldown,
		ttl:       ttl,
	}
}

// Allow reports whether a request to the connector may proceed. When an open
// circuit's cooldown has elapsed it transitions to HALF_OPEN and admits a
// single probing request.
func (cb *CircuitBreaker) Allow(ctx context.Context, connectorID string) (models.CircuitState, bool) {
	circuit, err := cb.store.GetCircuit(ctx, connectorID)
	if err != nil {
		cb.logger.Warn("circuit store read failed, failing open",
			zap.String("connector_id", connectorID),
			zap.Error(err))
		return models.CircuitClosed, true
	}
	if circuit == nil {
		return models.CircuitClosed, true
	}

	switch circuit.State {
	case models.CircuitOpen:
		if cb.clock.Now().Sub(circuit.OpenedAt) >= cb.cooldown {
			circuit.State = models.CircuitHalfOpen
			if err := cb.store.SetCircuit(ctx, connectorID, circuit, cb.ttl); err != nil {
				cb.logger.Warn("failed to persist half-open transition",
					zap.String("connector_id", connectorID),
					zap.Error(err))
			}
			cb.logger.Info("circuit half-open, allowing probe",
				zap.String("connector_id", connectorID))
			return models.CircuitHalfOpen, true
		}
		return models.CircuitOpen, false
	case models.CircuitHalfOpen:
		return models.CircuitHalfOpen, true
	default:
		return models.CircuitClosed, true
	}
}

// RecordSuccess resets the connector to CLOSED by deleting its state.
func (cb *CircuitBreaker) RecordSuccess(ctx context.Context, connectorID string) {
	circuit, err := cb.store.GetCircuit(ctx, connectorID)
	if err == nil && circuit != nil && circuit.State == models.CircuitHalfOpen {
		cb.logger.Info("circuit closed, connector recovered",
			zap.String("connector_id", connectorID))
	}
	if err := cb.store.DeleteCircuit(ctx, connectorID); err != nil {
		cb.logger.Warn("failed to reset circuit state",
			zap.String("connector_id", connectorID),
			zap.Error(err))
	}
}

// RecordFailure increments the failure counter and opens the circuit at the
// threshold. A failure while HALF_OPEN reopens the circuit immediately.
func (cb *CircuitBreaker) RecordFailure(ctx context.Context, connectorID string) {
	now := cb.clock.Now()

	circuit, err := cb.store.GetCircuit(ctx, connectorID)
	if err != nil {
		cb.logger.Warn("circuit store read failed, failure not recorded",
			zap.String("connector_id", connectorID),
			zap.Error(err))
		return
	}
	if circuit == nil {
		circuit = &models.ConnectorCircuit{State: models.CircuitClosed}
	}

	circuit.Failures++
	circuit.LastFailureAt = now

	switch {
	case circuit.State == models.CircuitHalfOpen:
		circuit.State = models.CircuitOpen
		circuit.OpenedAt = now
		cb.logger.Warn("circuit reopened, probe failed",
			zap.String("connector_id", connectorID))
	case circuit.Failures >= cb.threshold && circuit.State != models.CircuitOpen:
		circuit.State = models.CircuitOpen
		circuit.OpenedAt = now
		cb.logger.Warn("circuit opened",
			zap.String("connector_id", connectorID),
			zap.Int("failures", circuit.Failures),
			zap.Int("threshold", cb.threshold))
	}

	if err := cb.store.SetCircuit(ctx, connectorID, circuit, cb.ttl); err != nil {
		cb.logger.Warn("failed to persist circuit state",
			zap.String("connector_id", connectorID),
			zap.Error(err))
	}
}

// State returns the current circuit for diagnostics, reflecting a pending
// HALF_OPEN transition without persisting it.
func (cb *CircuitBreaker) State(ctx context.Context, connectorID string) (*models.ConnectorCircuit, error) {
	circuit, err := cb.store.GetCircuit(ctx, connectorID)
	if err != nil {
		return nil, err
	}
	if circuit == nil {
		return &models.ConnectorCircuit{State: models.CircuitClosed}, nil
	}
	if circuit.State == models.CircuitOpen && cb.clock.Now().Sub(circuit.OpenedAt) >= cb.cooldown {
		circuit.State = models.CircuitHalfOpen
	}
	return circuit, nil
}

// Reset clears the circuit, forcing it back to CLOSED. Operator use only.
func (cb *CircuitBreaker) Reset(ctx context.Context, connectorID string) error {
	return cb.store.DeleteCircuit(ctx, connectorID)
}
