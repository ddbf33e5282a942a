package models

import "time"

// CircuitState is the three-state breaker guard for one connector.
type CircuitState string

const (
	CircuitClosed   CircuitState = "CLOSED"
	CircuitOpen     CircuitState = "OPEN"
	CircuitHalfOpen CircuitState = "HALF_OPEN"
)

// ConnectorCircuit is the ephemeral breaker record kept in the shared fast
// store under a connector-scoped key. Absence of a record implies CLOSED.
type ConnectorCircuit struct {
	State         CircuitState `json:"state"`
	Failures      int          `json:"failures"`
	LastFailureAt time.Time    `json:"last_failure_at,omitempty"`
	OpenedAt      time.Time    `json:"opened_at,omitempty"`
}

// ConnectorStatus is the operator-facing diagnostic view of one connector.
type ConnectorStatus struct {
	ConnectorID    string       `json:"connector_id"`
	Circuit        CircuitState `json:"circuit"`
	Failures       int          `json:"failures"`
	LastFailureAt  *time.Time   `json:"last_failure_at,omitempty"`
	OpenedAt       *time.Time   `json:"opened_at,omitempty"`
	WindowRequests int64        `json:"window_requests"`
	WindowLimit    int          `json:"window_limit"`
	WindowSeconds  int          `json:"window_seconds"`
	RateLimited    bool         `json:"rate_limited"`
}
