package gateway

import (
	"fmt"
	"time"
)

// RateLimitError is returned when the connector's sliding window is full.
// No network call was issued.
type RateLimitError struct {
	ConnectorID string
	Limit       int
	Window      time.Duration
	ElapsedMs   int64
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("connector %s rate limited: %d requests per %s exceeded", e.ConnectorID, e.Limit, e.Window)
}

// CircuitBreakerError is returned when the connector's circuit is open.
// It is produced without touching the network, well inside the request
// timeout.
type CircuitBreakerError struct {
	ConnectorID string
	ElapsedMs   int64
}

func (e *CircuitBreakerError) Error() string {
	return fmt.Sprintf("connector %s circuit open, request rejected", e.ConnectorID)
}

// TimeoutError is returned when the final attempt exceeded its deadline.
type TimeoutError struct {
	ConnectorID string
	Timeout     time.Duration
	Attempts    int
	ElapsedMs   int64
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("connector %s request timed out after %s (%d attempts)", e.ConnectorID, e.Timeout, e.Attempts)
}

// GatewayError is returned for HTTP or network failures once retries are
// exhausted. Credentials are never reproduced in the message.
type GatewayError struct {
	ConnectorID string
	StatusCode  int
	Attempts    int
	ElapsedMs   int64
	cause       error
}

func (e *GatewayError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("connector %s request failed with status %d (%d attempts)", e.ConnectorID, e.StatusCode, e.Attempts)
	}
	return fmt.Sprintf("connector %s request failed (%d attempts): %v", e.ConnectorID, e.Attempts, e.cause)
}

func (e *GatewayError) Unwrap() error { return e.cause }
