package gateway

import (
	"context"
	"time"

	"github.com/formflux/formflux/internal/logging"
	"github.com/formflux/formflux/pkg/clock"
	"go.uber.org/zap"
)

// RateLimiter enforces a per-connector sliding window over the shared fast
// store. The window moves continuously rather than in fixed buckets. Store
// errors fail open: availability wins over strict protection.
type RateLimiter struct {
	window RateWindow
	logger logging.Logger
	clock  clock.Clock
	span   time.Duration
	limit  int
}

// NewRateLimiter builds a limiter with the given window span and limit.
func NewRateLimiter(window RateWindow, logger logging.Logger, clk clock.Clock, span time.Duration, limit int) *RateLimiter {
	return &RateLimiter{
		window: window,
		logger: logger,
		clock:  clk,
		span:   span,
		limit:  limit,
	}
}

// Allow reserves a slot in the connector's window. Returns false only when
// the window is provably full.
func (rl *RateLimiter) Allow(ctx context.Context, connectorID string) bool {
	if rl.limit <= 0 {
		return true
	}

	allowed, err := rl.window.Reserve(ctx, connectorID, rl.clock.Now(), rl.span, rl.limit)
	if err != nil {
		rl.logger.Warn("rate window reserve failed, failing open",
			zap.String("connector_id", connectorID),
			zap.Error(err))
		return true
	}

	if !allowed {
		rl.logger.Debug("connector rate limited",
			zap.String("connector_id", connectorID),
			zap.Int("limit", rl.limit),
			zap.Duration("window", rl.span))
	}
	return allowed
}

// Usage returns the current request count inside the window for diagnostics.
func (rl *RateLimiter) Usage(ctx context.Context, connectorID string) (int64, error) {
	return rl.window.Count(ctx, connectorID, rl.clock.Now(), rl.span)
}

// Limit returns the configured per-window cap.
func (rl *RateLimiter) Limit() int { return rl.limit }

// Window returns the configured window span.
func (rl *RateLimiter) Window() time.Duration { return rl.span }
