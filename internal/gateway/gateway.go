package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/formflux/formflux/internal/logging"
	"github.com/formflux/formflux/internal/models"
	"github.com/formflux/formflux/pkg/clock"
	"github.com/formflux/formflux/pkg/config"
	"go.uber.org/zap"
)

// AuthType selects how credentials are injected into an outbound request.
type AuthType string

const (
	AuthBasic  AuthType = "basic"
	AuthAPIKey AuthType = "api_key"
)

// Auth carries connector credentials. Values are written into the outbound
// request only; they never appear in responses, errors or logs.
type Auth struct {
	Type     AuthType `json:"type"`
	Username string   `json:"username,omitempty"`
	Password string   `json:"password,omitempty"`
	Header   string   `json:"header,omitempty"`
	Key      string   `json:"key,omitempty"`
}

// Request describes one outbound HTTP call. Zero TimeoutMs and MaxRetries
// fall back to the gateway defaults.
type Request struct {
	URL        string            `json:"url"`
	Method     string            `json:"method,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       json.RawMessage   `json:"body,omitempty"`
	TimeoutMs  int               `json:"timeout_ms,omitempty"`
	MaxRetries int               `json:"max_retries,omitempty"`
	Auth       *Auth             `json:"auth,omitempty"`
}

// Response is the outcome of a successful call. ElapsedMs spans the whole
// Send including backoff waits.
type Response struct {
	StatusCode int    `json:"status_code"`
	Body       string `json:"body,omitempty"`
	Attempts   int    `json:"attempts"`
	ElapsedMs  int64  `json:"elapsed_ms"`
}

// maxResponseBytes bounds how much of a connector response is retained.
const maxResponseBytes = 4096

// Gateway issues HTTP requests to external connectors with rate limiting,
// circuit breaking, per-call timeout and bounded retry.
type Gateway struct {
	httpClient *http.Client
	circuit    *CircuitBreaker
	limiter    *RateLimiter
	logger     logging.Logger

	defaultTimeout time.Duration
	maxRetries     int
	backoffBase    time.Duration
}

// New wires a gateway over shared circuit and rate-limit state.
func New(circuitStore CircuitStore, rateWindow RateWindow, logger logging.Logger, clk clock.Clock, cfg config.Gateway) *Gateway {
	return &Gateway{
		// Per-attempt deadlines come from the request context, not the client.
		httpClient:     &http.Client{},
		circuit:        NewCircuitBreaker(circuitStore, logger, clk, cfg.CircuitThreshold, cfg.CircuitCooldown, cfg.CircuitTTL),
		limiter:        NewRateLimiter(rateWindow, logger, clk, cfg.RateWindow, cfg.RateLimit),
		logger:         logger,
		defaultTimeout: cfg.RequestTimeout,
		maxRetries:     cfg.MaxRetries,
		backoffBase:    cfg.BackoffBase,
	}
}

// Circuit exposes the breaker for operator diagnostics and manual reset.
func (g *Gateway) Circuit() *CircuitBreaker { return g.circuit }

// Limiter exposes the rate limiter for operator diagnostics.
func (g *Gateway) Limiter() *RateLimiter { return g.limiter }

// Send dispatches one request to the connector. Circuit and rate limit are
// checked before any network traffic; network errors and 5xx responses are
// retried with exponential backoff, 4xx responses never are.
func (g *Gateway) Send(ctx context.Context, connectorID, tenantID string, req Request) (*Response, error) {
	start := time.Now()

	if req.URL == "" {
		return nil, &GatewayError{ConnectorID: connectorID, Attempts: 0, cause: errors.New("request url is empty")}
	}
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}
	timeout := g.defaultTimeout
	if req.TimeoutMs > 0 {
		timeout = time.Duration(req.TimeoutMs) * time.Millisecond
	}
	maxRetries := g.maxRetries
	if req.MaxRetries > 0 {
		maxRetries = req.MaxRetries
	}

	state, allowed := g.circuit.Allow(ctx, connectorID)
	if !allowed {
		return nil, &CircuitBreakerError{ConnectorID: connectorID, ElapsedMs: elapsedMs(start)}
	}

	// A half-open probe skips the window check: without it a saturated
	// connector could never close its circuit.
	if state != models.CircuitHalfOpen && !g.limiter.Allow(ctx, connectorID) {
		return nil, &RateLimitError{
			ConnectorID: connectorID,
			Limit:       g.limiter.Limit(),
			Window:      g.limiter.Window(),
			ElapsedMs:   elapsedMs(start),
		}
	}

	var (
		lastStatus int
		lastErr    error
		timedOut   bool
	)

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if attempt > 1 {
			delay := g.backoffBase << (attempt - 2)
			select {
			case <-ctx.Done():
				g.circuit.RecordFailure(ctx, connectorID)
				return nil, &GatewayError{ConnectorID: connectorID, Attempts: attempt - 1, ElapsedMs: elapsedMs(start), cause: ctx.Err()}
			case <-time.After(delay):
			}
		}

		resp, err := g.attempt(ctx, method, req, timeout)
		if err != nil {
			if ctx.Err() != nil {
				g.circuit.RecordFailure(ctx, connectorID)
				return nil, &GatewayError{ConnectorID: connectorID, Attempts: attempt, ElapsedMs: elapsedMs(start), cause: ctx.Err()}
			}
			timedOut = errors.Is(err, context.DeadlineExceeded)
			lastErr = err
			lastStatus = 0
			g.logger.Warn("outbound attempt failed",
				zap.String("connector_id", connectorID),
				zap.String("tenant_id", tenantID),
				zap.Int("attempt", attempt),
				zap.Bool("timeout", timedOut))
			continue
		}

		if resp.StatusCode >= 500 {
			lastStatus = resp.StatusCode
			lastErr = nil
			timedOut = false
			g.logger.Warn("outbound attempt returned server error",
				zap.String("connector_id", connectorID),
				zap.String("tenant_id", tenantID),
				zap.Int("attempt", attempt),
				zap.Int("status", resp.StatusCode))
			continue
		}

		if resp.StatusCode >= 400 {
			g.circuit.RecordFailure(ctx, connectorID)
			return nil, &GatewayError{
				ConnectorID: connectorID,
				StatusCode:  resp.StatusCode,
				Attempts:    attempt,
				ElapsedMs:   elapsedMs(start),
			}
		}

		g.circuit.RecordSuccess(ctx, connectorID)
		resp.Attempts = attempt
		resp.ElapsedMs = elapsedMs(start)
		g.logger.Info("outbound request delivered",
			zap.String("connector_id", connectorID),
			zap.String("tenant_id", tenantID),
			zap.Int("status", resp.StatusCode),
			zap.Int("attempts", attempt),
			zap.String("circuit", string(state)),
			zap.Int64("elapsed_ms", resp.ElapsedMs))
		return resp, nil
	}

	g.circuit.RecordFailure(ctx, connectorID)

	if timedOut {
		return nil, &TimeoutError{
			ConnectorID: connectorID,
			Timeout:     timeout,
			Attempts:    maxRetries,
			ElapsedMs:   elapsedMs(start),
		}
	}
	return nil, &GatewayError{
		ConnectorID: connectorID,
		StatusCode:  lastStatus,
		Attempts:    maxRetries,
		ElapsedMs:   elapsedMs(start),
		cause:       lastErr,
	}
}

// attempt performs a single HTTP exchange under its own deadline.
func (g *Gateway) attempt(ctx context.Context, method string, req Request, timeout time.Duration) (*Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(callCtx, method, req.URL, body)
	if err != nil {
		return nil, err
	}

	if len(req.Body) > 0 {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.Auth != nil {
		applyAuth(httpReq, req.Auth)
	}

	httpResp, err := g.httpClient.Do(httpReq)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return nil, context.DeadlineExceeded
		}
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       string(respBody),
	}, nil
}

func applyAuth(r *http.Request, auth *Auth) {
	switch auth.Type {
	case AuthBasic:
		r.SetBasicAuth(auth.Username, auth.Password)
	case AuthAPIKey:
		header := auth.Header
		if header == "" {
			header = "X-API-Key"
		}
		r.Header.Set(header, auth.Key)
	}
}

func elapsedMs(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
