// Package actions implements the non-HTTP action executors. Email, SMS, CRM
// and task actions all deliver through tenant-agnostic provider endpoints,
// so one executor shape covers them: wrap the action config and event data
// in a provider envelope and send it through the guarded gateway.
package actions

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/formflux/formflux/internal/gateway"
	"github.com/formflux/formflux/internal/logging"
	"github.com/formflux/formflux/internal/models"
	"github.com/formflux/formflux/internal/pipeline"
	"github.com/formflux/formflux/pkg/config"
)

// Sender performs a guarded outbound HTTP call.
type Sender interface {
	Send(ctx context.Context, connectorID, tenantID string, req gateway.Request) (*gateway.Response, error)
}

// ProviderExecutor delivers one action type to its provider endpoint.
type ProviderExecutor struct {
	actionType  models.ActionType
	connectorID string
	url         string
	sender      Sender
	logger      logging.Logger
}

// NewProviderExecutor creates an executor posting to the given endpoint. The
// connector ID scopes the gateway's rate limit and circuit to the provider.
func NewProviderExecutor(actionType models.ActionType, url string, sender Sender, logger logging.Logger) *ProviderExecutor {
	return &ProviderExecutor{
		actionType:  actionType,
		connectorID: "provider:" + string(actionType),
		url:         url,
		sender:      sender,
		logger:      logger,
	}
}

// Execute posts the provider envelope and reports the delivery outcome.
func (e *ProviderExecutor) Execute(ctx context.Context, cfg json.RawMessage, eventData map[string]interface{}) (string, error) {
	if e.url == "" {
		return "", fmt.Errorf("actions: no provider endpoint configured for %s", e.actionType)
	}

	payload, err := json.Marshal(map[string]interface{}{
		"action":     e.actionType,
		"config":     cfg,
		"event_data": eventData,
	})
	if err != nil {
		return "", fmt.Errorf("actions: marshal %s envelope: %w", e.actionType, err)
	}

	resp, err := e.sender.Send(ctx, e.connectorID, "", gateway.Request{
		URL:  e.url,
		Body: payload,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("status=%d elapsed_ms=%d", resp.StatusCode, resp.ElapsedMs), nil
}

// RegisterProviders registers an executor for every provider-backed action
// type. Unconfigured providers still register so their actions fail with a
// clear error instead of an unknown-type rejection.
func RegisterProviders(registry *pipeline.ExecutorRegistry, cfg config.Providers, sender Sender, logger logging.Logger) {
	registry.Register(models.ActionSendEmail, NewProviderExecutor(models.ActionSendEmail, cfg.EmailURL, sender, logger))
	registry.Register(models.ActionSendSMS, NewProviderExecutor(models.ActionSendSMS, cfg.SMSURL, sender, logger))
	registry.Register(models.ActionUpdateCRM, NewProviderExecutor(models.ActionUpdateCRM, cfg.CRMURL, sender, logger))
	registry.Register(models.ActionCreateTask, NewProviderExecutor(models.ActionCreateTask, cfg.TaskURL, sender, logger))
}
