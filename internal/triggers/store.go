package triggers

import (
	"context"

	"github.com/formflux/formflux/internal/models"
)

// TriggerStore defines the storage methods required by the trigger service.
type TriggerStore interface {
	CreateTrigger(ctx context.Context, trigger *models.Trigger) error
	GetTrigger(ctx context.Context, triggerID string) (*models.Trigger, error)
	ListTriggers(ctx context.Context, query models.ListTriggersQuery) ([]models.Trigger, int64, error)
	UpdateTrigger(ctx context.Context, triggerID string, updates map[string]interface{}) error
	ReplaceTriggerActions(ctx context.Context, triggerID string, actions []models.Action) error
	DeleteTrigger(ctx context.Context, triggerID string) error
}
