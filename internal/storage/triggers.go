package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/formflux/formflux/internal/models"
)

// ErrTriggerNotFound is returned when a trigger is not found.
var ErrTriggerNotFound = errors.New("trigger not found")

// ListActiveTriggers loads active triggers for one (tenant, event type) pair
// ordered by descending priority, with each trigger's actions attached in
// execution order. Triggers are configuration: the pipeline only reads them.
func (c *MySQLClient) ListActiveTriggers(ctx context.Context, tenantID, eventType string) ([]models.Trigger, error) {
	rows, err := c.db.QueryContext(
		ctx,
		`SELECT id, tenant_id, event_type, conditions, priority, status, error_handling, created_at, updated_at
		 FROM triggers
		 WHERE tenant_id = ? AND event_type = ? AND status = ?
		 ORDER BY priority DESC, created_at ASC`,
		tenantID, eventType, models.TriggerStatusActive,
	)
	if err != nil {
		return nil, fmt.Errorf("query triggers: %w", err)
	}
	defer rows.Close()

	triggers := make([]models.Trigger, 0)
	for rows.Next() {
		var t models.Trigger
		var conditions sql.NullString
		if err := rows.Scan(&t.ID, &t.TenantID, &t.EventType, &conditions, &t.Priority, &t.Status, &t.ErrorHandling, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan trigger row: %w", err)
		}
		if conditions.Valid && conditions.String != "" {
			if err := json.Unmarshal([]byte(conditions.String), &t.Conditions); err != nil {
				return nil, fmt.Errorf("decode trigger conditions: %w", err)
			}
		}
		triggers = append(triggers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate triggers: %w", err)
	}

	for i := range triggers {
		actions, err := c.listActions(ctx, triggers[i].ID)
		if err != nil {
			return nil, err
		}
		triggers[i].Actions = actions
	}

	return triggers, nil
}

// CreateTrigger persists a trigger and its action list in one transaction.
func (c *MySQLClient) CreateTrigger(ctx context.Context, trigger *models.Trigger) error {
	conditions, err := encodeConditions(trigger.Conditions)
	if err != nil {
		return err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create trigger: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO triggers (id, tenant_id, event_type, conditions, priority, status, error_handling, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trigger.ID, trigger.TenantID, trigger.EventType, conditions, trigger.Priority,
		trigger.Status, trigger.ErrorHandling, trigger.CreatedAt, trigger.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert trigger: %w", err)
	}

	if err := insertActions(ctx, tx, trigger.ID, trigger.Actions); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create trigger: %w", err)
	}
	return nil
}

// GetTrigger loads one trigger with its actions.
func (c *MySQLClient) GetTrigger(ctx context.Context, triggerID string) (*models.Trigger, error) {
	var t models.Trigger
	var conditions sql.NullString
	err := c.db.QueryRowContext(
		ctx,
		`SELECT id, tenant_id, event_type, conditions, priority, status, error_handling, created_at, updated_at
		 FROM triggers WHERE id = ?`,
		triggerID,
	).Scan(&t.ID, &t.TenantID, &t.EventType, &conditions, &t.Priority, &t.Status, &t.ErrorHandling, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTriggerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query trigger: %w", err)
	}

	if conditions.Valid && conditions.String != "" {
		if err := json.Unmarshal([]byte(conditions.String), &t.Conditions); err != nil {
			return nil, fmt.Errorf("decode trigger conditions: %w", err)
		}
	}
	actions, err := c.listActions(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	t.Actions = actions
	return &t, nil
}

// ListTriggers returns triggers matching the query with the total count.
func (c *MySQLClient) ListTriggers(ctx context.Context, query models.ListTriggersQuery) ([]models.Trigger, int64, error) {
	where := "WHERE 1=1"
	args := make([]interface{}, 0, 3)
	if query.TenantID != "" {
		where += " AND tenant_id = ?"
		args = append(args, query.TenantID)
	}
	if query.EventType != "" {
		where += " AND event_type = ?"
		args = append(args, query.EventType)
	}
	if query.Status != "" {
		where += " AND status = ?"
		args = append(args, query.Status)
	}

	var total int64
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM triggers "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count triggers: %w", err)
	}

	offset := (query.Page - 1) * query.Limit
	rows, err := c.db.QueryContext(
		ctx,
		`SELECT id, tenant_id, event_type, conditions, priority, status, error_handling, created_at, updated_at
		 FROM triggers `+where+` ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		append(args, query.Limit, offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query triggers: %w", err)
	}
	defer rows.Close()

	triggers := make([]models.Trigger, 0)
	for rows.Next() {
		var t models.Trigger
		var conditions sql.NullString
		if err := rows.Scan(&t.ID, &t.TenantID, &t.EventType, &conditions, &t.Priority, &t.Status, &t.ErrorHandling, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan trigger row: %w", err)
		}
		if conditions.Valid && conditions.String != "" {
			if err := json.Unmarshal([]byte(conditions.String), &t.Conditions); err != nil {
				return nil, 0, fmt.Errorf("decode trigger conditions: %w", err)
			}
		}
		triggers = append(triggers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate triggers: %w", err)
	}

	for i := range triggers {
		actions, err := c.listActions(ctx, triggers[i].ID)
		if err != nil {
			return nil, 0, err
		}
		triggers[i].Actions = actions
	}
	return triggers, total, nil
}

// UpdateTrigger applies column updates to one trigger.
func (c *MySQLClient) UpdateTrigger(ctx context.Context, triggerID string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	set := ""
	args := make([]interface{}, 0, len(updates)+1)
	for _, column := range []string{"event_type", "conditions", "priority", "status", "error_handling", "updated_at"} {
		value, ok := updates[column]
		if !ok {
			continue
		}
		if set != "" {
			set += ", "
		}
		set += column + " = ?"
		args = append(args, value)
	}
	args = append(args, triggerID)

	result, err := c.db.ExecContext(ctx, "UPDATE triggers SET "+set+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update trigger: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update trigger rows affected: %w", err)
	}
	if affected == 0 {
		return ErrTriggerNotFound
	}
	return nil
}

// ReplaceTriggerActions swaps the trigger's action list atomically.
func (c *MySQLClient) ReplaceTriggerActions(ctx context.Context, triggerID string, actions []models.Action) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace actions: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM trigger_actions WHERE trigger_id = ?`, triggerID); err != nil {
		return fmt.Errorf("clear trigger actions: %w", err)
	}
	if err := insertActions(ctx, tx, triggerID, actions); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace actions: %w", err)
	}
	return nil
}

// DeleteTrigger removes a trigger and its actions.
func (c *MySQLClient) DeleteTrigger(ctx context.Context, triggerID string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete trigger: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM trigger_actions WHERE trigger_id = ?`, triggerID); err != nil {
		return fmt.Errorf("delete trigger actions: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM triggers WHERE id = ?`, triggerID)
	if err != nil {
		return fmt.Errorf("delete trigger: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete trigger rows affected: %w", err)
	}
	if affected == 0 {
		return ErrTriggerNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete trigger: %w", err)
	}
	return nil
}

func insertActions(ctx context.Context, tx *sql.Tx, triggerID string, actions []models.Action) error {
	for _, action := range actions {
		var timeoutMs interface{}
		if action.TimeoutMs > 0 {
			timeoutMs = action.TimeoutMs
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO trigger_actions (id, trigger_id, sort_order, action_type, config, is_critical, timeout_ms)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			action.ID, triggerID, action.Order, action.ActionType, string(action.Config), action.IsCritical, timeoutMs,
		); err != nil {
			return fmt.Errorf("insert trigger action: %w", err)
		}
	}
	return nil
}

func encodeConditions(conditions []models.Condition) (interface{}, error) {
	if len(conditions) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(conditions)
	if err != nil {
		return nil, fmt.Errorf("encode trigger conditions: %w", err)
	}
	return string(raw), nil
}

func (c *MySQLClient) listActions(ctx context.Context, triggerID string) ([]models.Action, error) {
	rows, err := c.db.QueryContext(
		ctx,
		`SELECT id, trigger_id, sort_order, action_type, config, is_critical, timeout_ms
		 FROM trigger_actions
		 WHERE trigger_id = ?
		 ORDER BY sort_order ASC`,
		triggerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	actions := make([]models.Action, 0)
	for rows.Next() {
		var a models.Action
		var config string
		var timeoutMs sql.NullInt64
		if err := rows.Scan(&a.ID, &a.TriggerID, &a.Order, &a.ActionType, &config, &a.IsCritical, &timeoutMs); err != nil {
			return nil, fmt.Errorf("scan action row: %w", err)
		}
		a.Config = json.RawMessage(config)
		if timeoutMs.Valid {
			a.TimeoutMs = int(timeoutMs.Int64)
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actions: %w", err)
	}

	return actions, nil
}
