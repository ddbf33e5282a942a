package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/formflux/formflux/internal/models"
)

// CreateActionExecution inserts a pending execution row before the
// underlying call is made. The unique (event_id, action_id, attempt) key
// guarantees the row is never re-created for the same logical attempt.
func (c *MySQLClient) CreateActionExecution(ctx context.Context, exec *models.ActionExecution) error {
	if _, err := c.db.ExecContext(
		ctx,
		`INSERT INTO action_executions (id, event_id, trigger_id, action_id, status, attempt, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		exec.ID,
		exec.EventID,
		exec.TriggerID,
		exec.ActionID,
		exec.Status,
		exec.Attempt,
		exec.StartedAt,
	); err != nil {
		return fmt.Errorf("insert action execution: %w", err)
	}
	return nil
}

// CompleteActionExecution moves an execution row to its terminal state.
func (c *MySQLClient) CompleteActionExecution(ctx context.Context, executionID string, status models.ExecutionStatus, response, errMsg *string) error {
	if _, err := c.db.ExecContext(
		ctx,
		`UPDATE action_executions
		 SET status = ?, response = ?, error = ?, completed_at = ?
		 WHERE id = ?`,
		status,
		response,
		errMsg,
		time.Now().UTC(),
		executionID,
	); err != nil {
		return fmt.Errorf("complete action execution: %w", err)
	}
	return nil
}

// MarkExecutionSuccessForAction updates the latest failed execution of an
// (event, action) pair to success. Used when a dead-letter replay recovers.
func (c *MySQLClient) MarkExecutionSuccessForAction(ctx context.Context, eventID, actionID string) error {
	if _, err := c.db.ExecContext(
		ctx,
		`UPDATE action_executions
		 SET status = ?, completed_at = ?
		 WHERE event_id = ? AND action_id = ? AND status = ?
		 ORDER BY attempt DESC
		 LIMIT 1`,
		models.ExecutionStatusSuccess,
		time.Now().UTC(),
		eventID,
		actionID,
		models.ExecutionStatusFailed,
	); err != nil {
		return fmt.Errorf("mark execution success: %w", err)
	}
	return nil
}

// CreateDeliveryRecord appends an audit row for webhook and push deliveries.
func (c *MySQLClient) CreateDeliveryRecord(ctx context.Context, rec *models.DeliveryRecord) error {
	if _, err := c.db.ExecContext(
		ctx,
		`INSERT INTO delivery_records (id, job_id, queue, tenant_id, endpoint, attempt, status, http_status_code, response_time_ms, error_message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.JobID,
		rec.Queue,
		rec.TenantID,
		rec.Endpoint,
		rec.Attempt,
		rec.Status,
		rec.HTTPStatusCode,
		rec.ResponseTimeMs,
		rec.ErrorMessage,
		rec.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert delivery record: %w", err)
	}
	return nil
}

// ListDeliveryRecords returns audit rows matching the query, newest first,
// with the total count.
func (c *MySQLClient) ListDeliveryRecords(ctx context.Context, query models.ListDeliveryRecordsQuery) ([]models.DeliveryRecord, int64, error) {
	where := "WHERE 1=1"
	args := make([]interface{}, 0, 3)
	if query.TenantID != "" {
		where += " AND tenant_id = ?"
		args = append(args, query.TenantID)
	}
	if query.Queue != "" {
		where += " AND queue = ?"
		args = append(args, query.Queue)
	}
	if query.Status != "" {
		where += " AND status = ?"
		args = append(args, query.Status)
	}

	var total int64
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM delivery_records "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count delivery records: %w", err)
	}

	offset := (query.Page - 1) * query.Limit
	rows, err := c.db.QueryContext(
		ctx,
		`SELECT id, job_id, queue, tenant_id, endpoint, attempt, status, http_status_code, response_time_ms, error_message, created_at
		 FROM delivery_records `+where+` ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		append(args, query.Limit, offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query delivery records: %w", err)
	}
	defer rows.Close()

	records := make([]models.DeliveryRecord, 0)
	for rows.Next() {
		var rec models.DeliveryRecord
		if err := rows.Scan(
			&rec.ID, &rec.JobID, &rec.Queue, &rec.TenantID, &rec.Endpoint, &rec.Attempt,
			&rec.Status, &rec.HTTPStatusCode, &rec.ResponseTimeMs, &rec.ErrorMessage, &rec.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan delivery record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate delivery records: %w", err)
	}
	return records, total, nil
}

// DeleteDeliveryRecordsBefore purges audit rows older than the cutoff and
// reports how many were removed.
func (c *MySQLClient) DeleteDeliveryRecordsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := c.db.ExecContext(ctx, `DELETE FROM delivery_records WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge delivery records: %w", err)
	}
	purged, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge delivery records rows affected: %w", err)
	}
	return purged, nil
}
