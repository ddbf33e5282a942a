package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/formflux/formflux/internal/models"
)

// ErrDeadLetterNotFound is returned when a dead-letter entry is not found.
var ErrDeadLetterNotFound = errors.New("dead letter entry not found")

// UpsertDeadLetter inserts a dead-letter entry or, when the
// (event, trigger, action) tuple already exists, atomically increments its
// failure count and refreshes the last error. The original snapshots are
// kept: they belong to the first recorded failure. A repeat failure reopens
// a previously terminal entry to pending.
func (c *MySQLClient) UpsertDeadLetter(ctx context.Context, entry *models.DeadLetterEntry) error {
	if _, err := c.db.ExecContext(
		ctx,
		`INSERT INTO dead_letters
			(id, event_id, tenant_id, trigger_id, action_id, failure_count, last_error, event_snapshot, action_snapshot, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
		 ON DUPLICATE KEY UPDATE
			failure_count = failure_count + 1,
			last_error = VALUES(last_error),
			status = 'pending',
			updated_at = NOW()`,
		entry.ID,
		entry.EventID,
		entry.TenantID,
		entry.TriggerID,
		entry.ActionID,
		entry.FailureCount,
		entry.LastError,
		string(entry.EventSnapshot),
		string(entry.ActionSnapshot),
		entry.Status,
	); err != nil {
		return fmt.Errorf("upsert dead letter: %w", err)
	}
	return nil
}

// GetDeadLetterByKey fetches the entry for one (event, trigger, action) tuple.
func (c *MySQLClient) GetDeadLetterByKey(ctx context.Context, eventID, triggerID, actionID string) (*models.DeadLetterEntry, error) {
	row := c.db.QueryRowContext(
		ctx,
		deadLetterSelect+` WHERE event_id = ? AND trigger_id = ? AND action_id = ?`,
		eventID, triggerID, actionID,
	)
	return scanDeadLetter(row)
}

// GetDeadLetter fetches one entry by id.
func (c *MySQLClient) GetDeadLetter(ctx context.Context, entryID string) (*models.DeadLetterEntry, error) {
	row := c.db.QueryRowContext(ctx, deadLetterSelect+` WHERE id = ?`, entryID)
	return scanDeadLetter(row)
}

// ListDeadLetters returns entries matching the filters with a total count.
func (c *MySQLClient) ListDeadLetters(ctx context.Context, query models.ListDeadLettersQuery) ([]models.DeadLetterEntry, int64, error) {
	criteria := make([]string, 0, 2)
	args := make([]interface{}, 0, 4)

	if query.TenantID != "" {
		criteria = append(criteria, "tenant_id = ?")
		args = append(args, query.TenantID)
	}
	if query.Status != "" {
		criteria = append(criteria, "status = ?")
		args = append(args, query.Status)
	}

	where := ""
	if len(criteria) > 0 {
		where = "WHERE " + strings.Join(criteria, " AND ")
	}

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM dead_letters %s", where)
	if err := c.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count dead letters: %w", err)
	}

	offset := (query.Page - 1) * query.Limit
	argsWithPagination := append(append([]interface{}{}, args...), query.Limit, offset)

	rows, err := c.db.QueryContext(
		ctx,
		fmt.Sprintf(`%s %s ORDER BY updated_at DESC LIMIT ? OFFSET ?`, deadLetterSelect, where),
		argsWithPagination...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query dead letters: %w", err)
	}
	defer rows.Close()

	entries := make([]models.DeadLetterEntry, 0)
	for rows.Next() {
		entry, err := scanDeadLetterRows(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate dead letters: %w", err)
	}

	return entries, total, nil
}

// ListPendingDeadLetters returns up to limit pending entries, oldest first.
// Used by the scheduled replay sweep.
func (c *MySQLClient) ListPendingDeadLetters(ctx context.Context, limit int) ([]models.DeadLetterEntry, error) {
	rows, err := c.db.QueryContext(
		ctx,
		deadLetterSelect+` WHERE status = ? ORDER BY updated_at ASC LIMIT ?`,
		models.DeadLetterStatusPending,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query pending dead letters: %w", err)
	}
	defer rows.Close()

	entries := make([]models.DeadLetterEntry, 0, limit)
	for rows.Next() {
		entry, err := scanDeadLetterRows(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending dead letters: %w", err)
	}

	return entries, nil
}

// UpdateDeadLetterStatus moves an entry to a new lifecycle status.
func (c *MySQLClient) UpdateDeadLetterStatus(ctx context.Context, entryID string, status models.DeadLetterStatus) error {
	res, err := c.db.ExecContext(
		ctx,
		`UPDATE dead_letters SET status = ?, updated_at = NOW() WHERE id = ?`,
		status, entryID,
	)
	if err != nil {
		return fmt.Errorf("update dead letter status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrDeadLetterNotFound
	}
	return nil
}

// RecordReplayFailure atomically increments the failure count after a failed
// replay and moves the entry to failed once maxFailures is reached.
func (c *MySQLClient) RecordReplayFailure(ctx context.Context, entryID, lastError string, maxFailures int) error {
	res, err := c.db.ExecContext(
		ctx,
		`UPDATE dead_letters
		 SET status = IF(failure_count + 1 >= ?, 'failed', 'pending'),
		     failure_count = failure_count + 1,
		     last_error = ?,
		     updated_at = NOW()
		 WHERE id = ?`,
		maxFailures,
		lastError,
		entryID,
	)
	if err != nil {
		return fmt.Errorf("record replay failure: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrDeadLetterNotFound
	}
	return nil
}

// DeleteDeadLetter removes an entry. Operator use only.
func (c *MySQLClient) DeleteDeadLetter(ctx context.Context, entryID string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM dead_letters WHERE id = ?`, entryID)
	if err != nil {
		return fmt.Errorf("delete dead letter: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrDeadLetterNotFound
	}
	return nil
}

const deadLetterSelect = `SELECT id, event_id, tenant_id, trigger_id, action_id, failure_count, last_error, event_snapshot, action_snapshot, status, created_at, updated_at
	FROM dead_letters`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDeadLetter(row *sql.Row) (*models.DeadLetterEntry, error) {
	entry, err := scanInto(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeadLetterNotFound
		}
		return nil, err
	}
	return entry, nil
}

func scanDeadLetterRows(rows *sql.Rows) (*models.DeadLetterEntry, error) {
	return scanInto(rows)
}

func scanInto(s rowScanner) (*models.DeadLetterEntry, error) {
	var entry models.DeadLetterEntry
	var eventSnapshot, actionSnapshot string
	if err := s.Scan(
		&entry.ID,
		&entry.EventID,
		&entry.TenantID,
		&entry.TriggerID,
		&entry.ActionID,
		&entry.FailureCount,
		&entry.LastError,
		&eventSnapshot,
		&actionSnapshot,
		&entry.Status,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan dead letter: %w", err)
	}
	entry.EventSnapshot = []byte(eventSnapshot)
	entry.ActionSnapshot = []byte(actionSnapshot)
	return &entry, nil
}
