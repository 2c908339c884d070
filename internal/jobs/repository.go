package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/db"
)

type Repository struct {
	db    *db.DB
	clock func() time.Time
}

func NewRepository(d *db.DB) *Repository { return &Repository{db: d, clock: time.Now} }

// WithClock replaces the time source used for scheduling.
func (r *Repository) WithClock(clock func() time.Time) *Repository {
	r.clock = clock
	return r
}

func (r *Repository) now() time.Time { return r.clock().UTC() }

// Enqueue inserts a task and returns its id
func (r *Repository) Enqueue(ctx context.Context, t *Task) (int64, error) {
	if t.MaxAttempts == 0 {
		t.MaxAttempts = 5
	}
	if len(t.Payload) == 0 {
		t.Payload = json.RawMessage(`{}`)
	}
	now := r.now()
	if t.ScheduledAt.IsZero() {
		t.ScheduledAt = now
	}
	res, err := r.db.Exec(ctx, `INSERT INTO tasks(type, payload, status, attempts, max_attempts, priority, scheduled_at, created, updated)
		VALUES(?,?,?,?,?,?,?,?,?)`,
		t.Type, string(t.Payload), "queued", t.Attempts, t.MaxAttempts, t.Priority, t.ScheduledAt.UnixMilli(), now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("enqueue failed: %w", err)
	}
	return res.LastInsertId()
}

// Claim marks the next ready task as running and returns it. It returns
// (nil, nil) when nothing is ready. Two workers never claim the same task.
func (r *Repository) Claim(ctx context.Context) (*Task, error) {
	now := r.now().UnixMilli()
	row := r.db.QueryRow(ctx, `UPDATE tasks SET status = 'running', updated = ?
		WHERE id = (
			SELECT id FROM tasks
			WHERE status IN ('queued', 'retry')
			  AND (next_try_at IS NULL OR next_try_at <= ?)
			  AND scheduled_at <= ?
			ORDER BY priority ASC, scheduled_at ASC, id ASC
			LIMIT 1)
		RETURNING id, type, payload, status, attempts, max_attempts, priority, scheduled_at, next_try_at, last_error, created, updated`,
		now, now, now)

	var (
		t         Task
		payload   string
		scheduled int64
		nextTry   sql.NullInt64
		lastError sql.NullString
		created   int64
		updated   int64
	)
	err := row.Scan(&t.ID, &t.Type, &payload, &t.Status, &t.Attempts, &t.MaxAttempts, &t.Priority,
		&scheduled, &nextTry, &lastError, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim task: %w", err)
	}
	t.Payload = json.RawMessage(payload)
	t.ScheduledAt = time.UnixMilli(scheduled).UTC()
	t.Created = time.UnixMilli(created).UTC()
	t.Updated = time.UnixMilli(updated).UTC()
	if nextTry.Valid {
		n := time.UnixMilli(nextTry.Int64).UTC()
		t.NextTryAt = &n
	}
	t.LastError = lastError.String
	return &t, nil
}

// ResetRunning returns tasks left running by a previous process to the
// retry state so they can be claimed again. Call it before any worker starts.
func (r *Repository) ResetRunning(ctx context.Context) (int64, error) {
	res, err := r.db.Exec(ctx, `UPDATE tasks SET status = 'retry', next_try_at = NULL, updated = ? WHERE status = 'running'`, r.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("reset running tasks: %w", err)
	}
	return res.RowsAffected()
}

// UpdateTask updates attempts, status, next_try_at, last_error
func (r *Repository) UpdateTask(ctx context.Context, t *Task) error {
	var nextTry any
	if t.NextTryAt != nil {
		nextTry = t.NextTryAt.UnixMilli()
	}
	_, err := r.db.Exec(ctx, `UPDATE tasks SET status = ?, attempts = ?, next_try_at = ?, last_error = ?, updated = ? WHERE id = ?`,
		t.Status, t.Attempts, nextTry, t.LastError, r.now().UnixMilli(), t.ID)
	if err != nil {
		return fmt.Errorf("update task %d: %w", t.ID, err)
	}
	return nil
}

// Complete removes a finished task.
func (r *Repository) Complete(ctx context.Context, id int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("complete task %d: %w", id, err)
	}
	return nil
}

// MoveToDeadLetter moves a task to dead_tasks and deletes the original
func (r *Repository) MoveToDeadLetter(ctx context.Context, t *Task) error {
	return r.db.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := r.db.Exec(ctx, `INSERT INTO dead_tasks(task_id, type, payload, attempts, last_error, failed_at) VALUES(?,?,?,?,?,?)`,
			t.ID, t.Type, string(t.Payload), t.Attempts, t.LastError, r.now().UnixMilli()); err != nil {
			return fmt.Errorf("insert dead task: %w", err)
		}
		if _, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = ?`, t.ID); err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		return nil
	})
}

// Counts reports pending and dead task totals.
func (r *Repository) Counts(ctx context.Context) (pending, dead int, err error) {
	err = r.db.QueryRow(ctx, `SELECT (SELECT COUNT(*) FROM tasks), (SELECT COUNT(*) FROM dead_tasks)`).Scan(&pending, &dead)
	if err != nil {
		return 0, 0, fmt.Errorf("count tasks: %w", err)
	}
	return pending, dead, nil
}
