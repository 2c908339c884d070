package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/apperr"
	"github.com/abdulwedud33/intern-finder-v2-sub000/pkg/models"
)

const applicationColumns = `id, job_id, company_id, intern_id, cover_letter, resume_ref, status, created, updated`

// CreateApplication stores the application together with its seeded status
// history. The (job_id, intern_id) unique constraint is the atomic guard
// against duplicate submissions.
func (r *SQLiteRepo) CreateApplication(ctx context.Context, a *models.Application) (int64, error) {
	if a == nil {
		return 0, fmt.Errorf("application is nil")
	}

	now := r.now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}

	var id int64
	err := r.conn.WithinTx(ctx, func(ctx context.Context) error {
		res, err := r.conn.Exec(ctx, `INSERT INTO applications (job_id, company_id, intern_id, cover_letter, resume_ref, status, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			a.JobID, a.CompanyID, a.InternID, a.CoverLetter, a.ResumeRef, a.Status, toMillis(a.CreatedAt), toMillis(a.UpdatedAt))
		if err != nil {
			if _, ok := uniqueViolation(err); ok {
				return apperr.Newf(apperr.CodeDuplicateApplication, "intern %d already applied to job %d", a.InternID, a.JobID)
			}
			return fmt.Errorf("insert application: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		for _, h := range a.StatusHistory {
			if err := r.insertStatusChange(ctx, id, h); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *SQLiteRepo) insertStatusChange(ctx context.Context, applicationID int64, h models.StatusChange) error {
	at := h.At
	if at.IsZero() {
		at = r.now()
	}
	_, err := r.conn.Exec(ctx, `INSERT INTO application_status_history (application_id, status, changed_by, reason, at) VALUES (?, ?, ?, ?, ?)`,
		applicationID, h.Status, h.ChangedBy, h.Reason, toMillis(at))
	if err != nil {
		return fmt.Errorf("insert status history: %w", err)
	}
	return nil
}

func (r *SQLiteRepo) GetApplication(ctx context.Context, id int64) (*models.Application, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = ?`, id)
	return r.scanApplicationWithHistory(ctx, row)
}

func (r *SQLiteRepo) FindApplication(ctx context.Context, jobID, internID int64) (*models.Application, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+applicationColumns+` FROM applications WHERE job_id = ? AND intern_id = ?`, jobID, internID)
	return r.scanApplicationWithHistory(ctx, row)
}

func (r *SQLiteRepo) scanApplicationWithHistory(ctx context.Context, row *sql.Row) (*models.Application, error) {
	a, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan application: %w", err)
	}
	if a.StatusHistory, err = r.statusHistory(ctx, a.ID); err != nil {
		return nil, err
	}
	return a, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(s rowScanner) (*models.Application, error) {
	var a models.Application
	var created, updated int64
	if err := s.Scan(&a.ID, &a.JobID, &a.CompanyID, &a.InternID, &a.CoverLetter, &a.ResumeRef, &a.Status, &created, &updated); err != nil {
		return nil, err
	}
	a.CreatedAt = fromMillis(created)
	a.UpdatedAt = fromMillis(updated)
	return &a, nil
}

func (r *SQLiteRepo) statusHistory(ctx context.Context, applicationID int64) ([]models.StatusChange, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT status, changed_by, reason, at FROM application_status_history WHERE application_id = ? ORDER BY id`, applicationID)
	if err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	defer rows.Close()

	var out []models.StatusChange
	for rows.Next() {
		var h models.StatusChange
		var at int64
		if err := rows.Scan(&h.Status, &h.ChangedBy, &h.Reason, &at); err != nil {
			return nil, err
		}
		h.At = fromMillis(at)
		out = append(out, h)
	}
	return out, rows.Err()
}

// ListApplications returns applications newest first. Status history is not
// loaded for listings.
func (r *SQLiteRepo) ListApplications(ctx context.Context, f models.ApplicationFilter) ([]models.Application, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	var where []string
	var args []any
	if f.CompanyID > 0 {
		where = append(where, "company_id = ?")
		args = append(args, f.CompanyID)
	}
	if f.InternID > 0 {
		where = append(where, "intern_id = ?")
		args = append(args, f.InternID)
	}
	if f.JobID > 0 {
		where = append(where, "job_id = ?")
		args = append(args, f.JobID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}

	q := `SELECT ` + applicationColumns + ` FROM applications`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, f.Limit, f.Offset)

	rows, err := r.conn.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var out []models.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// UpdateApplicationStatus moves the application from `from` to
// change.Status and appends the history row. It fails with
// apperr.CodeInvalidTransition when the stored status is no longer `from`.
func (r *SQLiteRepo) UpdateApplicationStatus(ctx context.Context, id int64, from models.ApplicationStatus, change models.StatusChange) error {
	if change.At.IsZero() {
		change.At = r.now()
	}
	return r.conn.WithinTx(ctx, func(ctx context.Context) error {
		res, err := r.conn.Exec(ctx, `UPDATE applications SET status = ?, updated = ? WHERE id = ? AND status = ?`,
			change.Status, toMillis(change.At), id, from)
		if err != nil {
			return fmt.Errorf("update application status: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			var current models.ApplicationStatus
			err := r.conn.QueryRow(ctx, `SELECT status FROM applications WHERE id = ?`, id).Scan(&current)
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.Newf(apperr.CodeApplicationNotFound, "application %d not found", id)
			}
			if err != nil {
				return fmt.Errorf("read application status: %w", err)
			}
			return apperr.Newf(apperr.CodeInvalidTransition, "application %d is %s, not %s", id, current, from)
		}
		return r.insertStatusChange(ctx, id, change)
	})
}

// DeleteApplication removes the application, its history and its interviews.
func (r *SQLiteRepo) DeleteApplication(ctx context.Context, id int64) error {
	return r.conn.WithinTx(ctx, func(ctx context.Context) error {
		if err := r.DeleteInterviewsByApplication(ctx, id); err != nil {
			return err
		}
		if _, err := r.conn.Exec(ctx, `DELETE FROM application_status_history WHERE application_id = ?`, id); err != nil {
			return fmt.Errorf("delete status history: %w", err)
		}
		if _, err := r.conn.Exec(ctx, `DELETE FROM applications WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete application: %w", err)
		}
		return nil
	})
}
