package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/apperr"
	"github.com/abdulwedud33/intern-finder-v2-sub000/pkg/models"
)

const interviewColumns = `id, application_id, intern_id, job_id, company_id, interviewer_id, date, duration, type, location, notes, status, feedback, outcome, started_at, completed_at, cancelled_at, cancelled_by, created, updated`

// overlapClause matches live interviews of intern ? whose slot intersects
// [? , ?) in unix millis.
const overlapClause = `intern_id = ? AND status <> 'cancelled' AND date < ? AND date + duration * 60000 > ?`

// CreateInterview inserts a scheduled interview. The partial unique indexes
// on (application_id) and (intern_id, date) guard exact collisions; with
// overlap the insert is additionally conditioned on no intersecting slot,
// in the same statement.
func (r *SQLiteRepo) CreateInterview(ctx context.Context, iv *models.Interview, overlap bool) (int64, error) {
	if iv == nil {
		return 0, fmt.Errorf("interview is nil")
	}

	now := r.now()
	iv.CreatedAt, iv.UpdatedAt = now, now
	fb, err := encodeFeedback(iv.Feedback)
	if err != nil {
		return 0, err
	}

	start := toMillis(iv.Date)
	end := toMillis(iv.End())
	args := []any{iv.ApplicationID, iv.InternID, iv.JobID, iv.CompanyID, iv.InterviewerID, start, iv.Duration, iv.Type, iv.Location, iv.Notes, iv.Status, fb, iv.Outcome, toMillis(now), toMillis(now)}

	const cols = `(application_id, intern_id, job_id, company_id, interviewer_id, date, duration, type, location, notes, status, feedback, outcome, created, updated)`
	q := `INSERT INTO interviews ` + cols + ` VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if overlap {
		q = `INSERT INTO interviews ` + cols + ` SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
			WHERE NOT EXISTS (SELECT 1 FROM interviews WHERE ` + overlapClause + `)`
		args = append(args, iv.InternID, end, start)
	}

	res, err := r.conn.Exec(ctx, q, args...)
	if err != nil {
		return 0, r.interviewConstraintError(err, iv)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, apperr.Newf(apperr.CodeSchedulingConflict, "intern %d already has an interview overlapping %s", iv.InternID, iv.Date.Format(time.RFC3339))
	}
	return res.LastInsertId()
}

func (r *SQLiteRepo) interviewConstraintError(err error, iv *models.Interview) error {
	msg, ok := uniqueViolation(err)
	if !ok {
		return fmt.Errorf("write interview: %w", err)
	}
	if violates(msg, "application_id") {
		return apperr.Newf(apperr.CodeSchedulingConflict, "application %d already has an active interview", iv.ApplicationID)
	}
	return apperr.Newf(apperr.CodeSchedulingConflict, "intern %d already has an interview at %s", iv.InternID, iv.Date.Format(time.RFC3339))
}

func (r *SQLiteRepo) GetInterview(ctx context.Context, id int64) (*models.Interview, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+interviewColumns+` FROM interviews WHERE id = ?`, id)
	return oneInterview(row)
}

func (r *SQLiteRepo) FindActiveInterviewByApplication(ctx context.Context, applicationID int64) (*models.Interview, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+interviewColumns+` FROM interviews WHERE application_id = ? AND status <> 'cancelled' LIMIT 1`, applicationID)
	return oneInterview(row)
}

func (r *SQLiteRepo) FindInternConflict(ctx context.Context, internID int64, start, end time.Time, overlap bool, excludeID int64) (*models.Interview, error) {
	var row *sql.Row
	if overlap {
		row = r.conn.QueryRow(ctx, `SELECT `+interviewColumns+` FROM interviews WHERE `+overlapClause+` AND id <> ? ORDER BY date LIMIT 1`,
			internID, toMillis(end), toMillis(start), excludeID)
	} else {
		row = r.conn.QueryRow(ctx, `SELECT `+interviewColumns+` FROM interviews WHERE intern_id = ? AND status <> 'cancelled' AND date = ? AND id <> ? LIMIT 1`,
			internID, toMillis(start), excludeID)
	}
	return oneInterview(row)
}

func oneInterview(row *sql.Row) (*models.Interview, error) {
	iv, err := scanInterview(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan interview: %w", err)
	}
	return iv, nil
}

func scanInterview(s rowScanner) (*models.Interview, error) {
	var (
		iv                            models.Interview
		date, created, updated        int64
		feedback                      sql.NullString
		started, completed, cancelled sql.NullInt64
		cancelledBy                   sql.NullInt64
	)
	if err := s.Scan(&iv.ID, &iv.ApplicationID, &iv.InternID, &iv.JobID, &iv.CompanyID, &iv.InterviewerID, &date, &iv.Duration, &iv.Type, &iv.Location, &iv.Notes, &iv.Status, &feedback, &iv.Outcome, &started, &completed, &cancelled, &cancelledBy, &created, &updated); err != nil {
		return nil, err
	}
	iv.Date = fromMillis(date)
	iv.CreatedAt = fromMillis(created)
	iv.UpdatedAt = fromMillis(updated)
	iv.StartedAt = nullTime(started)
	iv.CompletedAt = nullTime(completed)
	iv.CancelledAt = nullTime(cancelled)
	if cancelledBy.Valid {
		v := cancelledBy.Int64
		iv.CancelledBy = &v
	}
	if feedback.Valid && feedback.String != "" {
		var fb models.Feedback
		if err := json.Unmarshal([]byte(feedback.String), &fb); err != nil {
			return nil, fmt.Errorf("decode feedback: %w", err)
		}
		iv.Feedback = &fb
	}
	return &iv, nil
}

func encodeFeedback(fb *models.Feedback) (any, error) {
	if fb == nil {
		return nil, nil
	}
	b, err := json.Marshal(fb)
	if err != nil {
		return nil, fmt.Errorf("encode feedback: %w", err)
	}
	return string(b), nil
}

func (r *SQLiteRepo) ListInterviews(ctx context.Context, f models.InterviewFilter) ([]models.Interview, error) {
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
	if f.ApplicationID > 0 {
		where = append(where, "application_id = ?")
		args = append(args, f.ApplicationID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}

	q := `SELECT ` + interviewColumns + ` FROM interviews`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY date ASC, id ASC LIMIT ? OFFSET ?`
	args = append(args, f.Limit, f.Offset)

	rows, err := r.conn.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list interviews: %w", err)
	}
	defer rows.Close()

	var out []models.Interview
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan interview: %w", err)
		}
		out = append(out, *iv)
	}
	return out, rows.Err()
}

// UpdateInterview persists status, feedback, outcome and lifecycle stamps,
// provided the stored status is still from. Date and duration only change
// through RescheduleInterview.
func (r *SQLiteRepo) UpdateInterview(ctx context.Context, iv *models.Interview, from models.InterviewStatus) error {
	if iv == nil {
		return fmt.Errorf("interview is nil")
	}
	fb, err := encodeFeedback(iv.Feedback)
	if err != nil {
		return err
	}
	iv.UpdatedAt = r.now()
	res, err := r.conn.Exec(ctx, `UPDATE interviews SET status = ?, feedback = ?, outcome = ?, location = ?, notes = ?, started_at = ?, completed_at = ?, cancelled_at = ?, cancelled_by = ?, updated = ? WHERE id = ? AND status = ?`,
		iv.Status, fb, iv.Outcome, iv.Location, iv.Notes, millisOrNil(iv.StartedAt), millisOrNil(iv.CompletedAt), millisOrNil(iv.CancelledAt), int64OrNil(iv.CancelledBy), toMillis(iv.UpdatedAt), iv.ID, from)
	if err != nil {
		return r.interviewConstraintError(err, iv)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return r.staleInterview(ctx, iv.ID, from)
	}
	return nil
}

// staleInterview explains a guarded update that matched no row.
func (r *SQLiteRepo) staleInterview(ctx context.Context, id int64, from models.InterviewStatus) error {
	var current models.InterviewStatus
	err := r.conn.QueryRow(ctx, `SELECT status FROM interviews WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.Newf(apperr.CodeInterviewNotFound, "interview %d not found", id)
	}
	if err != nil {
		return fmt.Errorf("read interview status: %w", err)
	}
	if current != from {
		return apperr.Newf(apperr.CodeInvalidTransition, "interview %d is %s, not %s", id, current, from)
	}
	return nil
}

// RescheduleInterview moves the interview to iv.Date/iv.Duration and sets
// iv.Status when the stored status is still from. The conflict check ignores
// the interview itself.
func (r *SQLiteRepo) RescheduleInterview(ctx context.Context, iv *models.Interview, from models.InterviewStatus, overlap bool) error {
	if iv == nil {
		return fmt.Errorf("interview is nil")
	}
	iv.UpdatedAt = r.now()
	start := toMillis(iv.Date)
	args := []any{start, iv.Duration, iv.Status, toMillis(iv.UpdatedAt), iv.ID, from}
	q := `UPDATE interviews SET date = ?, duration = ?, status = ?, updated = ? WHERE id = ? AND status = ?`
	if overlap {
		q += ` AND NOT EXISTS (SELECT 1 FROM interviews o WHERE o.id <> ? AND o.intern_id = ? AND o.status <> 'cancelled' AND o.date < ? AND o.date + o.duration * 60000 > ?)`
		args = append(args, iv.ID, iv.InternID, toMillis(iv.End()), start)
	}

	res, err := r.conn.Exec(ctx, q, args...)
	if err != nil {
		return r.interviewConstraintError(err, iv)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if err := r.staleInterview(ctx, iv.ID, from); err != nil {
			return err
		}
		return apperr.Newf(apperr.CodeSchedulingConflict, "intern %d already has an interview overlapping %s", iv.InternID, iv.Date.Format(time.RFC3339))
	}
	return nil
}

func (r *SQLiteRepo) DeleteInterviewsByApplication(ctx context.Context, applicationID int64) error {
	if _, err := r.conn.Exec(ctx, `DELETE FROM interviews WHERE application_id = ?`, applicationID); err != nil {
		return fmt.Errorf("delete interviews: %w", err)
	}
	return nil
}
