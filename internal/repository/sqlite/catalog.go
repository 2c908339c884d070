package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/abdulwedud33/intern-finder-v2-sub000/pkg/models"
)

// Directory tables are owned by external collaborators. The read methods
// back the core; the Put* methods exist for fixtures and the seed command.

func (r *SQLiteRepo) GetJob(ctx context.Context, id int64) (*models.Job, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, company_id, title, status, deadline FROM jobs WHERE id = ?`, id)
	var j models.Job
	var deadline sql.NullInt64
	if err := row.Scan(&j.ID, &j.CompanyID, &j.Title, &j.Status, &deadline); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get job %d: %w", id, err)
	}
	j.Deadline = nullTime(deadline)
	return &j, nil
}

func (r *SQLiteRepo) GetActor(ctx context.Context, id int64) (*models.Actor, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, role FROM actors WHERE id = ?`, id)
	var a models.Actor
	if err := row.Scan(&a.ID, &a.Role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get actor %d: %w", id, err)
	}
	return &a, nil
}

func (r *SQLiteRepo) GetEmployment(ctx context.Context, internID, companyID int64) (*models.Employment, error) {
	row := r.conn.QueryRow(ctx, `SELECT intern_id, company_id, status FROM employments WHERE intern_id = ? AND company_id = ?`, internID, companyID)
	var e models.Employment
	if err := row.Scan(&e.InternID, &e.CompanyID, &e.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get employment: %w", err)
	}
	return &e, nil
}

func (r *SQLiteRepo) PutActor(ctx context.Context, a models.Actor, name string) error {
	if !a.Role.Valid() {
		return fmt.Errorf("actor %d: invalid role %q", a.ID, a.Role)
	}
	_, err := r.conn.Exec(ctx, `INSERT INTO actors (id, role, name, created) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET role = excluded.role, name = excluded.name`,
		a.ID, a.Role, name, toMillis(r.now()))
	if err != nil {
		return fmt.Errorf("put actor %d: %w", a.ID, err)
	}
	return nil
}

func (r *SQLiteRepo) PutJob(ctx context.Context, j models.Job) error {
	_, err := r.conn.Exec(ctx, `INSERT INTO jobs (id, company_id, title, status, deadline, created) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET company_id = excluded.company_id, title = excluded.title, status = excluded.status, deadline = excluded.deadline`,
		j.ID, j.CompanyID, j.Title, j.Status, millisOrNil(j.Deadline), toMillis(r.now()))
	if err != nil {
		return fmt.Errorf("put job %d: %w", j.ID, err)
	}
	return nil
}

func (r *SQLiteRepo) PutEmployment(ctx context.Context, e models.Employment) error {
	_, err := r.conn.Exec(ctx, `INSERT INTO employments (intern_id, company_id, status, updated) VALUES (?, ?, ?, ?)
		ON CONFLICT(intern_id, company_id) DO UPDATE SET status = excluded.status, updated = excluded.updated`,
		e.InternID, e.CompanyID, e.Status, toMillis(r.now()))
	if err != nil {
		return fmt.Errorf("put employment: %w", err)
	}
	return nil
}
