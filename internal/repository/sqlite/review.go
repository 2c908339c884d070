package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/apperr"
	"github.com/abdulwedud33/intern-finder-v2-sub000/pkg/models"
)

const reviewColumns = `id, reviewer_id, target_id, target_model, direction, job_id, rating, content, status, created, updated`

func (r *SQLiteRepo) FindReviewByKey(ctx context.Context, reviewerID, targetID int64, key *string) (*models.Review, error) {
	if key == nil {
		return nil, nil
	}
	row := r.conn.QueryRow(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE reviewer_id = ? AND target_id = ? AND dedupe_key = ?`, reviewerID, targetID, *key)
	return oneReview(row)
}

func (r *SQLiteRepo) InsertReview(ctx context.Context, rv *models.Review, key *string) (int64, error) {
	if rv == nil {
		return 0, fmt.Errorf("review is nil")
	}
	now := r.now()
	rv.CreatedAt, rv.UpdatedAt = now, now

	res, err := r.conn.Exec(ctx, `INSERT INTO reviews (reviewer_id, target_id, target_model, direction, job_id, dedupe_key, rating, content, status, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rv.ReviewerID, rv.TargetID, rv.TargetModel, rv.Direction, int64OrNil(rv.JobID), stringOrNil(key), rv.Rating, rv.Content, rv.Status, toMillis(now), toMillis(now))
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return 0, apperr.Newf(apperr.CodeDuplicateReview, "reviewer %d already reviewed %d", rv.ReviewerID, rv.TargetID)
		}
		return 0, fmt.Errorf("insert review: %w", err)
	}
	return res.LastInsertId()
}

// UpsertReview relies on the (reviewer_id, target_id, dedupe_key) unique
// index. A nil key never collides, so the row is always inserted.
func (r *SQLiteRepo) UpsertReview(ctx context.Context, rv *models.Review, key *string) (*models.Review, error) {
	if rv == nil {
		return nil, fmt.Errorf("review is nil")
	}
	now := toMillis(r.now())

	row := r.conn.QueryRow(ctx, `INSERT INTO reviews (reviewer_id, target_id, target_model, direction, job_id, dedupe_key, rating, content, status, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(reviewer_id, target_id, dedupe_key) DO UPDATE SET rating = excluded.rating, content = excluded.content, status = CASE WHEN reviews.status = 'rejected' THEN 'rejected' ELSE excluded.status END, updated = excluded.updated
		RETURNING `+reviewColumns,
		rv.ReviewerID, rv.TargetID, rv.TargetModel, rv.Direction, int64OrNil(rv.JobID), stringOrNil(key), rv.Rating, rv.Content, rv.Status, now, now)
	stored, err := scanReview(row)
	if err != nil {
		return nil, fmt.Errorf("upsert review: %w", err)
	}
	return stored, nil
}

func (r *SQLiteRepo) GetReview(ctx context.Context, id int64) (*models.Review, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = ?`, id)
	return oneReview(row)
}

// ListReviewsByTarget returns the target's reviews newest first. An empty
// status returns every status.
func (r *SQLiteRepo) ListReviewsByTarget(ctx context.Context, targetID int64, status models.ReviewStatus) ([]models.Review, error) {
	q := `SELECT ` + reviewColumns + ` FROM reviews WHERE target_id = ?`
	args := []any{targetID}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY updated DESC, id DESC`

	rows, err := r.conn.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var out []models.Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		out = append(out, *rv)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) ApprovedRatings(ctx context.Context, targetID int64, model models.TargetModel) ([]int, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT rating FROM reviews WHERE target_id = ? AND target_model = ? AND status = 'approved'`, targetID, model)
	if err != nil {
		return nil, fmt.Errorf("list approved ratings: %w", err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) UpdateReviewStatus(ctx context.Context, id int64, status models.ReviewStatus) error {
	res, err := r.conn.Exec(ctx, `UPDATE reviews SET status = ?, updated = ? WHERE id = ?`, status, toMillis(r.now()), id)
	if err != nil {
		return fmt.Errorf("update review status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.Newf(apperr.CodeReviewNotFound, "review %d not found", id)
	}
	return nil
}

func (r *SQLiteRepo) DeleteReview(ctx context.Context, id int64) error {
	if _, err := r.conn.Exec(ctx, `DELETE FROM reviews WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	return nil
}

func oneReview(row *sql.Row) (*models.Review, error) {
	rv, err := scanReview(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}
	return rv, nil
}

func scanReview(s rowScanner) (*models.Review, error) {
	var rv models.Review
	var jobID sql.NullInt64
	var created, updated int64
	if err := s.Scan(&rv.ID, &rv.ReviewerID, &rv.TargetID, &rv.TargetModel, &rv.Direction, &jobID, &rv.Rating, &rv.Content, &rv.Status, &created, &updated); err != nil {
		return nil, err
	}
	if jobID.Valid {
		v := jobID.Int64
		rv.JobID = &v
	}
	rv.CreatedAt = fromMillis(created)
	rv.UpdatedAt = fromMillis(updated)
	return &rv, nil
}

func stringOrNil(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

// Rating aggregates

func (r *SQLiteRepo) SaveAggregate(ctx context.Context, a *models.RatingAggregate) error {
	if a == nil {
		return fmt.Errorf("aggregate is nil")
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = r.now()
	}
	_, err := r.conn.Exec(ctx, `INSERT INTO rating_aggregates (target_id, target_model, average_rating, review_count, updated) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(target_id, target_model) DO UPDATE SET average_rating = excluded.average_rating, review_count = excluded.review_count, updated = excluded.updated`,
		a.TargetID, a.TargetModel, a.AverageRating, a.ReviewCount, toMillis(a.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save aggregate: %w", err)
	}
	return nil
}

func (r *SQLiteRepo) GetAggregate(ctx context.Context, targetID int64) (*models.RatingAggregate, error) {
	row := r.conn.QueryRow(ctx, `SELECT target_id, target_model, average_rating, review_count, updated FROM rating_aggregates WHERE target_id = ? ORDER BY updated DESC LIMIT 1`, targetID)
	var a models.RatingAggregate
	var updated int64
	if err := row.Scan(&a.TargetID, &a.TargetModel, &a.AverageRating, &a.ReviewCount, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get aggregate: %w", err)
	}
	a.UpdatedAt = fromMillis(updated)
	return &a, nil
}
