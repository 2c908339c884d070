package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/db"
	"github.com/abdulwedud33/intern-finder-v2-sub000/pkg/repository"
)

// SQLiteRepo implements repository interfaces using the internal DB wrapper.
type SQLiteRepo struct {
	conn   *db.DB
	logger *slog.Logger
	clock  func() time.Time
}

// Ensure SQLiteRepo implements the public interfaces.
var _ repository.Transactor = (*SQLiteRepo)(nil)
var _ repository.JobCatalog = (*SQLiteRepo)(nil)
var _ repository.ActorDirectory = (*SQLiteRepo)(nil)
var _ repository.EmploymentDirectory = (*SQLiteRepo)(nil)
var _ repository.ApplicationRepo = (*SQLiteRepo)(nil)
var _ repository.InterviewRepo = (*SQLiteRepo)(nil)
var _ repository.ReviewRepo = (*SQLiteRepo)(nil)
var _ repository.RatingRepo = (*SQLiteRepo)(nil)

func New(conn *db.DB, logger *slog.Logger) *SQLiteRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteRepo{conn: conn, logger: logger, clock: time.Now}
}

// WithClock replaces the time source used for created/updated stamps.
func (r *SQLiteRepo) WithClock(clock func() time.Time) *SQLiteRepo {
	r.clock = clock
	return r
}

func (r *SQLiteRepo) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.conn.WithinTx(ctx, fn)
}

func (r *SQLiteRepo) now() time.Time {
	return r.clock().UTC()
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

func nullTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

func millisOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return toMillis(*t)
}

func int64OrNil(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

// uniqueViolation reports whether err is a SQLite UNIQUE/PRIMARY KEY
// constraint failure and returns the driver message naming the columns.
func uniqueViolation(err error) (string, bool) {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return "", false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return se.Error(), true
	default:
		return "", false
	}
}

func violates(msg string, columns ...string) bool {
	for _, c := range columns {
		if !strings.Contains(msg, c) {
			return false
		}
	}
	return true
}
