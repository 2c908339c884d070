// Package storetest opens migrated in-memory stores seeded with a small
// directory fixture for service and transport tests.
package storetest

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	dbfs "github.com/abdulwedud33/intern-finder-v2-sub000/db"
	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/db"
	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/repository/sqlite"
	"github.com/abdulwedud33/intern-finder-v2-sub000/pkg/models"
)

// Fixture ids.
const (
	CompanyA int64 = 1
	CompanyB int64 = 2
	InternX  int64 = 101
	InternY  int64 = 102

	OpenJob    int64 = 10 // published, owned by CompanyA
	SecondJob  int64 = 11 // published, owned by CompanyA
	ClosedJob  int64 = 12 // closed, owned by CompanyB
	ExpiredJob int64 = 13 // published with a past deadline, owned by CompanyB
)

// Clock is a settable time source.
type Clock struct {
	now time.Time
}

func NewClock(t time.Time) *Clock { return &Clock{now: t} }

func (c *Clock) Now() time.Time { return c.now }

func (c *Clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// OpenDB returns a fresh named in-memory database with all migrations
// applied. The database is closed when the test ends.
func OpenDB(t testing.TB) *db.DB {
	t.Helper()
	ctx := context.Background()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	d, err := db.New(ctx, "file:"+name+"?mode=memory&cache=shared", nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	if err := db.Migrate(ctx, d, dbfs.Migrations); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return d
}

// Open returns a repository over OpenDB with the fixture loaded.
func Open(t testing.TB, clock *Clock) *sqlite.SQLiteRepo {
	t.Helper()
	repo, _ := OpenWithDB(t, clock)
	return repo
}

// OpenWithDB is Open that also hands back the underlying database.
func OpenWithDB(t testing.TB, clock *Clock) (*sqlite.SQLiteRepo, *db.DB) {
	t.Helper()
	ctx := context.Background()

	d := OpenDB(t)
	repo := sqlite.New(d, nil).WithClock(clock.Now)
	past := clock.Now().Add(-24 * time.Hour)

	actors := []models.Actor{
		{ID: CompanyA, Role: models.RoleCompany},
		{ID: CompanyB, Role: models.RoleCompany},
		{ID: InternX, Role: models.RoleIntern},
		{ID: InternY, Role: models.RoleIntern},
	}
	for _, a := range actors {
		if err := repo.PutActor(ctx, a, ""); err != nil {
			t.Fatalf("seed actor: %v", err)
		}
	}
	jobs := []models.Job{
		{ID: OpenJob, CompanyID: CompanyA, Title: "Backend Intern", Status: models.JobPublished},
		{ID: SecondJob, CompanyID: CompanyA, Title: "Data Intern", Status: models.JobPublished},
		{ID: ClosedJob, CompanyID: CompanyB, Title: "Firmware Intern", Status: models.JobClosed},
		{ID: ExpiredJob, CompanyID: CompanyB, Title: "QA Intern", Status: models.JobPublished, Deadline: &past},
	}
	for _, j := range jobs {
		if err := repo.PutJob(ctx, j); err != nil {
			t.Fatalf("seed job: %v", err)
		}
	}
	return repo, d
}

// Terminate records a concluded employment between intern and company.
func Terminate(t testing.TB, repo *sqlite.SQLiteRepo, internID, companyID int64) {
	t.Helper()
	e := models.Employment{InternID: internID, CompanyID: companyID, Status: models.EmploymentTerminated}
	if err := repo.PutEmployment(context.Background(), e); err != nil {
		t.Fatalf("seed employment: %v", err)
	}
}

// Stale serves a held snapshot the next time an application or interview
// is read, as if another writer committed between that read and the write
// that follows it. Everything else goes to the wrapped repository.
type Stale struct {
	*sqlite.SQLiteRepo

	mu   sync.Mutex
	apps map[int64]models.Application
	ivs  map[int64]models.Interview
}

func NewStale(repo *sqlite.SQLiteRepo) *Stale {
	return &Stale{
		SQLiteRepo: repo,
		apps:       make(map[int64]models.Application),
		ivs:        make(map[int64]models.Interview),
	}
}

// HoldApplication makes the next GetApplication(a.ID) return a copy of a.
func (s *Stale) HoldApplication(a models.Application) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apps[a.ID] = a
}

// HoldInterview makes the next GetInterview(iv.ID) return a copy of iv.
func (s *Stale) HoldInterview(iv models.Interview) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ivs[iv.ID] = iv
}

func (s *Stale) GetApplication(ctx context.Context, id int64) (*models.Application, error) {
	s.mu.Lock()
	a, ok := s.apps[id]
	delete(s.apps, id)
	s.mu.Unlock()
	if ok {
		return &a, nil
	}
	return s.SQLiteRepo.GetApplication(ctx, id)
}

func (s *Stale) GetInterview(ctx context.Context, id int64) (*models.Interview, error) {
	s.mu.Lock()
	iv, ok := s.ivs[id]
	delete(s.ivs, id)
	s.mu.Unlock()
	if ok {
		return &iv, nil
	}
	return s.SQLiteRepo.GetInterview(ctx, id)
}
