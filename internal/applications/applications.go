// Package applications owns the application lifecycle: submission, the
// status matrix and per-role visibility.
package applications

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/apperr"
	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/config"
	"github.com/abdulwedud33/intern-finder-v2-sub000/pkg/models"
	"github.com/abdulwedud33/intern-finder-v2-sub000/pkg/repository"
)

// Store is the storage the service needs.
type Store interface {
	repository.Transactor
	repository.JobCatalog
	repository.ApplicationRepo
}

var transitions = map[models.ApplicationStatus][]models.ApplicationStatus{
	models.ApplicationUnderReview: {models.ApplicationInterview, models.ApplicationRejected},
	models.ApplicationInterview:   {models.ApplicationAccepted, models.ApplicationRejected},
}

// CanTransition reports whether the status matrix allows from -> to.
func CanTransition(from, to models.ApplicationStatus) bool {
	return slices.Contains(transitions[from], to)
}

type Service struct {
	store  Store
	cfg    config.ApplicationsConfig
	logger *slog.Logger
	clock  func() time.Time
}

func New(store Store, cfg config.ApplicationsConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 500
	}
	return &Service{store: store, cfg: cfg, logger: logger, clock: time.Now}
}

// WithClock replaces the time source used for deadlines and history stamps.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

func (s *Service) now() time.Time {
	return s.clock().UTC()
}

// Submit creates an application by an intern for a job. The (job, intern)
// pair is unique; a concurrent duplicate loses at the storage constraint.
func (s *Service) Submit(ctx context.Context, actor models.Actor, jobID int64, coverLetter, resumeRef string) (*models.Application, error) {
	if !actor.IsIntern() {
		return nil, apperr.New(apperr.CodeRoleViolation, "only interns can apply to jobs")
	}

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "load job", err)
	}
	if job == nil {
		return nil, apperr.Newf(apperr.CodeJobNotFound, "job %d not found", jobID)
	}
	now := s.now()
	if s.cfg.RequireOpenJob && !job.AcceptsApplications(now) {
		return nil, apperr.Newf(apperr.CodeJobClosed, "job %d is not accepting applications", jobID)
	}

	existing, err := s.store.FindApplication(ctx, jobID, actor.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "check existing application", err)
	}
	if existing != nil {
		return nil, apperr.Newf(apperr.CodeDuplicateApplication, "you have already applied to job %d", jobID)
	}

	a := &models.Application{
		JobID:       job.ID,
		CompanyID:   job.CompanyID,
		InternID:    actor.ID,
		CoverLetter: strings.TrimSpace(coverLetter),
		ResumeRef:   resumeRef,
		Status:      models.ApplicationUnderReview,
		StatusHistory: []models.StatusChange{
			{Status: models.ApplicationUnderReview, ChangedBy: actor.ID, At: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	id, err := s.store.CreateApplication(ctx, a)
	if err != nil {
		return nil, wrapStore(err, "store application")
	}
	a.ID = id

	s.logger.Info("application submitted",
		slog.Int64("application_id", id),
		slog.Int64("job_id", jobID),
		slog.Int64("intern_id", actor.ID))
	return a, nil
}

// Transition moves an application to newStatus on behalf of the company
// owning its job. The read, the matrix check and the write share one
// transaction.
func (s *Service) Transition(ctx context.Context, applicationID, actingCompanyID int64, newStatus models.ApplicationStatus, reason string) (*models.Application, error) {
	if !newStatus.Valid() {
		return nil, apperr.Validation("invalid status", map[string]string{"status": fmt.Sprintf("unknown status %q", newStatus)})
	}

	var from models.ApplicationStatus
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		a, err := s.load(ctx, applicationID)
		if err != nil {
			return err
		}

		job, err := s.store.GetJob(ctx, a.JobID)
		if err != nil {
			return apperr.Wrap(apperr.CodeInternal, "load job", err)
		}
		if job == nil {
			return apperr.Newf(apperr.CodeJobNotFound, "job %d not found", a.JobID)
		}
		if job.CompanyID != actingCompanyID {
			return apperr.New(apperr.CodeNotOwner, "not authorized to update this application")
		}
		if err := s.checkTransition(a, newStatus); err != nil {
			return err
		}

		from = a.Status
		change := models.StatusChange{Status: newStatus, ChangedBy: actingCompanyID, Reason: reason, At: s.now()}
		return wrapStore(s.store.UpdateApplicationStatus(ctx, a.ID, from, change), "update application status")
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("application status changed",
		slog.Int64("application_id", applicationID),
		slog.String("from", string(from)),
		slog.String("to", string(newStatus)),
		slog.Int64("by", actingCompanyID))

	return s.load(ctx, applicationID)
}

// Advance is the trusted entry used by the interview scheduler. It skips
// the ownership check but honors the status matrix. Re-entering the current
// status is a no-op. Callers inside a transaction pass its context.
func (s *Service) Advance(ctx context.Context, applicationID, actorID int64, newStatus models.ApplicationStatus, reason string) error {
	return s.store.WithinTx(ctx, func(ctx context.Context) error {
		a, err := s.load(ctx, applicationID)
		if err != nil {
			return err
		}
		if a.Status == newStatus {
			return nil
		}
		if err := s.checkTransition(a, newStatus); err != nil {
			return err
		}

		change := models.StatusChange{Status: newStatus, ChangedBy: actorID, Reason: reason, At: s.now()}
		if err := s.store.UpdateApplicationStatus(ctx, a.ID, a.Status, change); err != nil {
			return wrapStore(err, "advance application")
		}
		s.logger.Info("application advanced",
			slog.Int64("application_id", a.ID),
			slog.String("from", string(a.Status)),
			slog.String("to", string(newStatus)))
		return nil
	})
}

func (s *Service) checkTransition(a *models.Application, to models.ApplicationStatus) error {
	if !s.cfg.StrictTransitions {
		return nil
	}
	if CanTransition(a.Status, to) {
		return nil
	}
	s.logger.Warn("application transition denied",
		slog.Int64("application_id", a.ID),
		slog.String("from", string(a.Status)),
		slog.String("to", string(to)))
	return apperr.Newf(apperr.CodeInvalidTransition, "cannot move application from %s to %s", a.Status, to)
}

// Precheck tells an intern whether they already applied to a job.
func (s *Service) Precheck(ctx context.Context, actor models.Actor, jobID int64) (*models.Precheck, error) {
	if !actor.IsIntern() {
		return nil, apperr.New(apperr.CodeRoleViolation, "only interns can precheck applications")
	}
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "load job", err)
	}
	if job == nil {
		return nil, apperr.Newf(apperr.CodeJobNotFound, "job %d not found", jobID)
	}

	out := &models.Precheck{
		Job: models.JobSummary{ID: job.ID, CompanyID: job.CompanyID, Title: job.Title, Status: job.Status, Deadline: job.Deadline},
	}
	a, err := s.store.FindApplication(ctx, jobID, actor.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "check existing application", err)
	}
	if a != nil {
		out.Applied = true
		out.ApplicationID = a.ID
		out.Status = a.Status
	}
	return out, nil
}

// List returns the actor's applications: a company sees those for its jobs,
// an intern sees their own.
func (s *Service) List(ctx context.Context, actor models.Actor, f models.ApplicationFilter) ([]models.Application, error) {
	switch actor.Role {
	case models.RoleCompany:
		f.CompanyID, f.InternID = actor.ID, 0
	case models.RoleIntern:
		f.InternID, f.CompanyID = actor.ID, 0
	default:
		return nil, apperr.New(apperr.CodeRoleViolation, "unknown role")
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Validation("invalid status filter", map[string]string{"status": fmt.Sprintf("unknown status %q", f.Status)})
	}
	if f.Limit > s.cfg.MaxPageSize {
		f.Limit = s.cfg.MaxPageSize
	}

	out, err := s.store.ListApplications(ctx, f)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "list applications", err)
	}
	if out == nil {
		out = []models.Application{}
	}
	return out, nil
}

// Get returns an application visible to its intern or its company.
func (s *Service) Get(ctx context.Context, actor models.Actor, id int64) (*models.Application, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visible(actor, a) {
		return nil, apperr.New(apperr.CodeNotOwner, "not authorized to view this application")
	}
	return a, nil
}

// Delete withdraws an application together with its interviews.
func (s *Service) Delete(ctx context.Context, actor models.Actor, id int64) error {
	if !actor.IsIntern() {
		return apperr.New(apperr.CodeRoleViolation, "only the applicant can delete an application")
	}
	a, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if a.InternID != actor.ID {
		return apperr.New(apperr.CodeNotOwner, "not authorized to delete this application")
	}
	if err := s.store.DeleteApplication(ctx, id); err != nil {
		return apperr.Wrap(apperr.CodeInternal, "delete application", err)
	}
	s.logger.Info("application deleted", slog.Int64("application_id", id), slog.Int64("intern_id", actor.ID))
	return nil
}

func (s *Service) load(ctx context.Context, id int64) (*models.Application, error) {
	a, err := s.store.GetApplication(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "load application", err)
	}
	if a == nil {
		return nil, apperr.Newf(apperr.CodeApplicationNotFound, "application %d not found", id)
	}
	return a, nil
}

func visible(actor models.Actor, a *models.Application) bool {
	switch actor.Role {
	case models.RoleIntern:
		return a.InternID == actor.ID
	case models.RoleCompany:
		return a.CompanyID == actor.ID
	default:
		return false
	}
}

func wrapStore(err error, msg string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	return apperr.Wrap(apperr.CodeInternal, msg, err)
}
