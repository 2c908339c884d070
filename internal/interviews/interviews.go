// Package interviews schedules interviews against applications and drives
// their lifecycle through to feedback.
package interviews

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

// Store is the storage the scheduler needs.
type Store interface {
	repository.Transactor
	repository.InterviewRepo
	GetApplication(ctx context.Context, id int64) (*models.Application, error)
}

// Advancer moves an application along its status matrix without an
// ownership check. It must honor a transaction carried in ctx.
type Advancer interface {
	Advance(ctx context.Context, applicationID, actorID int64, newStatus models.ApplicationStatus, reason string) error
}

var transitions = map[models.InterviewStatus][]models.InterviewStatus{
	models.InterviewScheduled:   {models.InterviewRescheduled, models.InterviewInProgress, models.InterviewCancelled, models.InterviewCompleted},
	models.InterviewRescheduled: {models.InterviewScheduled, models.InterviewInProgress, models.InterviewCancelled, models.InterviewCompleted},
	models.InterviewInProgress:  {models.InterviewCompleted, models.InterviewCancelled},
}

// CanTransition reports whether an interview may move from -> to.
func CanTransition(from, to models.InterviewStatus) bool {
	return slices.Contains(transitions[from], to)
}

// ScheduleRequest describes a new interview slot.
type ScheduleRequest struct {
	Date     time.Time
	Duration int // minutes; zero means the configured default
	Type     models.InterviewType
	Location string
	Notes    string
}

// FeedbackRequest is the interviewer's verdict.
type FeedbackRequest struct {
	Rating         int
	Notes          string
	Strengths      []string
	Improvements   []string
	Recommendation models.Recommendation
}

type Scheduler struct {
	store  Store
	apps   Advancer
	cfg    config.InterviewsConfig
	logger *slog.Logger
	clock  func() time.Time
}

func New(store Store, apps Advancer, cfg config.InterviewsConfig, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = 60
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = 480
	}
	if cfg.ConflictPolicy == "" {
		cfg.ConflictPolicy = config.ConflictExact
	}
	return &Scheduler{store: store, apps: apps, cfg: cfg, logger: logger, clock: time.Now}
}

func (s *Scheduler) WithClock(clock func() time.Time) *Scheduler {
	s.clock = clock
	return s
}

func (s *Scheduler) now() time.Time {
	return s.clock().UTC()
}

func (s *Scheduler) overlap() bool {
	return s.cfg.ConflictPolicy == config.ConflictWindow
}

// Schedule books an interview for an application owned by the acting
// company and moves the application to interview.
func (s *Scheduler) Schedule(ctx context.Context, applicationID, actingCompanyID int64, req ScheduleRequest) (*models.Interview, error) {
	app, err := s.store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "load application", err)
	}
	if app == nil {
		return nil, apperr.Newf(apperr.CodeApplicationNotFound, "application %d not found", applicationID)
	}
	if app.CompanyID != actingCompanyID {
		return nil, apperr.New(apperr.CodeNotOwner, "not authorized to schedule for this application")
	}

	duration, err := s.checkSlot(req.Date, req.Duration)
	if err != nil {
		return nil, err
	}
	if !req.Type.Valid() {
		return nil, apperr.Validation("invalid interview type", map[string]string{"type": fmt.Sprintf("unknown type %q", req.Type)})
	}

	iv := &models.Interview{
		ApplicationID: app.ID,
		InternID:      app.InternID,
		JobID:         app.JobID,
		CompanyID:     app.CompanyID,
		InterviewerID: actingCompanyID,
		Date:          req.Date.UTC(),
		Duration:      duration,
		Type:          req.Type,
		Location:      strings.TrimSpace(req.Location),
		Notes:         req.Notes,
		Status:        models.InterviewScheduled,
		Outcome:       models.OutcomePending,
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.checkConflicts(ctx, iv, 0); err != nil {
			return err
		}
		id, err := s.store.CreateInterview(ctx, iv, s.overlap())
		if err != nil {
			return wrapStore(err, "store interview")
		}
		iv.ID = id
		return s.apps.Advance(ctx, app.ID, actingCompanyID, models.ApplicationInterview, "interview scheduled")
	})
	if err != nil {
		if apperr.Is(err, apperr.CodeSchedulingConflict) {
			s.logger.Warn("interview conflict",
				slog.Int64("application_id", app.ID),
				slog.Int64("intern_id", app.InternID),
				slog.Time("date", iv.Date))
		}
		return nil, err
	}

	s.logger.Info("interview scheduled",
		slog.Int64("interview_id", iv.ID),
		slog.Int64("application_id", app.ID),
		slog.Time("date", iv.Date),
		slog.Int("duration", iv.Duration))
	return iv, nil
}

// checkConflicts gives a precise error before the write. The storage
// constraints remain the atomic guard.
func (s *Scheduler) checkConflicts(ctx context.Context, iv *models.Interview, excludeID int64) error {
	if excludeID == 0 {
		active, err := s.store.FindActiveInterviewByApplication(ctx, iv.ApplicationID)
		if err != nil {
			return apperr.Wrap(apperr.CodeInternal, "check application interviews", err)
		}
		if active != nil {
			return apperr.Newf(apperr.CodeSchedulingConflict, "application %d already has an active interview", iv.ApplicationID)
		}
	}
	clash, err := s.store.FindInternConflict(ctx, iv.InternID, iv.Date, iv.End(), s.overlap(), excludeID)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "check intern interviews", err)
	}
	if clash != nil {
		return apperr.Newf(apperr.CodeSchedulingConflict, "intern already has an interview at %s", clash.Date.Format(time.RFC3339))
	}
	return nil
}

func (s *Scheduler) checkSlot(date time.Time, duration int) (int, error) {
	fields := map[string]string{}
	if !date.After(s.now()) {
		fields["date"] = "must be in the future"
	}
	if duration == 0 {
		duration = s.cfg.DefaultDuration
	}
	if duration < 1 || duration > s.cfg.MaxDuration {
		fields["duration"] = fmt.Sprintf("must be between 1 and %d minutes", s.cfg.MaxDuration)
	}
	if len(fields) > 0 {
		return 0, apperr.Validation("invalid interview slot", fields)
	}
	return duration, nil
}

// Reschedule moves a scheduled or rescheduled interview to a new slot.
// A zero duration keeps the current one.
func (s *Scheduler) Reschedule(ctx context.Context, interviewID, actingCompanyID int64, date time.Time, duration int) (*models.Interview, error) {
	var out *models.Interview
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		iv, err := s.load(ctx, interviewID)
		if err != nil {
			return err
		}
		if iv.CompanyID != actingCompanyID {
			return apperr.New(apperr.CodeNotOwner, "not authorized to reschedule this interview")
		}
		if iv.Status != models.InterviewScheduled && iv.Status != models.InterviewRescheduled {
			return apperr.Newf(apperr.CodeInvalidTransition, "cannot reschedule a %s interview", iv.Status)
		}
		if duration == 0 {
			duration = iv.Duration
		}
		if duration, err = s.checkSlot(date, duration); err != nil {
			return err
		}

		from := iv.Status
		iv.Date = date.UTC()
		iv.Duration = duration
		iv.Status = models.InterviewRescheduled
		if err := s.checkConflicts(ctx, iv, iv.ID); err != nil {
			return err
		}
		if err := s.store.RescheduleInterview(ctx, iv, from, s.overlap()); err != nil {
			return wrapStore(err, "reschedule interview")
		}
		out = iv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("interview rescheduled",
		slog.Int64("interview_id", out.ID),
		slog.Time("date", out.Date),
		slog.Int("duration", out.Duration))
	return out, nil
}

// UpdateStatus applies a lifecycle move. The owning company may make any
// allowed move; the interviewee may only cancel.
func (s *Scheduler) UpdateStatus(ctx context.Context, interviewID int64, actor models.Actor, newStatus models.InterviewStatus) (*models.Interview, error) {
	if !newStatus.Valid() {
		return nil, apperr.Validation("invalid status", map[string]string{"status": fmt.Sprintf("unknown status %q", newStatus)})
	}

	var (
		out  *models.Interview
		from models.InterviewStatus
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		iv, err := s.load(ctx, interviewID)
		if err != nil {
			return err
		}

		switch {
		case actor.IsCompany() && iv.CompanyID == actor.ID:
		case actor.IsIntern() && iv.InternID == actor.ID:
			if newStatus != models.InterviewCancelled {
				return apperr.New(apperr.CodeRoleViolation, "interns may only cancel an interview")
			}
		default:
			return apperr.New(apperr.CodeNotOwner, "not authorized to update this interview")
		}

		if !CanTransition(iv.Status, newStatus) {
			s.logger.Warn("interview transition denied",
				slog.Int64("interview_id", iv.ID),
				slog.String("from", string(iv.Status)),
				slog.String("to", string(newStatus)))
			return apperr.Newf(apperr.CodeInvalidTransition, "cannot move interview from %s to %s", iv.Status, newStatus)
		}

		now := s.now()
		from = iv.Status
		iv.Status = newStatus
		switch newStatus {
		case models.InterviewInProgress:
			if iv.StartedAt == nil {
				iv.StartedAt = &now
			}
		case models.InterviewCompleted:
			iv.CompletedAt = &now
		case models.InterviewCancelled:
			by := actor.ID
			iv.CancelledAt = &now
			iv.CancelledBy = &by
		}

		if err := s.store.UpdateInterview(ctx, iv, from); err != nil {
			return wrapStore(err, "update interview")
		}
		out = iv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("interview status changed",
		slog.Int64("interview_id", out.ID),
		slog.String("from", string(from)),
		slog.String("to", string(newStatus)),
		slog.Int64("by", actor.ID))
	return out, nil
}

// SubmitFeedback records the one-time verdict, completes the interview and
// settles the application: hire accepts, anything else rejects.
func (s *Scheduler) SubmitFeedback(ctx context.Context, interviewID, actingCompanyID int64, req FeedbackRequest) (*models.Interview, error) {
	fields := map[string]string{}
	if req.Rating < 1 || req.Rating > 5 {
		fields["rating"] = "must be between 1 and 5"
	}
	if !req.Recommendation.Valid() {
		fields["recommendation"] = "must be one of hire, no_hire, maybe"
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("invalid feedback", fields)
	}

	var out *models.Interview
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		iv, err := s.load(ctx, interviewID)
		if err != nil {
			return err
		}
		if iv.CompanyID != actingCompanyID {
			return apperr.New(apperr.CodeNotOwner, "not authorized to submit feedback for this interview")
		}
		if iv.Feedback != nil {
			return apperr.Newf(apperr.CodeFeedbackAlreadySubmitted, "feedback already submitted for interview %d", iv.ID)
		}
		if iv.Status == models.InterviewCancelled {
			return apperr.New(apperr.CodeInvalidTransition, "cannot submit feedback for a cancelled interview")
		}

		now := s.now()
		from := iv.Status
		iv.Feedback = &models.Feedback{
			Rating:         req.Rating,
			Notes:          req.Notes,
			Strengths:      req.Strengths,
			Improvements:   req.Improvements,
			Recommendation: req.Recommendation,
			SubmittedBy:    actingCompanyID,
			SubmittedAt:    now,
		}
		iv.Outcome = models.OutcomeFailed
		if req.Recommendation == models.RecommendHire {
			iv.Outcome = models.OutcomePassed
		}
		if iv.Status != models.InterviewCompleted {
			iv.Status = models.InterviewCompleted
			iv.CompletedAt = &now
		}
		if err := s.store.UpdateInterview(ctx, iv, from); err != nil {
			return wrapStore(err, "update interview")
		}

		next := models.ApplicationRejected
		if req.Recommendation == models.RecommendHire {
			next = models.ApplicationAccepted
		}
		reason := "interview feedback: " + string(req.Recommendation)
		if err := s.apps.Advance(ctx, iv.ApplicationID, actingCompanyID, next, reason); err != nil {
			return err
		}
		out = iv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("interview feedback submitted",
		slog.Int64("interview_id", out.ID),
		slog.String("recommendation", string(req.Recommendation)),
		slog.String("outcome", string(out.Outcome)))
	return out, nil
}

// Get returns an interview visible to its company or its interviewee.
func (s *Scheduler) Get(ctx context.Context, actor models.Actor, id int64) (*models.Interview, error) {
	iv, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !(actor.IsCompany() && iv.CompanyID == actor.ID) && !(actor.IsIntern() && iv.InternID == actor.ID) {
		return nil, apperr.New(apperr.CodeNotOwner, "not authorized to view this interview")
	}
	return iv, nil
}

// List returns the company's or the intern's interviews, soonest first.
func (s *Scheduler) List(ctx context.Context, actor models.Actor, f models.InterviewFilter) ([]models.Interview, error) {
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
	out, err := s.store.ListInterviews(ctx, f)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "list interviews", err)
	}
	if out == nil {
		out = []models.Interview{}
	}
	return out, nil
}

func (s *Scheduler) load(ctx context.Context, id int64) (*models.Interview, error) {
	iv, err := s.store.GetInterview(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "load interview", err)
	}
	if iv == nil {
		return nil, apperr.Newf(apperr.CodeInterviewNotFound, "interview %d not found", id)
	}
	return iv, nil
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
