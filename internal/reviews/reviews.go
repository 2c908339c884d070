// Package reviews handles two-way reviews between interns and companies and
// keeps each target's rating aggregate in step with its approved reviews.
package reviews

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/apperr"
	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/config"
	"github.com/abdulwedud33/intern-finder-v2-sub000/pkg/models"
	"github.com/abdulwedud33/intern-finder-v2-sub000/pkg/repository"
)

type Store interface {
	repository.Transactor
	repository.ActorDirectory
	repository.EmploymentDirectory
	repository.ReviewRepo
	repository.RatingRepo
}

// UpsertRequest is a review as submitted by its author.
type UpsertRequest struct {
	TargetID  int64
	JobID     *int64
	Direction models.Direction
	Rating    int
	Content   string
}

// Repairer queues a recompute that failed after its review write committed.
type Repairer interface {
	EnqueueRecompute(ctx context.Context, targetID int64, model models.TargetModel) error
}

type Service struct {
	store  Store
	cfg    config.ReviewsConfig
	logger *slog.Logger
	clock  func() time.Time
	repair Repairer
}

func New(store Store, cfg config.ReviewsConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.OnDuplicate == "" {
		cfg.OnDuplicate = config.OnDuplicateUpsert
	}
	return &Service{store: store, cfg: cfg, logger: logger, clock: time.Now}
}

func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// WithRepair installs a queue for recomputes that fail after commit.
func (s *Service) WithRepair(r Repairer) *Service {
	s.repair = r
	return s
}

// refresh recomputes the target's aggregate after a committed write. On
// failure the recompute is queued for retry and the error is still
// returned to the caller.
func (s *Service) refresh(ctx context.Context, targetID int64, model models.TargetModel) error {
	_, err := s.RecomputeAggregate(ctx, targetID, model)
	if err == nil || s.repair == nil {
		return err
	}
	if qerr := s.repair.EnqueueRecompute(context.WithoutCancel(ctx), targetID, model); qerr != nil {
		s.logger.Error("queue aggregate repair", slog.Int64("target_id", targetID), slog.Any("err", qerr))
	} else {
		s.logger.Warn("aggregate repair queued", slog.Int64("target_id", targetID))
	}
	return err
}

// DedupeKey returns the uniqueness key a review is stored under. Job-scoped
// reviews are unique per job; job-less reviews are unique per direction when
// joblessUnique is set and never deduplicated otherwise (nil key).
func DedupeKey(jobID *int64, d models.Direction, joblessUnique bool) *string {
	var k string
	switch {
	case jobID != nil:
		k = "job:" + strconv.FormatInt(*jobID, 10)
	case joblessUnique:
		k = "dir:" + string(d)
	default:
		return nil
	}
	return &k
}

// Upsert validates and stores a review, then recomputes the target's
// aggregate. created reports whether a new row was inserted.
func (s *Service) Upsert(ctx context.Context, reviewer models.Actor, req UpsertRequest) (rv *models.Review, created bool, err error) {
	content := strings.TrimSpace(req.Content)
	fields := map[string]string{}
	if req.Rating < 1 || req.Rating > 5 {
		fields["rating"] = "must be between 1 and 5"
	}
	if content == "" {
		fields["content"] = "is required"
	}
	if !req.Direction.Valid() {
		fields["direction"] = "must be company_to_intern or intern_to_company"
	}
	if len(fields) > 0 {
		return nil, false, apperr.Validation("invalid review", fields)
	}

	if reviewer.ID == req.TargetID {
		return nil, false, apperr.New(apperr.CodeSelfReview, "you cannot review yourself")
	}
	if reviewer.Role != req.Direction.ReviewerRole() {
		return nil, false, apperr.Newf(apperr.CodeRoleViolation, "a %s cannot submit a %s review", reviewer.Role, req.Direction)
	}

	target, err := s.store.GetActor(ctx, req.TargetID)
	if err != nil {
		return nil, false, apperr.Wrap(apperr.CodeInternal, "load target", err)
	}
	if target == nil {
		return nil, false, apperr.Newf(apperr.CodeTargetNotFound, "target %d not found", req.TargetID)
	}
	if target.TargetModel() != req.Direction.TargetModel() {
		return nil, false, apperr.Newf(apperr.CodeTargetMismatch, "target %d is not a %s", req.TargetID, req.Direction.TargetModel())
	}

	if req.Direction == models.InternToCompany && s.cfg.RequireConcludedEmployment {
		e, err := s.store.GetEmployment(ctx, reviewer.ID, target.ID)
		if err != nil {
			return nil, false, apperr.Wrap(apperr.CodeInternal, "load employment", err)
		}
		if e == nil || e.Status != models.EmploymentTerminated {
			return nil, false, apperr.New(apperr.CodeNotEligible, "you can only review companies you have finished working with")
		}
	}

	status := models.ReviewPending
	if s.cfg.AutoApprove {
		status = models.ReviewApproved
	}
	in := &models.Review{
		ReviewerID:  reviewer.ID,
		TargetID:    target.ID,
		TargetModel: req.Direction.TargetModel(),
		Direction:   req.Direction,
		JobID:       req.JobID,
		Rating:      req.Rating,
		Content:     content,
		Status:      status,
	}
	key := DedupeKey(req.JobID, req.Direction, s.cfg.JoblessUnique)

	err = s.store.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.store.FindReviewByKey(ctx, reviewer.ID, target.ID, key)
		if err != nil {
			return apperr.Wrap(apperr.CodeInternal, "check existing review", err)
		}
		created = existing == nil

		if s.cfg.OnDuplicate == config.OnDuplicateReject {
			if existing != nil {
				return apperr.New(apperr.CodeDuplicateReview, "you have already reviewed this target")
			}
			id, err := s.store.InsertReview(ctx, in, key)
			if err != nil {
				return wrapStore(err, "store review")
			}
			in.ID = id
			rv = in
			return nil
		}

		rv, err = s.store.UpsertReview(ctx, in, key)
		return wrapStore(err, "store review")
	})
	if err != nil {
		return nil, false, err
	}

	s.logger.Info("review stored",
		slog.Int64("review_id", rv.ID),
		slog.Int64("reviewer_id", rv.ReviewerID),
		slog.Int64("target_id", rv.TargetID),
		slog.Bool("created", created))

	if err := s.refresh(ctx, rv.TargetID, rv.TargetModel); err != nil {
		return nil, false, err
	}
	return rv, created, nil
}

// RecomputeAggregate rescans the target's approved reviews and overwrites
// its aggregate with the mean rounded to one decimal and the count.
func (s *Service) RecomputeAggregate(ctx context.Context, targetID int64, model models.TargetModel) (*models.RatingAggregate, error) {
	agg := &models.RatingAggregate{TargetID: targetID, TargetModel: model}
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		ratings, err := s.store.ApprovedRatings(ctx, targetID, model)
		if err != nil {
			return err
		}
		agg.AverageRating, agg.ReviewCount = Mean(ratings)
		agg.UpdatedAt = s.clock().UTC()
		return s.store.SaveAggregate(ctx, agg)
	})
	if err != nil {
		s.logger.Error("aggregate recompute failed", slog.Int64("target_id", targetID), slog.Any("err", err))
		return nil, apperr.Wrap(apperr.CodeInternal, "recompute aggregate", err)
	}
	s.logger.Debug("aggregate recomputed",
		slog.Int64("target_id", targetID),
		slog.Float64("average_rating", agg.AverageRating),
		slog.Int("review_count", agg.ReviewCount))
	return agg, nil
}

// Mean returns the average rounded to one decimal and the count. An empty
// slice yields 0, 0.
func Mean(ratings []int) (float64, int) {
	if len(ratings) == 0 {
		return 0, 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	mean := float64(sum) / float64(len(ratings))
	return math.Round(mean*10) / 10, len(ratings)
}

// Delete removes a review authored by actor.
func (s *Service) Delete(ctx context.Context, actor models.Actor, reviewID int64) error {
	rv, err := s.load(ctx, reviewID)
	if err != nil {
		return err
	}
	if rv.ReviewerID != actor.ID {
		return apperr.New(apperr.CodeNotOwner, "only the author can delete a review")
	}
	if err := s.store.DeleteReview(ctx, reviewID); err != nil {
		return apperr.Wrap(apperr.CodeInternal, "delete review", err)
	}
	s.logger.Info("review deleted", slog.Int64("review_id", reviewID), slog.Int64("reviewer_id", actor.ID))

	return s.refresh(ctx, rv.TargetID, rv.TargetModel)
}

// Moderate sets a review's status. It is an operator action.
func (s *Service) Moderate(ctx context.Context, reviewID int64, status models.ReviewStatus) (*models.Review, error) {
	if !status.Valid() {
		return nil, apperr.Validation("invalid review status", map[string]string{"status": fmt.Sprintf("unknown status %q", status)})
	}
	rv, err := s.load(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateReviewStatus(ctx, reviewID, status); err != nil {
		return nil, wrapStore(err, "update review status")
	}
	s.logger.Info("review moderated",
		slog.Int64("review_id", reviewID),
		slog.String("from", string(rv.Status)),
		slog.String("to", string(status)))

	if err := s.refresh(ctx, rv.TargetID, rv.TargetModel); err != nil {
		return nil, err
	}
	return s.load(ctx, reviewID)
}

// ListForTarget returns the target's reviews. An empty status lists all.
func (s *Service) ListForTarget(ctx context.Context, targetID int64, status models.ReviewStatus) ([]models.Review, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.Validation("invalid status filter", map[string]string{"status": fmt.Sprintf("unknown status %q", status)})
	}
	out, err := s.store.ListReviewsByTarget(ctx, targetID, status)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "list reviews", err)
	}
	if out == nil {
		out = []models.Review{}
	}
	return out, nil
}

// Aggregate returns the stored projection, or zero values when none exists.
func (s *Service) Aggregate(ctx context.Context, targetID int64) (*models.RatingAggregate, error) {
	agg, err := s.store.GetAggregate(ctx, targetID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "load aggregate", err)
	}
	if agg == nil {
		return &models.RatingAggregate{TargetID: targetID}, nil
	}
	return agg, nil
}

func (s *Service) load(ctx context.Context, id int64) (*models.Review, error) {
	rv, err := s.store.GetReview(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "load review", err)
	}
	if rv == nil {
		return nil, apperr.Newf(apperr.CodeReviewNotFound, "review %d not found", id)
	}
	return rv, nil
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
