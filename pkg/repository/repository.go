package repository

import (
	"context"
	"time"

	"github.com/abdulwedud33/intern-finder-v2-sub000/pkg/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.
//
// Getters return (nil, nil) when the row does not exist.

// Transactor runs fn in a single storage transaction. Repository calls made
// with the ctx handed to fn participate in it.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// JobCatalog is the read-only view of the external job catalog.
type JobCatalog interface {
	GetJob(ctx context.Context, id int64) (*models.Job, error)
}

// ActorDirectory is the read-only view of the identity provider's actors.
type ActorDirectory interface {
	GetActor(ctx context.Context, id int64) (*models.Actor, error)
}

// EmploymentDirectory is the read-only view of employment records.
type EmploymentDirectory interface {
	GetEmployment(ctx context.Context, internID, companyID int64) (*models.Employment, error)
}

type ApplicationRepo interface {
	// CreateApplication fails with apperr.CodeDuplicateApplication when the
	// (job, intern) pair already exists.
	CreateApplication(ctx context.Context, a *models.Application) (int64, error)
	GetApplication(ctx context.Context, id int64) (*models.Application, error)
	FindApplication(ctx context.Context, jobID, internID int64) (*models.Application, error)
	ListApplications(ctx context.Context, f models.ApplicationFilter) ([]models.Application, error)
	// UpdateApplicationStatus applies change only while the stored status is
	// from; otherwise it fails with apperr.CodeInvalidTransition.
	UpdateApplicationStatus(ctx context.Context, id int64, from models.ApplicationStatus, change models.StatusChange) error
	DeleteApplication(ctx context.Context, id int64) error
}

type InterviewRepo interface {
	// CreateInterview fails with apperr.CodeSchedulingConflict when a live
	// interview exists for the application or for the intern at the same
	// instant. With overlap set, any live interview whose slot intersects
	// the new one also conflicts.
	CreateInterview(ctx context.Context, iv *models.Interview, overlap bool) (int64, error)
	GetInterview(ctx context.Context, id int64) (*models.Interview, error)
	FindActiveInterviewByApplication(ctx context.Context, applicationID int64) (*models.Interview, error)
	// FindInternConflict returns a live interview for the intern colliding
	// with [start, end), ignoring excludeID.
	FindInternConflict(ctx context.Context, internID int64, start, end time.Time, overlap bool, excludeID int64) (*models.Interview, error)
	ListInterviews(ctx context.Context, f models.InterviewFilter) ([]models.Interview, error)
	// UpdateInterview and RescheduleInterview write only while the stored
	// status is from; otherwise they fail with apperr.CodeInvalidTransition.
	UpdateInterview(ctx context.Context, iv *models.Interview, from models.InterviewStatus) error
	RescheduleInterview(ctx context.Context, iv *models.Interview, from models.InterviewStatus, overlap bool) error
	DeleteInterviewsByApplication(ctx context.Context, applicationID int64) error
}

type ReviewRepo interface {
	// FindReviewByKey looks up the review holding a dedupe key. A nil key
	// never matches.
	FindReviewByKey(ctx context.Context, reviewerID, targetID int64, key *string) (*models.Review, error)
	// InsertReview fails with apperr.CodeDuplicateReview when the key is taken.
	InsertReview(ctx context.Context, r *models.Review, key *string) (int64, error)
	// UpsertReview inserts or, on a key collision, overwrites rating, content
	// and status in place. A rejected review stays rejected. It returns the
	// stored row.
	UpsertReview(ctx context.Context, r *models.Review, key *string) (*models.Review, error)
	GetReview(ctx context.Context, id int64) (*models.Review, error)
	ListReviewsByTarget(ctx context.Context, targetID int64, status models.ReviewStatus) ([]models.Review, error)
	ApprovedRatings(ctx context.Context, targetID int64, model models.TargetModel) ([]int, error)
	UpdateReviewStatus(ctx context.Context, id int64, status models.ReviewStatus) error
	DeleteReview(ctx context.Context, id int64) error
}

type RatingRepo interface {
	SaveAggregate(ctx context.Context, a *models.RatingAggregate) error
	GetAggregate(ctx context.Context, targetID int64) (*models.RatingAggregate, error)
}
