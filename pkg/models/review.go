package models

import "time"

type Direction string

const (
	CompanyToIntern Direction = "company_to_intern"
	InternToCompany Direction = "intern_to_company"
)

func (d Direction) Valid() bool {
	return d == CompanyToIntern || d == InternToCompany
}

// ReviewerRole is the role a reviewer must hold for this direction.
func (d Direction) ReviewerRole() Role {
	if d == CompanyToIntern {
		return RoleCompany
	}
	return RoleIntern
}

// TargetModel is the collection the reviewed party must belong to.
func (d Direction) TargetModel() TargetModel {
	if d == CompanyToIntern {
		return TargetIntern
	}
	return TargetCompany
}

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

func (s ReviewStatus) Valid() bool {
	switch s {
	case ReviewPending, ReviewApproved, ReviewRejected:
		return true
	default:
		return false
	}
}

type Review struct {
	ID          int64        `json:"id" db:"id"`
	ReviewerID  int64        `json:"reviewer_id" db:"reviewer_id"`
	TargetID    int64        `json:"target_id" db:"target_id"`
	TargetModel TargetModel  `json:"target_model" db:"target_model"`
	Direction   Direction    `json:"direction" db:"direction"`
	JobID       *int64       `json:"job_id,omitempty" db:"job_id"`
	Rating      int          `json:"rating" db:"rating"`
	Content     string       `json:"content" db:"content"`
	Status      ReviewStatus `json:"status" db:"status"`
	CreatedAt   time.Time    `json:"created_at" db:"created"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated"`
}

// RatingAggregate is the read-optimized projection stored alongside a
// target's profile. It is always derived from approved reviews.
type RatingAggregate struct {
	TargetID      int64       `json:"target_id" db:"target_id"`
	TargetModel   TargetModel `json:"target_model" db:"target_model"`
	AverageRating float64     `json:"average_rating" db:"average_rating"`
	ReviewCount   int         `json:"review_count" db:"review_count"`
	UpdatedAt     time.Time   `json:"updated_at" db:"updated"`
}
