package models

import "time"

type InterviewStatus string

const (
	InterviewScheduled   InterviewStatus = "scheduled"
	InterviewInProgress  InterviewStatus = "in_progress"
	InterviewCompleted   InterviewStatus = "completed"
	InterviewCancelled   InterviewStatus = "cancelled"
	InterviewRescheduled InterviewStatus = "rescheduled"
)

func (s InterviewStatus) Valid() bool {
	switch s {
	case InterviewScheduled, InterviewInProgress, InterviewCompleted, InterviewCancelled, InterviewRescheduled:
		return true
	default:
		return false
	}
}

func (s InterviewStatus) Terminal() bool {
	return s == InterviewCompleted || s == InterviewCancelled
}

type InterviewType string

const (
	InterviewPhone  InterviewType = "phone"
	InterviewVideo  InterviewType = "video"
	InterviewOnsite InterviewType = "onsite"
	InterviewOther  InterviewType = "other"
)

func (t InterviewType) Valid() bool {
	switch t {
	case InterviewPhone, InterviewVideo, InterviewOnsite, InterviewOther:
		return true
	default:
		return false
	}
}

type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomePassed  Outcome = "passed"
	OutcomeFailed  Outcome = "failed"
)

type Recommendation string

const (
	RecommendHire   Recommendation = "hire"
	RecommendNoHire Recommendation = "no_hire"
	RecommendMaybe  Recommendation = "maybe"
)

func (r Recommendation) Valid() bool {
	switch r {
	case RecommendHire, RecommendNoHire, RecommendMaybe:
		return true
	default:
		return false
	}
}

type Feedback struct {
	Rating         int            `json:"rating"`
	Notes          string         `json:"notes,omitempty"`
	Strengths      []string       `json:"strengths,omitempty"`
	Improvements   []string       `json:"improvements,omitempty"`
	Recommendation Recommendation `json:"recommendation"`
	SubmittedBy    int64          `json:"submitted_by"`
	SubmittedAt    time.Time      `json:"submitted_at"`
}

type Interview struct {
	ID            int64           `json:"id" db:"id"`
	ApplicationID int64           `json:"application_id" db:"application_id"`
	InternID      int64           `json:"intern_id" db:"intern_id"`
	JobID         int64           `json:"job_id" db:"job_id"`
	CompanyID     int64           `json:"company_id" db:"company_id"`
	InterviewerID int64           `json:"interviewer_id" db:"interviewer_id"`
	Date          time.Time       `json:"date" db:"date"`
	Duration      int             `json:"duration" db:"duration"`
	Type          InterviewType   `json:"type" db:"type"`
	Location      string          `json:"location,omitempty" db:"location"`
	Notes         string          `json:"notes,omitempty" db:"notes"`
	Status        InterviewStatus `json:"status" db:"status"`
	Feedback      *Feedback       `json:"feedback,omitempty" db:"feedback"`
	Outcome       Outcome         `json:"outcome" db:"outcome"`
	StartedAt     *time.Time      `json:"started_at,omitempty" db:"started_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
	CancelledAt   *time.Time      `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CancelledBy   *int64          `json:"cancelled_by,omitempty" db:"cancelled_by"`
	CreatedAt     time.Time       `json:"created_at" db:"created"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated"`
}

// End returns the instant the interview slot ends.
func (i Interview) End() time.Time {
	return i.Date.Add(time.Duration(i.Duration) * time.Minute)
}

type InterviewFilter struct {
	CompanyID     int64
	InternID      int64
	ApplicationID int64
	Status        InterviewStatus
	Limit         int
	Offset        int
}
