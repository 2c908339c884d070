package models

import "time"

type ApplicationStatus string

const (
	ApplicationUnderReview ApplicationStatus = "under_review"
	ApplicationInterview   ApplicationStatus = "interview"
	ApplicationAccepted    ApplicationStatus = "accepted"
	ApplicationRejected    ApplicationStatus = "rejected"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationUnderReview, ApplicationInterview, ApplicationAccepted, ApplicationRejected:
		return true
	default:
		return false
	}
}

func (s ApplicationStatus) Terminal() bool {
	return s == ApplicationAccepted || s == ApplicationRejected
}

// StatusChange is one entry of an application's status history.
type StatusChange struct {
	Status    ApplicationStatus `json:"status" db:"status"`
	ChangedBy int64             `json:"changed_by" db:"changed_by"`
	Reason    string            `json:"reason,omitempty" db:"reason"`
	At        time.Time         `json:"at" db:"at"`
}

type Application struct {
	ID            int64             `json:"id" db:"id"`
	JobID         int64             `json:"job_id" db:"job_id"`
	CompanyID     int64             `json:"company_id" db:"company_id"`
	InternID      int64             `json:"intern_id" db:"intern_id"`
	CoverLetter   string            `json:"cover_letter" db:"cover_letter"`
	ResumeRef     string            `json:"resume_ref,omitempty" db:"resume_ref"`
	Status        ApplicationStatus `json:"status" db:"status"`
	StatusHistory []StatusChange    `json:"status_history"`
	CreatedAt     time.Time         `json:"created_at" db:"created"`
	UpdatedAt     time.Time         `json:"updated_at" db:"updated"`
}

// ApplicationFilter narrows a listing. Exactly one of CompanyID or InternID
// is expected to be set by callers.
type ApplicationFilter struct {
	CompanyID int64
	InternID  int64
	JobID     int64
	Status    ApplicationStatus
	Limit     int
	Offset    int
}

// JobSummary is the minimal job projection returned by a precheck.
type JobSummary struct {
	ID        int64      `json:"id"`
	CompanyID int64      `json:"company_id"`
	Title     string     `json:"title"`
	Status    JobStatus  `json:"status"`
	Deadline  *time.Time `json:"deadline,omitempty"`
}

type Precheck struct {
	Applied       bool              `json:"applied"`
	ApplicationID int64             `json:"application_id,omitempty"`
	Status        ApplicationStatus `json:"status,omitempty"`
	Job           JobSummary        `json:"job"`
}
