package models

import "time"

// Domain models matching the database schema in db/migrations.

type Role string

const (
	RoleIntern  Role = "intern"
	RoleCompany Role = "company"
)

func (r Role) Valid() bool {
	switch r {
	case RoleIntern, RoleCompany:
		return true
	default:
		return false
	}
}

// TargetModel names the profile collection a review about an actor lands in.
type TargetModel string

const (
	TargetIntern  TargetModel = "Intern"
	TargetCompany TargetModel = "Company"
)

// Actor is an authenticated participant. Core logic only ever switches on
// Role; profile fields belong to the identity provider.
type Actor struct {
	ID   int64 `json:"id" db:"id"`
	Role Role  `json:"role" db:"role"`
}

func (a Actor) IsIntern() bool  { return a.Role == RoleIntern }
func (a Actor) IsCompany() bool { return a.Role == RoleCompany }

// TargetModel returns the review target collection for the actor's role.
func (a Actor) TargetModel() TargetModel {
	switch a.Role {
	case RoleIntern:
		return TargetIntern
	case RoleCompany:
		return TargetCompany
	default:
		return ""
	}
}

type JobStatus string

const (
	JobDraft     JobStatus = "draft"
	JobPublished JobStatus = "published"
	JobClosed    JobStatus = "closed"
	JobFilled    JobStatus = "filled"
)

// Job is owned by the job catalog. The core reads it for existence and
// ownership checks.
type Job struct {
	ID        int64      `json:"id" db:"id" yaml:"id"`
	CompanyID int64      `json:"company_id" db:"company_id" yaml:"company_id"`
	Title     string     `json:"title" db:"title" yaml:"title"`
	Status    JobStatus  `json:"status" db:"status" yaml:"status"`
	Deadline  *time.Time `json:"deadline,omitempty" db:"deadline" yaml:"deadline,omitempty"`
}

// AcceptsApplications reports whether the job is published and its deadline,
// if any, has not passed at now.
func (j Job) AcceptsApplications(now time.Time) bool {
	if j.Status != JobPublished {
		return false
	}
	return j.Deadline == nil || now.Before(*j.Deadline)
}

type EmploymentStatus string

const (
	EmploymentActive     EmploymentStatus = "active"
	EmploymentTerminated EmploymentStatus = "terminated"
)

// Employment is an external record linking an intern to a company.
type Employment struct {
	InternID  int64            `json:"intern_id" db:"intern_id" yaml:"intern_id"`
	CompanyID int64            `json:"company_id" db:"company_id" yaml:"company_id"`
	Status    EmploymentStatus `json:"status" db:"status" yaml:"status"`
}
