// Package model holds the marketplace entities read by the search layer.
package model

import (
	"strconv"
	"time"

	"github.com/uptrace/bun"
)

// StatusActive marks records that are visible on public search surfaces.
const StatusActive = "active"

// Job is a single job posting.
type Job struct {
	bun.BaseModel `bun:"table:jobs,alias:j" json:"-" msgpack:"-"`

	ID              int64     `bun:"id,pk,autoincrement" json:"id"`
	CompanyID       int64     `bun:"company_id,notnull" json:"companyId"`
	Title           string    `bun:"title,notnull" json:"title"`
	Description     string    `bun:"description" json:"description"`
	Location        string    `bun:"location" json:"location"`
	Industry        string    `bun:"industry" json:"industry"`
	ExperienceLevel string    `bun:"experience_level" json:"experienceLevel"`
	EmploymentType  string    `bun:"employment_type" json:"employmentType"`
	WorkType        string    `bun:"work_type" json:"workType"`
	SalaryMin       int       `bun:"salary_min" json:"salaryMin"`
	SalaryMax       int       `bun:"salary_max" json:"salaryMax"`
	Status          string    `bun:"status,notnull" json:"status"`
	Views           int64     `bun:"views,notnull,default:0" json:"views"`
	CreatedAt       time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
}

// Tag returns the cache tag identifying this job inside cached pages.
func (j Job) Tag() string {
	return JobTag(j.ID)
}

// JobTag formats the cache tag for a job id.
func JobTag(id int64) string {
	return "jobId:" + strconv.FormatInt(id, 10)
}

// Company is an employer profile.
type Company struct {
	bun.BaseModel `bun:"table:companies,alias:c" json:"-" msgpack:"-"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	Name        string    `bun:"name,notnull" json:"name"`
	Description string    `bun:"description" json:"description"`
	Industry    string    `bun:"industry" json:"industry"`
	Location    string    `bun:"location" json:"location"`
	Size        string    `bun:"size" json:"size"`
	Status      string    `bun:"status,notnull" json:"status"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
}

// User is a marketplace member, either a job seeker or an employer.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u" json:"-" msgpack:"-"`

	ID              int64     `bun:"id,pk,autoincrement" json:"id"`
	Name            string    `bun:"name,notnull" json:"name"`
	Email           string    `bun:"email,notnull" json:"email"`
	Role            string    `bun:"role" json:"role"`
	Location        string    `bun:"location" json:"location"`
	Headline        string    `bun:"headline" json:"headline"`
	Skills          string    `bun:"skills" json:"skills"`
	ExperienceLevel string    `bun:"experience_level" json:"experienceLevel"`
	Industry        string    `bun:"industry" json:"industry"`
	Status          string    `bun:"status,notnull" json:"status"`
	CreatedAt       time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
}
