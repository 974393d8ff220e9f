package search

import (
	"time"

	"github.com/goliatone/go-search-cache/pagination"
	"github.com/goliatone/go-search-cache/query"
)

// JobSearchParams selects a page of active jobs.
type JobSearchParams struct {
	query.JobFilter
	pagination.Params
}

// CompanySearchParams selects a page of active companies.
type CompanySearchParams struct {
	query.CompanyFilter
	pagination.Params
}

// UserSearchParams selects a page of active users.
type UserSearchParams struct {
	query.UserFilter
	pagination.Params
}

// FilterOptions lists the values job filters can currently take.
type FilterOptions struct {
	Industries       []string `json:"industries"`
	Locations        []string `json:"locations"`
	EmploymentTypes  []string `json:"employmentTypes"`
	WorkTypes        []string `json:"workTypes"`
	ExperienceLevels []string `json:"experienceLevels"`
}

// TTLs sets how long each operation's results stay cached.
type TTLs struct {
	JobSearch       time.Duration `yaml:"job_search"`
	CompanySearch   time.Duration `yaml:"company_search"`
	UserSearch      time.Duration `yaml:"user_search"`
	Recommendations time.Duration `yaml:"recommendations"`
	FilterOptions   time.Duration `yaml:"filter_options"`
	Job             time.Duration `yaml:"job"`
	CompanyProfile  time.Duration `yaml:"company_profile"`
	UserProfile     time.Duration `yaml:"user_profile"`
	CompanyJobs     time.Duration `yaml:"company_jobs"`
}

// DefaultTTLs returns short lifetimes for volatile job data and longer ones
// for near-static data. Profile lifetimes of zero use the partition default.
func DefaultTTLs() TTLs {
	return TTLs{
		JobSearch:       120 * time.Second,
		CompanySearch:   900 * time.Second,
		UserSearch:      300 * time.Second,
		Recommendations: 600 * time.Second,
		FilterOptions:   3600 * time.Second,
		Job:             300 * time.Second,
	}
}
