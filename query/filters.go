package query

import (
	"sort"
	"strings"

	repository "github.com/goliatone/go-repository-bun"

	"github.com/goliatone/go-search-cache/model"
)

// JobFilter is the sparse filter set for job searches. Empty strings, nil
// pointers and empty slices impose no constraint.
type JobFilter struct {
	Search          string   `json:"search,omitempty"`
	Location        string   `json:"location,omitempty"`
	Industry        string   `json:"industry,omitempty"`
	CompanyID       *int64   `json:"companyId,omitempty"`
	SalaryMin       *int     `json:"salaryMin,omitempty"`
	SalaryMax       *int     `json:"salaryMax,omitempty"`
	ExperienceLevel string   `json:"experienceLevel,omitempty"`
	EmploymentTypes []string `json:"employmentTypes,omitempty"`
	WorkType        string   `json:"workType,omitempty"`
}

// Normalize trims text fields and sorts and dedupes membership lists, so
// equivalent filters derive the same cache key.
func (f JobFilter) Normalize() JobFilter {
	f.Search = strings.TrimSpace(f.Search)
	f.Location = strings.TrimSpace(f.Location)
	f.Industry = strings.TrimSpace(f.Industry)
	f.ExperienceLevel = strings.TrimSpace(f.ExperienceLevel)
	f.WorkType = strings.TrimSpace(f.WorkType)
	f.EmploymentTypes = normalizeSet(f.EmploymentTypes)
	return f
}

// Predicates returns the predicate list for the filter, always ending with
// the active status predicate.
func (f JobFilter) Predicates() []Predicate {
	f = f.Normalize()

	var preds []Predicate
	if f.Search != "" {
		preds = append(preds, Predicate{Field: "title", Operator: OpContains, Value: f.Search, Also: []string{"description"}})
	}
	if f.Location != "" {
		preds = append(preds, Predicate{Field: "location", Operator: OpContains, Value: f.Location})
	}
	if f.Industry != "" {
		preds = append(preds, Predicate{Field: "industry", Operator: OpEq, Value: f.Industry})
	}
	if f.CompanyID != nil {
		preds = append(preds, Predicate{Field: "company_id", Operator: OpEq, Value: *f.CompanyID})
	}
	if f.SalaryMin != nil {
		preds = append(preds, Predicate{Field: "salary_min", Operator: OpGte, Value: *f.SalaryMin})
	}
	if f.SalaryMax != nil {
		preds = append(preds, Predicate{Field: "salary_max", Operator: OpLte, Value: *f.SalaryMax})
	}
	if f.ExperienceLevel != "" {
		preds = append(preds, Predicate{Field: "experience_level", Operator: OpEq, Value: f.ExperienceLevel})
	}
	if len(f.EmploymentTypes) > 0 {
		preds = append(preds, Predicate{Field: "employment_type", Operator: OpIn, Value: f.EmploymentTypes})
	}
	if f.WorkType != "" {
		preds = append(preds, Predicate{Field: "work_type", Operator: OpEq, Value: f.WorkType})
	}

	return append(preds, activeStatus())
}

// CompanyFilter is the sparse filter set for company searches.
type CompanyFilter struct {
	Search   string   `json:"search,omitempty"`
	Industry string   `json:"industry,omitempty"`
	Location string   `json:"location,omitempty"`
	Sizes    []string `json:"sizes,omitempty"`
}

// Normalize trims text fields and sorts and dedupes membership lists.
func (f CompanyFilter) Normalize() CompanyFilter {
	f.Search = strings.TrimSpace(f.Search)
	f.Industry = strings.TrimSpace(f.Industry)
	f.Location = strings.TrimSpace(f.Location)
	f.Sizes = normalizeSet(f.Sizes)
	return f
}

// Predicates returns the predicate list for the filter, always ending with
// the active status predicate.
func (f CompanyFilter) Predicates() []Predicate {
	f = f.Normalize()

	var preds []Predicate
	if f.Search != "" {
		preds = append(preds, Predicate{Field: "name", Operator: OpContains, Value: f.Search, Also: []string{"description"}})
	}
	if f.Industry != "" {
		preds = append(preds, Predicate{Field: "industry", Operator: OpEq, Value: f.Industry})
	}
	if f.Location != "" {
		preds = append(preds, Predicate{Field: "location", Operator: OpContains, Value: f.Location})
	}
	if len(f.Sizes) > 0 {
		preds = append(preds, Predicate{Field: "size", Operator: OpIn, Value: f.Sizes})
	}

	return append(preds, activeStatus())
}

// UserFilter is the sparse filter set for user searches.
type UserFilter struct {
	Search          string `json:"search,omitempty"`
	Role            string `json:"role,omitempty"`
	Location        string `json:"location,omitempty"`
	ExperienceLevel string `json:"experienceLevel,omitempty"`
	Skill           string `json:"skill,omitempty"`
}

// Normalize trims text fields.
func (f UserFilter) Normalize() UserFilter {
	f.Search = strings.TrimSpace(f.Search)
	f.Role = strings.TrimSpace(f.Role)
	f.Location = strings.TrimSpace(f.Location)
	f.ExperienceLevel = strings.TrimSpace(f.ExperienceLevel)
	f.Skill = strings.TrimSpace(f.Skill)
	return f
}

// Predicates returns the predicate list for the filter, always ending with
// the active status predicate.
func (f UserFilter) Predicates() []Predicate {
	f = f.Normalize()

	var preds []Predicate
	if f.Search != "" {
		preds = append(preds, Predicate{Field: "name", Operator: OpContains, Value: f.Search, Also: []string{"headline"}})
	}
	if f.Role != "" {
		preds = append(preds, Predicate{Field: "role", Operator: OpEq, Value: f.Role})
	}
	if f.Location != "" {
		preds = append(preds, Predicate{Field: "location", Operator: OpContains, Value: f.Location})
	}
	if f.ExperienceLevel != "" {
		preds = append(preds, Predicate{Field: "experience_level", Operator: OpEq, Value: f.ExperienceLevel})
	}
	if f.Skill != "" {
		preds = append(preds, Predicate{Field: "skills", Operator: OpContains, Value: f.Skill})
	}

	return append(preds, activeStatus())
}

// Jobs composes the plan for a job search.
func Jobs(f JobFilter, sortBy, sortOrder string) Plan {
	return Plan{
		Predicates: f.Predicates(),
		Order:      Sorting(JobSortColumns, sortBy, sortOrder),
	}
}

// Companies composes the plan for a company search.
func Companies(f CompanyFilter, sortBy, sortOrder string) Plan {
	return Plan{
		Predicates: f.Predicates(),
		Order:      Sorting(CompanySortColumns, sortBy, sortOrder),
	}
}

// Users composes the plan for a user search.
func Users(f UserFilter, sortBy, sortOrder string) Plan {
	return Plan{
		Predicates: f.Predicates(),
		Order:      Sorting(UserSortColumns, sortBy, sortOrder),
	}
}

// Recommendations composes the plan for jobs matching a user's preferences.
// Only preferences the user filled in constrain the result.
func Recommendations(user model.User) Plan {
	f := JobFilter{
		Location:        user.Location,
		Industry:        user.Industry,
		ExperienceLevel: user.ExperienceLevel,
	}
	return Plan{
		Predicates: f.Predicates(),
		Order: []Order{
			{Column: "views", Desc: true},
			{Column: "created_at", Desc: true},
			{Column: "id", Desc: true},
		},
	}
}

// CompanyJobs composes the plan for the active jobs of one company.
func CompanyJobs(companyID int64) Plan {
	return Jobs(JobFilter{CompanyID: &companyID}, "", "")
}

// Active returns criteria restricting a query to publicly visible records.
func Active() repository.SelectCriteria {
	return Compile([]Predicate{activeStatus()})
}

func activeStatus() Predicate {
	return Predicate{Field: "status", Operator: OpEq, Value: model.StatusActive}
}

func normalizeSet(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}
