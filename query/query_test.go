package query

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-search-cache/model"
	"github.com/goliatone/go-search-cache/pkg/testsupport"
)

func TestToSnake(t *testing.T) {
	cases := map[string]string{
		"":           "",
		"createdAt":  "created_at",
		"salaryMin":  "salary_min",
		"created_at": "created_at",
		"salary-min": "salary_min",
		"Views":      "views",
		"HTTPStatus": "http_status",
	}
	for in, want := range cases {
		assert.Equal(t, want, toSnake(in), "toSnake(%q)", in)
	}
}

func TestSorting(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		assert.Equal(t, []Order{
			{Column: "created_at", Desc: true},
			{Column: "id", Desc: true},
		}, Sorting(JobSortColumns, "", ""))
	})

	t.Run("camel case field ascending", func(t *testing.T) {
		assert.Equal(t, []Order{
			{Column: "salary_min", Desc: false},
			{Column: "id", Desc: false},
		}, Sorting(JobSortColumns, "salaryMin", "ASC"))
	})

	t.Run("unknown field falls back", func(t *testing.T) {
		order := Sorting(JobSortColumns, "password; DROP TABLE jobs", "desc")
		assert.Equal(t, "created_at", order[0].Column)
		assert.True(t, order[0].Desc)
	})

	t.Run("unknown direction is descending", func(t *testing.T) {
		order := Sorting(CompanySortColumns, "name", "sideways")
		assert.Equal(t, "name", order[0].Column)
		assert.True(t, order[0].Desc)
	})
}

func TestFilterPredicates_EmptyFilterOnlyActive(t *testing.T) {
	want := []Predicate{{Field: "status", Operator: OpEq, Value: model.StatusActive}}

	assert.Equal(t, want, JobFilter{}.Predicates())
	assert.Equal(t, want, CompanyFilter{}.Predicates())
	assert.Equal(t, want, UserFilter{Search: "   "}.Predicates())
}

func TestJobFilter_Predicates(t *testing.T) {
	companyID := int64(4)
	salaryMin := 60000
	f := JobFilter{
		Search:          " golang ",
		CompanyID:       &companyID,
		SalaryMin:       &salaryMin,
		EmploymentTypes: []string{"part-time", "full-time", "part-time", ""},
	}

	preds := f.Predicates()
	require.Len(t, preds, 5)
	assert.Equal(t, Predicate{Field: "title", Operator: OpContains, Value: "golang", Also: []string{"description"}}, preds[0])
	assert.Equal(t, Predicate{Field: "company_id", Operator: OpEq, Value: int64(4)}, preds[1])
	assert.Equal(t, Predicate{Field: "salary_min", Operator: OpGte, Value: 60000}, preds[2])
	assert.Equal(t, Predicate{Field: "employment_type", Operator: OpIn, Value: []string{"full-time", "part-time"}}, preds[3])
	assert.Equal(t, "status", preds[4].Field)
}

func TestNormalize_EquivalentFiltersAreEqual(t *testing.T) {
	a := JobFilter{EmploymentTypes: []string{"contract", "full-time"}, Location: "Berlin "}
	b := JobFilter{EmploymentTypes: []string{"full-time", "contract", "contract"}, Location: "Berlin"}
	assert.Equal(t, a.Normalize(), b.Normalize())

	assert.Nil(t, JobFilter{EmploymentTypes: []string{" ", ""}}.Normalize().EmploymentTypes)
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%go%", likePattern("Go"))
	assert.Equal(t, "%100!%!_off!!%", likePattern("100%_off!"))
}

func TestPredicateString(t *testing.T) {
	p := Predicate{Field: "name", Operator: OpContains, Value: "acme", Also: []string{"description"}}
	assert.Equal(t, "name|description contains acme", p.String())
}

func TestPlan_RowsAndCountShareWhere(t *testing.T) {
	db := testsupport.OpenSQLite(t)
	plan := Jobs(JobFilter{Search: "go_dev", Industry: "Technology"}, "title", "asc")

	base := func() *bun.SelectQuery { return db.NewSelect().Model((*model.Job)(nil)) }
	rowsSQL := plan.Rows()(base()).String()
	countSQL := plan.Count()(base()).String()

	assert.True(t, strings.HasPrefix(rowsSQL, countSQL), "rows: %s\ncount: %s", rowsSQL, countSQL)
	assert.NotContains(t, countSQL, "ORDER BY")
	assert.Contains(t, rowsSQL, "ORDER BY")
	assert.Contains(t, countSQL, `LOWER("title") LIKE '%go!_dev%' ESCAPE '!'`)
	assert.Contains(t, countSQL, `LOWER("description") LIKE '%go!_dev%' ESCAPE '!'`)
	assert.Contains(t, countSQL, `"industry" = 'Technology'`)
	assert.Contains(t, countSQL, `"status" = 'active'`)
}

func TestCompile_UnknownOperatorMatchesNothing(t *testing.T) {
	db := testsupport.OpenSQLite(t)
	testsupport.SeedJobs(t, db, 3, nil)

	var jobs []model.Job
	q := db.NewSelect().Model(&jobs)
	q = Compile([]Predicate{{Field: "title", Operator: "regex", Value: ".*"}})(q)
	require.NoError(t, q.Scan(context.Background()))
	assert.Empty(t, jobs)
}

func TestPlans_AgainstSQLite(t *testing.T) {
	db := testsupport.OpenSQLite(t)
	ctx := context.Background()
	testsupport.SeedJobs(t, db, 8, func(i int, j *model.Job) {
		switch i {
		case 1:
			j.Title = "Senior Go Engineer"
		case 2:
			j.Description = "We write GO all day"
		case 3:
			j.SalaryMin = 80000
			j.SalaryMax = 120000
		case 4:
			j.EmploymentType = "contract"
		case 5:
			j.Status = "draft"
			j.Title = "Go Intern"
		case 6:
			j.Views = 50
			j.Location = "Berlin, DE"
		}
	})

	find := func(p Plan) []int64 {
		t.Helper()
		var jobs []model.Job
		q := p.Rows()(db.NewSelect().Model(&jobs))
		require.NoError(t, q.Scan(ctx))
		ids := make([]int64, 0, len(jobs))
		for _, j := range jobs {
			ids = append(ids, j.ID)
		}
		return ids
	}
	count := func(p Plan) int {
		t.Helper()
		n, err := p.Count()(db.NewSelect().Model((*model.Job)(nil))).Count(ctx)
		require.NoError(t, err)
		return n
	}

	t.Run("search matches title or description case-insensitively", func(t *testing.T) {
		p := Jobs(JobFilter{Search: "go"}, "", "")
		assert.Equal(t, []int64{2, 1}, find(p))
		assert.Equal(t, 2, count(p))
	})

	t.Run("salary bounds", func(t *testing.T) {
		lo, hi := 70000, 150000
		p := Jobs(JobFilter{SalaryMin: &lo, SalaryMax: &hi}, "", "")
		assert.Equal(t, []int64{3}, find(p))
	})

	t.Run("membership", func(t *testing.T) {
		p := Jobs(JobFilter{EmploymentTypes: []string{"contract"}}, "", "")
		assert.Equal(t, []int64{4}, find(p))
	})

	t.Run("no filters returns every active job", func(t *testing.T) {
		p := Jobs(JobFilter{}, "createdAt", "asc")
		assert.Equal(t, []int64{1, 2, 3, 4, 6, 7, 8}, find(p))
		assert.Equal(t, 7, count(p))
	})

	t.Run("recommendations order by views", func(t *testing.T) {
		p := Recommendations(model.User{Industry: "Technology"})
		ids := find(p)
		require.NotEmpty(t, ids)
		assert.Equal(t, int64(6), ids[0])
		assert.NotContains(t, ids, int64(5))
	})

	t.Run("recommendations use location substring", func(t *testing.T) {
		p := Recommendations(model.User{Location: "berlin"})
		assert.Equal(t, []int64{6}, find(p))
	})
}
