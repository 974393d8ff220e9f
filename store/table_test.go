package store_test

import (
	"context"
	"errors"
	"testing"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-search-cache/model"
	"github.com/goliatone/go-search-cache/pkg/testsupport"
	"github.com/goliatone/go-search-cache/query"
	"github.com/goliatone/go-search-cache/store"
)

func TestOpen_UnsupportedDriver(t *testing.T) {
	db, err := store.Open(store.Options{Driver: "oracle"})
	assert.Nil(t, db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle")
}

func TestTable_FindAndCountShareCriteria(t *testing.T) {
	db := testsupport.OpenSQLite(t)
	testsupport.SeedJobs(t, db, 10, func(i int, j *model.Job) {
		if i%2 == 0 {
			j.Industry = "Finance"
		}
		if i == 9 {
			j.Status = "closed"
		}
	})

	jobs := store.NewTable[model.Job](db, "jobs", 0)
	plan := query.Jobs(query.JobFilter{Industry: "Technology"}, "", "")
	ctx := context.Background()

	rows, err := jobs.Find(ctx, plan.Rows())
	require.NoError(t, err)
	total, err := jobs.Count(ctx, plan.Count())
	require.NoError(t, err)

	// ids 1,3,5,7 remain; 9 is closed
	assert.Equal(t, 4, total)
	require.Len(t, rows, 4)
	assert.Equal(t, int64(7), rows[0].ID)
	assert.Equal(t, int64(1), rows[3].ID)
}

func TestTable_FindByID(t *testing.T) {
	db := testsupport.OpenSQLite(t)
	testsupport.SeedJobs(t, db, 3, nil)
	jobs := store.NewTable[model.Job](db, "jobs", 0)
	ctx := context.Background()

	job, err := jobs.FindByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Job 2", job.Title)

	_, err = jobs.FindByID(ctx, 99)
	require.Error(t, err)
	assert.True(t, store.IsNotFound(err))
}

func TestTable_FindWithoutLimitReturnsEveryRow(t *testing.T) {
	db := testsupport.OpenSQLite(t)
	testsupport.SeedJobs(t, db, 40, nil)
	jobs := store.NewTable[model.Job](db, "jobs", 0)
	ctx := context.Background()

	rows, err := jobs.Find(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 40)

	page, err := jobs.Find(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Order("id ASC").Limit(5).Offset(30)
	})
	require.NoError(t, err)
	require.Len(t, page, 5)
	assert.Equal(t, int64(31), page[0].ID)
}

func TestTable_ReadsThroughRepository(t *testing.T) {
	db := testsupport.OpenSQLite(t)
	testsupport.SeedJobs(t, db, 3, nil)
	jobs := store.NewTable[model.Job](db, "jobs", 0)
	ctx := context.Background()

	repo := jobs.Repository()
	total, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	job, err := repo.GetByID(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "Job 2", job.Title)

	_, err = repo.GetByID(ctx, "99")
	require.Error(t, err)
	assert.True(t, store.IsNotFound(err))
}

func TestTable_Distinct(t *testing.T) {
	db := testsupport.OpenSQLite(t)
	testsupport.SeedJobs(t, db, 6, func(i int, j *model.Job) {
		switch i {
		case 1, 2:
			j.Location = "Berlin"
		case 3:
			j.Location = ""
		case 4:
			j.Location = "Austin"
			j.Status = "closed"
		}
	})
	jobs := store.NewTable[model.Job](db, "jobs", 0)

	all, err := jobs.Distinct(context.Background(), "location")
	require.NoError(t, err)
	assert.Equal(t, []string{"Austin", "Berlin", "Remote"}, all)

	active, err := jobs.Distinct(context.Background(), "location", query.Compile([]query.Predicate{
		{Field: "status", Operator: query.OpEq, Value: model.StatusActive},
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"Berlin", "Remote"}, active)
}

func TestTable_Increment(t *testing.T) {
	db := testsupport.OpenSQLite(t)
	testsupport.SeedJobs(t, db, 4, nil)
	jobs := store.NewTable[model.Job](db, "jobs", 0)
	ctx := context.Background()

	n, err := jobs.Increment(ctx, "views", []int64{1, 3})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = jobs.Increment(ctx, "views", nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	job, err := jobs.FindByID(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), job.Views)

	job, err = jobs.FindByID(ctx, 2)
	require.NoError(t, err)
	assert.Zero(t, job.Views)
}

func TestTableStats_Collect(t *testing.T) {
	db := testsupport.OpenSQLite(t)
	testsupport.SeedJobs(t, db, 3, nil)
	testsupport.SeedCompanies(t, db, []model.Company{{Name: "Acme"}})

	stats, err := store.NewTableStats(db, "jobs", "companies", "users").Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 3)
	assert.Equal(t, store.TableStat{Table: "jobs", Rows: 3}, stats[0])
	assert.Equal(t, int64(1), stats[1].Rows)
	assert.Equal(t, int64(0), stats[2].Rows)
}

type fakeLister struct {
	records    []model.Job
	err        error
	listCalls  int
	countCalls int
}

func (f *fakeLister) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]model.Job, int, error) {
	f.listCalls++
	return f.records, len(f.records), f.err
}

func (f *fakeLister) Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error) {
	f.countCalls++
	return len(f.records), f.err
}

func TestRepositorySource(t *testing.T) {
	lister := &fakeLister{records: testsupport.Jobs(2, nil)}
	src := store.FromRepository[model.Job](lister)
	noop := func(q *bun.SelectQuery) *bun.SelectQuery { return q }

	rows, err := src.Find(context.Background(), noop)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	n, err := src.Count(context.Background(), noop)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, lister.listCalls)
	assert.Equal(t, 1, lister.countCalls)

	lister.err = errors.New("boom")
	_, err = src.Find(context.Background())
	assert.Error(t, err)
}

func TestIsNotFound(t *testing.T) {
	assert.False(t, store.IsNotFound(nil))
	assert.False(t, store.IsNotFound(errors.New("other")))
}
