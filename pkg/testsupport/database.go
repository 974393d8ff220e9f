package testsupport

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-search-cache/model"
	"github.com/goliatone/go-search-cache/store"
)

// BaseTime is the creation time of the first seeded record. Each following
// record is one minute newer.
var BaseTime = time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)

// OpenSQLite returns an in-memory SQLite database with the marketplace
// schema. It is closed when the test ends.
func OpenSQLite(t testing.TB) *bun.DB {
	t.Helper()

	db, err := store.Open(store.Options{Driver: store.DriverSQLite, DSN: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := store.CreateSchema(context.Background(), db); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	return db
}

// Jobs builds n active jobs with ids 1..n. Job i is created i minutes after
// BaseTime. mutate, when not nil, adjusts each job before it is returned.
func Jobs(n int, mutate func(i int, j *model.Job)) []model.Job {
	jobs := make([]model.Job, 0, n)
	for i := 1; i <= n; i++ {
		j := model.Job{
			ID:              int64(i),
			CompanyID:       1,
			Title:           fmt.Sprintf("Job %d", i),
			Description:     "Build and operate services",
			Location:        "Remote",
			Industry:        "Technology",
			ExperienceLevel: "mid",
			EmploymentType:  "full-time",
			WorkType:        "remote",
			SalaryMin:       50000,
			SalaryMax:       90000,
			Status:          model.StatusActive,
			CreatedAt:       BaseTime.Add(time.Duration(i) * time.Minute),
		}
		if mutate != nil {
			mutate(i, &j)
		}
		jobs = append(jobs, j)
	}
	return jobs
}

// Insert writes records, a pointer to a slice of models, to db.
func Insert(t testing.TB, db bun.IDB, records any) {
	t.Helper()

	if _, err := db.NewInsert().Model(records).Exec(context.Background()); err != nil {
		t.Fatalf("failed to insert fixtures: %v", err)
	}
}

// SeedJobs inserts n jobs built by Jobs and returns them.
func SeedJobs(t testing.TB, db bun.IDB, n int, mutate func(i int, j *model.Job)) []model.Job {
	t.Helper()

	jobs := Jobs(n, mutate)
	if len(jobs) > 0 {
		Insert(t, db, &jobs)
	}
	return jobs
}

// SeedCompanies inserts companies, filling in status and creation time when
// empty.
func SeedCompanies(t testing.TB, db bun.IDB, companies []model.Company) {
	t.Helper()

	for i := range companies {
		if companies[i].Status == "" {
			companies[i].Status = model.StatusActive
		}
		if companies[i].CreatedAt.IsZero() {
			companies[i].CreatedAt = BaseTime.Add(time.Duration(i+1) * time.Minute)
		}
	}
	if len(companies) > 0 {
		Insert(t, db, &companies)
	}
}

// SeedUsers inserts users, filling in status and creation time when empty.
func SeedUsers(t testing.TB, db bun.IDB, users []model.User) {
	t.Helper()

	for i := range users {
		if users[i].Status == "" {
			users[i].Status = model.StatusActive
		}
		if users[i].CreatedAt.IsZero() {
			users[i].CreatedAt = BaseTime.Add(time.Duration(i+1) * time.Minute)
		}
	}
	if len(users) > 0 {
		Insert(t, db, &users)
	}
}
