package store

import (
	"context"
	"database/sql"
	"time"

	goerrors "github.com/goliatone/go-errors"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-search-cache/model"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Options configures Open.
type Options struct {
	Driver       string
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	ConnMaxLife  time.Duration
}

// Open connects to Postgres (lib/pq) or SQLite (mattn/go-sqlite3) and wraps
// the connection in a bun.DB with the matching dialect.
func Open(opts Options) (*bun.DB, error) {
	var (
		sqldb *sql.DB
		db    *bun.DB
		err   error
	)

	switch opts.Driver {
	case DriverPostgres:
		sqldb, err = sql.Open("postgres", opts.DSN)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open postgres").
				WithTextCode("DB_OPEN")
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	case DriverSQLite, "sqlite":
		sqldb, err = sql.Open(DriverSQLite, opts.DSN)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open sqlite").
				WithTextCode("DB_OPEN")
		}
		// an in-memory database lives only as long as its connection
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	default:
		return nil, goerrors.New("unsupported database driver: "+opts.Driver, goerrors.CategoryValidation).
			WithTextCode("DB_DRIVER")
	}

	if opts.MaxOpenConns > 0 && opts.Driver == DriverPostgres {
		sqldb.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqldb.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLife > 0 {
		sqldb.SetConnMaxLifetime(opts.ConnMaxLife)
	}

	return db, nil
}

// Models lists the tables the search layer reads.
func Models() []any {
	return []any{
		(*model.Company)(nil),
		(*model.User)(nil),
		(*model.Job)(nil),
	}
}

// CreateSchema creates the marketplace tables and their filter indexes if
// they do not exist.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	for _, m := range Models() {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create table").
				WithTextCode("DB_SCHEMA")
		}
	}

	indexes := []struct {
		model   any
		name    string
		columns []string
	}{
		{(*model.Job)(nil), "idx_jobs_status_created_at", []string{"status", "created_at"}},
		{(*model.Job)(nil), "idx_jobs_company_id", []string{"company_id"}},
		{(*model.Job)(nil), "idx_jobs_industry", []string{"industry"}},
		{(*model.Company)(nil), "idx_companies_status", []string{"status"}},
		{(*model.User)(nil), "idx_users_status_role", []string{"status", "role"}},
	}
	for _, idx := range indexes {
		_, err := db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			Column(idx.columns...).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create index "+idx.name).
				WithTextCode("DB_SCHEMA")
		}
	}

	return nil
}
