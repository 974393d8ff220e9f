package store

import (
	"context"
	"strconv"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// DefaultQueryTimeout bounds every statement issued through a Table.
const DefaultQueryTimeout = 5 * time.Second

// Table runs criteria-based queries against the table mapped to T. Reads go
// through a go-repository-bun repository; Distinct and Increment extend it
// with the two statements the repository does not offer.
type Table[T any] struct {
	db      *bun.DB
	repo    repository.Repository[*T]
	name    string
	timeout time.Duration
}

// NewTable returns a Table for model T. A timeout <= 0 uses
// DefaultQueryTimeout.
func NewTable[T any](db *bun.DB, name string, timeout time.Duration) *Table[T] {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &Table[T]{
		db: db,
		repo: repository.NewRepository[*T](db, repository.ModelHandlers[*T]{
			NewRecord: func() *T { return new(T) },
		}),
		name:    name,
		timeout: timeout,
	}
}

// Name returns the table name.
func (t *Table[T]) Name() string {
	return t.name
}

// Repository returns the repository backing reads.
func (t *Table[T]) Repository() repository.Repository[*T] {
	return t.repo
}

// unbounded clears the page size List applies when no criteria set one.
func unbounded(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Limit(0)
}

// Find returns the records matching all criteria.
func (t *Table[T]) Find(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	rows, _, err := t.repo.List(ctx, append([]repository.SelectCriteria{unbounded}, criteria...)...)
	if err != nil {
		return nil, t.wrap(err, "find")
	}

	records := make([]T, 0, len(rows))
	for _, r := range rows {
		records = append(records, *r)
	}
	return records, nil
}

// Count returns the number of records matching all criteria.
func (t *Table[T]) Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	n, err := t.repo.Count(ctx, criteria...)
	if err != nil {
		return 0, t.wrap(err, "count")
	}
	return n, nil
}

// FindByID returns the record with the given primary key and the criteria
// applied. A missing record yields a not found error.
func (t *Table[T]) FindByID(ctx context.Context, id int64, criteria ...repository.SelectCriteria) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	record, err := t.repo.GetByID(ctx, strconv.FormatInt(id, 10), criteria...)
	if err != nil {
		var zero T
		return zero, t.wrap(err, "find by id")
	}
	return *record, nil
}

// Distinct returns the sorted non-empty distinct values of column among the
// records matching all criteria.
func (t *Table[T]) Distinct(ctx context.Context, column string, criteria ...repository.SelectCriteria) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	ident := bun.Ident(column)
	q := t.db.NewSelect().
		Model((*T)(nil)).
		ColumnExpr("DISTINCT ?", ident).
		Where("? IS NOT NULL", ident).
		Where("? <> ''", ident)
	for _, c := range criteria {
		if c != nil {
			q = c(q)
		}
	}

	values := []string{}
	if err := q.OrderExpr("? ASC", ident).Scan(ctx, &values); err != nil {
		return nil, t.wrap(err, "distinct "+column)
	}
	return values, nil
}

// Increment adds one to column for every record whose id is in ids and
// returns the number of rows changed.
func (t *Table[T]) Increment(ctx context.Context, column string, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	ident := bun.Ident(column)
	res, err := t.db.NewUpdate().
		Model((*T)(nil)).
		Set("? = ? + 1", ident, ident).
		Where("? IN (?)", bun.Ident("id"), bun.In(ids)).
		Exec(ctx)
	if err != nil {
		return 0, t.wrap(err, "increment "+column)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, t.wrap(err, "rows affected")
	}
	return n, nil
}

func (t *Table[T]) wrap(err error, op string) error {
	if IsNotFound(err) {
		return goerrors.Wrap(err, goerrors.CategoryNotFound, t.name+": record not found").
			WithTextCode("NOT_FOUND")
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, t.name+": "+op+" failed").
		WithTextCode("DB_QUERY")
}

// IsNotFound reports whether err means the requested record does not exist.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if repository.IsRecordNotFound(err) {
		return true
	}
	return goerrors.IsCategory(err, goerrors.CategoryNotFound)
}
