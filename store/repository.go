package store

import (
	"context"

	repository "github.com/goliatone/go-repository-bun"
)

// Lister is the read side of a go-repository-bun repository.
type Lister[T any] interface {
	List(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, int, error)
	Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error)
}

var _ Lister[any] = (repository.Repository[any])(nil)

// RepositorySource lets an existing repository.Repository back searches in
// place of a Table.
type RepositorySource[T any] struct {
	repo Lister[T]
}

// FromRepository adapts repo so it can feed the paginator.
func FromRepository[T any](repo Lister[T]) *RepositorySource[T] {
	return &RepositorySource[T]{repo: repo}
}

// Find returns the records matching all criteria. The total reported by
// List is discarded; the paginator issues its own count query.
func (r *RepositorySource[T]) Find(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, error) {
	records, _, err := r.repo.List(ctx, criteria...)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Count returns the number of records matching all criteria.
func (r *RepositorySource[T]) Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error) {
	return r.repo.Count(ctx, criteria...)
}
