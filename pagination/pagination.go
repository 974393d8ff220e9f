// Package pagination executes a filtered row query and its count query and
// assembles the uniform paginated envelope returned by every search.
package pagination

import (
	"context"
	"math"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params selects a page. Zero or negative values fall back to defaults.
type Params struct {
	Page      int    `json:"page,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	SortBy    string `json:"sortBy,omitempty"`
	SortOrder string `json:"sortOrder,omitempty"`
}

// Normalize applies defaults: page < 1 becomes 1, limit < 1 becomes 20 and
// limit is capped at MaxLimit.
func Normalize(p Params) Params {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Offset returns (page-1)*limit for normalized params.
func (p Params) Offset() int {
	p = Normalize(p)
	return (p.Page - 1) * p.Limit
}

// Meta describes where a page sits in the full result set.
type Meta struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// NewMeta derives the page counters from page, limit and total.
func NewMeta(page, limit, total int) Meta {
	p := Normalize(Params{Page: page, Limit: limit})
	if total < 0 {
		total = 0
	}
	totalPages := int(math.Ceil(float64(total) / float64(p.Limit)))
	return Meta{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    p.Page < totalPages,
		HasPrev:    p.Page > 1,
	}
}

// Result is the paginated envelope.
type Result[T any] struct {
	Data       []T  `json:"data"`
	Pagination Meta `json:"pagination"`
}

// Empty returns the degraded envelope: no data, page 1, total 0.
func Empty[T any](limit int) Result[T] {
	return Result[T]{
		Data:       []T{},
		Pagination: NewMeta(DefaultPage, limit, 0),
	}
}

// Source executes row and count queries against the datastore.
type Source[T any] interface {
	Find(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, error)
	Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error)
}

// Paginate runs the count query and the limited row query concurrently and
// waits for both. Limit and offset are applied to the row query only. On
// failure it logs and returns Empty together with the error, so callers can
// decide whether to surface it.
func Paginate[T any](ctx context.Context, logger *zap.Logger, src Source[T], rows, count repository.SelectCriteria, params Params) (Result[T], error) {
	params = Normalize(params)
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		data  []T
		total int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := src.Count(gctx, count)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "count query failed")
		}
		total = n
		return nil
	})
	g.Go(func() error {
		window := func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Limit(params.Limit).Offset(params.Offset())
		}
		records, err := src.Find(gctx, rows, window)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "data query failed")
		}
		data = records
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("pagination failed",
			zap.Int("page", params.Page),
			zap.Int("limit", params.Limit),
			zap.Error(err),
		)
		return Empty[T](params.Limit), err
	}

	if data == nil {
		data = []T{}
	}
	if len(data) > params.Limit {
		data = data[:params.Limit]
	}

	return Result[T]{
		Data:       data,
		Pagination: NewMeta(params.Page, params.Limit, total),
	}, nil
}
