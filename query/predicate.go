// Package query composes search predicates and sort orders into
// repository.SelectCriteria for bun select queries. A Plan carries the
// predicates of one search; its Rows and Count criteria share them so a page
// and its total always agree.
package query

import (
	"fmt"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// Operator is the comparison a predicate applies.
type Operator string

const (
	// OpContains is a case-insensitive substring match.
	OpContains Operator = "contains"
	// OpEq is an exact match.
	OpEq Operator = "eq"
	// OpGte is an inclusive lower bound.
	OpGte Operator = "gte"
	// OpLte is an inclusive upper bound.
	OpLte Operator = "lte"
	// OpIn is set membership. Value must be a slice.
	OpIn Operator = "in"
)

// Predicate is a single filter condition. When Also is set the condition
// holds if it holds for Field or any of the extra columns.
type Predicate struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
	Also     []string `json:"also,omitempty"`
}

// Columns returns Field followed by Also.
func (p Predicate) Columns() []string {
	return append([]string{p.Field}, p.Also...)
}

func (p Predicate) String() string {
	return fmt.Sprintf("%s %s %v", strings.Join(p.Columns(), "|"), p.Operator, p.Value)
}

// Order is a single ORDER BY term.
type Order struct {
	Column string `json:"column"`
	Desc   bool   `json:"desc"`
}

// Plan is a composed query: one predicate list shared by the row query and
// the count query, plus the row ordering.
type Plan struct {
	Predicates []Predicate `json:"predicates"`
	Order      []Order     `json:"order"`
}

// Rows returns criteria for the row query: predicates and ordering.
func (p Plan) Rows() repository.SelectCriteria {
	where := Compile(p.Predicates)
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		q = where(q)
		for _, o := range p.Order {
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			q = q.OrderExpr("? "+dir, bun.Ident(o.Column))
		}
		return q
	}
}

// Count returns criteria for the count query: the same predicates as Rows,
// without ordering.
func (p Plan) Count() repository.SelectCriteria {
	return Compile(p.Predicates)
}

// Compile turns predicates into a single criteria function. Predicates are
// ANDed in order.
func Compile(predicates []Predicate) repository.SelectCriteria {
	preds := append([]Predicate(nil), predicates...)
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		for _, p := range preds {
			q = apply(q, p)
		}
		return q
	}
}

func apply(q *bun.SelectQuery, p Predicate) *bun.SelectQuery {
	columns := p.Columns()
	if len(columns) == 1 {
		expr, args := condition(columns[0], p)
		return q.Where(expr, args...)
	}

	return q.WhereGroup(" AND ", func(g *bun.SelectQuery) *bun.SelectQuery {
		for i, column := range columns {
			expr, args := condition(column, p)
			if i == 0 {
				g = g.Where(expr, args...)
			} else {
				g = g.WhereOr(expr, args...)
			}
		}
		return g
	})
}

func condition(column string, p Predicate) (string, []any) {
	ident := bun.Ident(column)

	switch p.Operator {
	case OpContains:
		return "LOWER(?) LIKE ? ESCAPE '!'", []any{ident, likePattern(fmt.Sprint(p.Value))}
	case OpEq:
		return "? = ?", []any{ident, p.Value}
	case OpGte:
		return "? >= ?", []any{ident, p.Value}
	case OpLte:
		return "? <= ?", []any{ident, p.Value}
	case OpIn:
		return "? IN (?)", []any{ident, bun.In(p.Value)}
	}

	// An unknown operator must never widen the result set.
	return "1 = 0", nil
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func likePattern(value string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(value)) + "%"
}
