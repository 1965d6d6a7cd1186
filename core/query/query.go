// Package query defines the composable queryset abstraction and the request
// pipeline that narrows it: filter backends, then pagination.
package query

import (
	"context"
	"errors"

	"github.com/artpar/crudkit/core/model"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Queryset is an immutable, lazily evaluated query over one model.
// Every method that returns a Queryset returns a new value; none of them
// can widen the row set of the receiver.
type Queryset interface {
	// Model returns the model the queryset reads.
	Model() *model.Model

	// Filter narrows the rows to those matching every condition.
	Filter(conds ...Condition) Queryset

	// OrderBy replaces the ordering.
	OrderBy(orders ...Order) Queryset

	// Slice restricts the rows to a window. A negative limit means no limit.
	Slice(offset, limit int) Queryset

	// Count returns the number of rows the queryset yields.
	Count(ctx context.Context) (int64, error)

	// Execute runs the query.
	Execute(ctx context.Context) ([]*model.Record, error)
}

// Op is a comparison operator.
type Op string

const (
	OpEq       Op = "eq"
	OpContains Op = "contains"
)

// Condition is a predicate tree node.
type Condition interface {
	condition()
}

// Compare is a single field comparison.
type Compare struct {
	Field string
	Op    Op
	Value any
}

func (Compare) condition() {}

// AnyOf matches when at least one child matches.
type AnyOf []Condition

func (AnyOf) condition() {}

// Eq matches rows where field equals value. A nil value matches NULL.
func Eq(field string, value any) Condition {
	return Compare{Field: field, Op: OpEq, Value: value}
}

// Contains matches rows whose field contains term, case-insensitively.
func Contains(field, term string) Condition {
	return Compare{Field: field, Op: OpContains, Value: term}
}

// Or matches when any of conds matches.
func Or(conds ...Condition) Condition {
	return AnyOf(conds)
}

// Order is one sort key.
type Order struct {
	Field string
	Desc  bool
}

// Asc sorts ascending on field.
func Asc(field string) Order {
	return Order{Field: field}
}

// Desc sorts descending on field.
func Desc(field string) Order {
	return Order{Field: field, Desc: true}
}

// Get executes qs and returns its single row, or ErrNotFound.
func Get(ctx context.Context, qs Queryset) (*model.Record, error) {
	recs, err := qs.Slice(0, 1).Execute(ctx)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	return recs[0], nil
}
