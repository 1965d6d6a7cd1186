package memory

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/artpar/crudkit/core/model"
	"github.com/artpar/crudkit/core/query"
)

type queryset struct {
	store  *Store
	conds  []query.Condition
	orders []query.Order
	window query.Window
}

func (q *queryset) clone() *queryset {
	cp := *q
	cp.conds = append([]query.Condition(nil), q.conds...)
	cp.orders = append([]query.Order(nil), q.orders...)
	return &cp
}

func (q *queryset) Model() *model.Model {
	return q.store.model
}

func (q *queryset) Filter(conds ...query.Condition) query.Queryset {
	cp := q.clone()
	cp.conds = append(cp.conds, conds...)
	return cp
}

func (q *queryset) OrderBy(orders ...query.Order) query.Queryset {
	cp := q.clone()
	cp.orders = append([]query.Order(nil), orders...)
	return cp
}

func (q *queryset) Slice(offset, limit int) query.Queryset {
	cp := q.clone()
	cp.window = q.window.Narrow(offset, limit)
	return cp
}

func (q *queryset) Count(ctx context.Context) (int64, error) {
	rows, err := q.rows(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

func (q *queryset) Execute(ctx context.Context) ([]*model.Record, error) {
	rows, err := q.rows(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Record, len(rows))
	for i, row := range rows {
		out[i] = model.NewRecordFrom(q.store.model, row)
	}
	return out, nil
}

func (q *queryset) rows(ctx context.Context) ([]map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows []map[string]any
	for _, row := range q.store.snapshot() {
		ok, err := matchAll(row, q.conds)
		if err != nil {
			return nil, err
		}
		if ok {
			rows = append(rows, row)
		}
	}

	if len(q.orders) > 0 {
		sort.SliceStable(rows, func(i, j int) bool {
			for _, o := range q.orders {
				c := compare(rows[i][o.Field], rows[j][o.Field])
				if c == 0 {
					continue
				}
				if o.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	start := q.window.Offset
	if start > len(rows) {
		start = len(rows)
	}
	end := len(rows)
	if q.window.Limit >= 0 && start+q.window.Limit < end {
		end = start + q.window.Limit
	}
	return rows[start:end], nil
}

func matchAll(row map[string]any, conds []query.Condition) (bool, error) {
	for _, c := range conds {
		ok, err := match(row, c)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func match(row map[string]any, c query.Condition) (bool, error) {
	switch c := c.(type) {
	case query.Compare:
		switch c.Op {
		case query.OpEq:
			return equal(row[c.Field], c.Value), nil
		case query.OpContains:
			s, ok := row[c.Field].(string)
			if !ok {
				return false, nil
			}
			return strings.Contains(strings.ToLower(s), strings.ToLower(fmt.Sprint(c.Value))), nil
		}
		return false, fmt.Errorf("unsupported operator %q", c.Op)
	case query.AnyOf:
		for _, child := range c {
			ok, err := match(row, child)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
	return false, fmt.Errorf("unsupported condition %T", c)
}

func equal(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}

// compare orders nil first, then by value for like-typed operands.
func compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	switch av := a.(type) {
	case int64:
		if bv, ok := b.(int64); ok {
			return cmpOrdered(av, bv)
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return cmpOrdered(av, bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	case bool:
		if bv, ok := b.(bool); ok && av != bv {
			if !av {
				return -1
			}
			return 1
		}
		return 0
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
