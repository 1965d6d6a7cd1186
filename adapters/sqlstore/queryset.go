package sqlstore

import (
	"context"
	"fmt"

	"github.com/artpar/crudkit/core/model"
	"github.com/artpar/crudkit/core/query"
)

// queryset is a lazily compiled SELECT.
type queryset struct {
	pool   *Pool
	model  *model.Model
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
	return q.model
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

// selectSQL builds the full statement for cols.
func (q *queryset) selectSQL(cols string) (string, []any, error) {
	w, args, err := where(q.model, q.conds)
	if err != nil {
		return "", nil, err
	}
	order, err := orderBy(q.model, q.orders)
	if err != nil {
		return "", nil, err
	}
	stmt := fmt.Sprintf("SELECT %s FROM %s%s%s%s", cols, quote(q.model.Table), w, order, limit(q.window))
	return stmt, args, nil
}

func (q *queryset) Count(ctx context.Context) (int64, error) {
	var (
		stmt string
		args []any
		err  error
	)
	if q.window.Bounded() {
		var inner string
		inner, args, err = q.selectSQL("1")
		stmt = "SELECT COUNT(*) FROM (" + inner + ")"
	} else {
		var w string
		w, args, err = where(q.model, q.conds)
		stmt = fmt.Sprintf("SELECT COUNT(*) FROM %s%s", quote(q.model.Table), w)
	}
	if err != nil {
		return 0, err
	}

	conn, err := q.pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	var n int64
	if err := conn.QueryRowContext(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", q.model.Table, err)
	}
	return n, nil
}

func (q *queryset) Execute(ctx context.Context) ([]*model.Record, error) {
	stmt, args, err := q.selectSQL(columnList(q.model))
	if err != nil {
		return nil, err
	}

	conn, err := q.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", q.model.Table, err)
	}
	defer rows.Close()

	var out []*model.Record
	for rows.Next() {
		rec, err := scanRecord(rows, q.model)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select %s: %w", q.model.Table, err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner, m *model.Model) (*model.Record, error) {
	values := make([]any, len(m.Fields))
	dest := make([]any, len(m.Fields))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := s.Scan(dest...); err != nil {
		return nil, fmt.Errorf("scan %s: %w", m.Table, err)
	}

	rec := model.NewRecord(m)
	for i, f := range m.Fields {
		rec.Set(f.Name, fromDB(values[i], f))
	}
	return rec, nil
}
