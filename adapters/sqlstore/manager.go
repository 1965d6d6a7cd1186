package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/artpar/crudkit/core/model"
	"github.com/artpar/crudkit/core/query"
)

// Manager reads and writes the records of one model.
type Manager struct {
	pool  *Pool
	model *model.Model
}

// NewManager creates a manager for m backed by pool.
func NewManager(pool *Pool, m *model.Model) *Manager {
	return &Manager{pool: pool, model: m}
}

// Model returns the managed model.
func (m *Manager) Model() *model.Model {
	return m.model
}

// All returns a queryset over every row.
func (m *Manager) All() query.Queryset {
	return &queryset{pool: m.pool, model: m.model, window: query.All}
}

// Get returns the single row matching conds, or query.ErrNotFound.
func (m *Manager) Get(ctx context.Context, conds ...query.Condition) (*model.Record, error) {
	return query.Get(ctx, m.All().Filter(conds...))
}

// Create inserts rec and returns the stored row.
func (m *Manager) Create(ctx context.Context, rec *model.Record) (*model.Record, error) {
	pk := m.model.PrimaryKey()

	var cols, marks []string
	var args []any
	for _, f := range m.model.Fields {
		if !rec.Has(f.Name) {
			continue
		}
		if f.PrimaryKey && rec.Get(f.Name) == nil && f.IsAutoIncrement() {
			continue
		}
		cols = append(cols, quote(f.Name))
		marks = append(marks, "?")
		args = append(args, toDB(rec.Get(f.Name)))
	}

	stmt := fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", quote(m.model.Table))
	if len(cols) > 0 {
		stmt = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			quote(m.model.Table), strings.Join(cols, ", "), strings.Join(marks, ", "))
	}

	var out *model.Record
	err := m.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, stmt, args...)
		if err != nil {
			return fmt.Errorf("insert %s: %w", m.model.Table, err)
		}

		id := rec.Get(pk.Name)
		if id == nil && pk.IsAutoIncrement() {
			lastID, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("insert %s: last insert id: %w", m.model.Table, err)
			}
			id = lastID
		}

		out, err = m.selectByPK(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update writes every field of rec to the row with rec's primary key.
func (m *Manager) Update(ctx context.Context, rec *model.Record) (*model.Record, error) {
	pk := m.model.PrimaryKey()
	id := rec.PK()
	if id == nil {
		return nil, fmt.Errorf("update %s: record has no primary key", m.model.Table)
	}

	var sets []string
	var args []any
	for _, f := range m.model.Fields {
		if f.PrimaryKey || !rec.Has(f.Name) {
			continue
		}
		sets = append(sets, quote(f.Name)+" = ?")
		args = append(args, toDB(rec.Get(f.Name)))
	}

	var out *model.Record
	err := m.withTx(ctx, func(tx *sql.Tx) error {
		if len(sets) > 0 {
			stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
				quote(m.model.Table), strings.Join(sets, ", "), quote(pk.Name))
			res, err := tx.ExecContext(ctx, stmt, append(args, toDB(id))...)
			if err != nil {
				return fmt.Errorf("update %s: %w", m.model.Table, err)
			}
			if n, err := res.RowsAffected(); err == nil && n == 0 {
				return query.ErrNotFound
			}
		}

		var err error
		out, err = m.selectByPK(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the row with rec's primary key.
func (m *Manager) Delete(ctx context.Context, rec *model.Record) error {
	pk := m.model.PrimaryKey()
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quote(m.model.Table), quote(pk.Name))

	return m.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, stmt, toDB(rec.PK()))
		if err != nil {
			return fmt.Errorf("delete %s: %w", m.model.Table, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return query.ErrNotFound
		}
		return nil
	})
}

// withTx runs fn in a transaction on a dedicated connection. The transaction
// is committed when fn succeeds and rolled back otherwise; the connection is
// released on every path.
func (m *Manager) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (m *Manager) selectByPK(ctx context.Context, tx *sql.Tx, id any) (*model.Record, error) {
	stmt := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		columnList(m.model), quote(m.model.Table), quote(m.model.PrimaryKey().Name))

	rec, err := scanRecord(tx.QueryRowContext(ctx, stmt, toDB(id)), m.model)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, query.ErrNotFound
	}
	return rec, err
}
