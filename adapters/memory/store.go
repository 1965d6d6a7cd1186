// Package memory provides an in-memory record store for one model.
// It serves tests and prototyping where a database is not wanted.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/artpar/crudkit/core/model"
	"github.com/artpar/crudkit/core/query"
)

// Store is an in-memory table. It is safe for concurrent use.
type Store struct {
	model *model.Model

	mu     sync.RWMutex
	rows   []map[string]any // insertion order
	nextID int64
}

// NewStore creates an empty store for m.
func NewStore(m *model.Model) *Store {
	return &Store{
		model:  m,
		nextID: 1,
	}
}

// All returns a queryset over every row.
func (s *Store) All() query.Queryset {
	return &queryset{store: s, window: query.All}
}

// Get returns the single row matching conds.
func (s *Store) Get(ctx context.Context, conds ...query.Condition) (*model.Record, error) {
	return query.Get(ctx, s.All().Filter(conds...))
}

// Create inserts rec and returns the stored record. An integer primary key
// left unset is assigned automatically.
func (s *Store) Create(ctx context.Context, rec *model.Record) (*model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pk := s.model.PrimaryKey()
	values := rec.Values()
	if values[pk.Name] == nil && pk.IsAutoIncrement() {
		values[pk.Name] = s.nextID
	}
	if values[pk.Name] == nil {
		return nil, fmt.Errorf("create %s: primary key %q is required", s.model.Name, pk.Name)
	}
	if s.indexOf(values[pk.Name]) >= 0 {
		return nil, fmt.Errorf("create %s: duplicate primary key %v", s.model.Name, values[pk.Name])
	}
	if id, ok := values[pk.Name].(int64); ok && id >= s.nextID {
		s.nextID = id + 1
	}

	for _, f := range s.model.Fields {
		if _, ok := values[f.Name]; !ok {
			values[f.Name] = nil
		}
	}
	s.rows = append(s.rows, values)
	return model.NewRecordFrom(s.model, values), nil
}

// Update overwrites the row with rec's primary key.
func (s *Store) Update(ctx context.Context, rec *model.Record) (*model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(rec.PK())
	if i < 0 {
		return nil, query.ErrNotFound
	}
	for k, v := range rec.Values() {
		s.rows[i][k] = v
	}
	return model.NewRecordFrom(s.model, s.rows[i]), nil
}

// Delete removes the row with rec's primary key.
func (s *Store) Delete(ctx context.Context, rec *model.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(rec.PK())
	if i < 0 {
		return query.ErrNotFound
	}
	s.rows = append(s.rows[:i], s.rows[i+1:]...)
	return nil
}

// Len returns the number of stored rows.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func (s *Store) indexOf(pk any) int {
	name := s.model.PrimaryKey().Name
	for i, row := range s.rows {
		if equal(row[name], pk) {
			return i
		}
	}
	return -1
}

// snapshot copies the rows so evaluation runs without the lock.
func (s *Store) snapshot() []map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]map[string]any, len(s.rows))
	for i, row := range s.rows {
		cp := make(map[string]any, len(row))
		for k, v := range row {
			cp[k] = v
		}
		out[i] = cp
	}
	return out
}
