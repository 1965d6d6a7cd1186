// Package model defines the data-model metadata the toolkit reads:
// named, typed fields with nullability, defaults, length limits and a
// single primary key. Persistence lives in adapters.
package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPrimaryKey is returned when a model declares no primary key.
	ErrNoPrimaryKey = errors.New("model has no primary key")

	// ErrMultiplePrimaryKeys is returned when more than one field is a primary key.
	ErrMultiplePrimaryKeys = errors.New("model has more than one primary key")
)

// Model is a table definition.
type Model struct {
	// Name is the singular model name (e.g., "author").
	Name string `yaml:"name"`

	// Table is the database table. Derived from Name when empty.
	Table string `yaml:"table,omitempty"`

	// Fields in declaration order.
	Fields []Field `yaml:"fields"`
}

// Field returns the field with the given name.
func (m *Model) Field(name string) (Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// PrimaryKey returns the primary key field.
// It panics if the model was not validated.
func (m *Model) PrimaryKey() Field {
	for _, f := range m.Fields {
		if f.PrimaryKey {
			return f
		}
	}
	panic(fmt.Sprintf("model %q: %v", m.Name, ErrNoPrimaryKey))
}

// FieldNames returns field names in declaration order.
func (m *Model) FieldNames() []string {
	names := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		names[i] = f.Name
	}
	return names
}

// Validate checks the model invariants: a name, a table, unique named
// fields and exactly one primary key.
func (m *Model) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("model name is required")
	}
	if m.Table == "" {
		return fmt.Errorf("model %q: table is required", m.Name)
	}
	if len(m.Fields) == 0 {
		return fmt.Errorf("model %q: at least one field is required", m.Name)
	}

	seen := make(map[string]bool, len(m.Fields))
	pks := 0
	for i, f := range m.Fields {
		if f.Name == "" {
			return fmt.Errorf("model %q: fields[%d].name is required", m.Name, i)
		}
		if f.Type == "" {
			return fmt.Errorf("model %q: field %q: type is required", m.Name, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("model %q: duplicate field %q", m.Name, f.Name)
		}
		seen[f.Name] = true
		if f.MaxLength < 0 {
			return fmt.Errorf("model %q: field %q: max_length must not be negative", m.Name, f.Name)
		}
		if f.PrimaryKey {
			pks++
		}
	}

	switch {
	case pks == 0:
		return fmt.Errorf("model %q: %w", m.Name, ErrNoPrimaryKey)
	case pks > 1:
		return fmt.Errorf("model %q: %w", m.Name, ErrMultiplePrimaryKeys)
	}
	return nil
}
