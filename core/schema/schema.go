// Package schema derives serialization schemas from models and converts
// records to and from JSON-shaped data.
//
// A Schema is built once per model and is immutable; request-time state
// such as the instance being updated or the partial flag is supplied per
// call through load options, so one Schema serves concurrent requests.
package schema

import (
	"fmt"

	"github.com/artpar/crudkit/core/field"
	"github.com/artpar/crudkit/core/model"
)

// Schema is an ordered set of field descriptors for one model.
type Schema struct {
	model  *model.Model
	fields []field.Descriptor
	index  map[string]int
}

type buildOptions struct {
	only []string
}

// Option configures Build.
type Option func(*buildOptions)

// Only restricts the schema to the named fields, kept in model declaration order.
func Only(names ...string) Option {
	return func(o *buildOptions) {
		o.only = append(o.only, names...)
	}
}

// Build translates every model field into a descriptor.
func Build(m *model.Model, opts ...Option) (*Schema, error) {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	include := make(map[string]bool, len(o.only))
	for _, name := range o.only {
		if _, ok := m.Field(name); !ok {
			return nil, fmt.Errorf("schema %s: unknown field %q", m.Name, name)
		}
		include[name] = true
	}

	s := &Schema{
		model: m,
		index: make(map[string]int, len(m.Fields)),
	}
	for _, f := range m.Fields {
		if len(include) > 0 && !include[f.Name] {
			continue
		}
		d, err := field.Translate(f)
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", m.Name, err)
		}
		s.index[d.Name] = len(s.fields)
		s.fields = append(s.fields, d)
	}
	return s, nil
}

// MustBuild is like Build but panics on error.
func MustBuild(m *model.Model, opts ...Option) *Schema {
	s, err := Build(m, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Model returns the schema's model.
func (s *Schema) Model() *model.Model {
	return s.model
}

// Fields returns the descriptors in declaration order.
func (s *Schema) Fields() []field.Descriptor {
	out := make([]field.Descriptor, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field returns the descriptor for name.
func (s *Schema) Field(name string) (field.Descriptor, bool) {
	i, ok := s.index[name]
	if !ok {
		return field.Descriptor{}, false
	}
	return s.fields[i], true
}

// FieldNames returns descriptor names in declaration order.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.fields))
	for i, d := range s.fields {
		names[i] = d.Name
	}
	return names
}

// Dump serializes every declared field of rec, read-only fields included.
// rec is not modified.
func (s *Schema) Dump(rec *model.Record) Data {
	out := newData(len(s.fields))
	for _, d := range s.fields {
		out.set(d.Name, d.Render(rec.Get(d.Name)))
	}
	return out
}

// DumpMany serializes recs in order.
func (s *Schema) DumpMany(recs []*model.Record) []Data {
	out := make([]Data, len(recs))
	for i, rec := range recs {
		out[i] = s.Dump(rec)
	}
	return out
}
