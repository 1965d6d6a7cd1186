package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/artpar/crudkit/core/field"
	"github.com/artpar/crudkit/core/model"
)

// ValidationError collects every field violation found by Load.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s: %s", name, strings.Join(e.Fields[name], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(name string, reasons ...string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[name] = append(e.Fields[name], reasons...)
}

type loadOptions struct {
	instance *model.Record
	partial  bool
}

// LoadOption configures a single Load call.
type LoadOption func(*loadOptions)

// Instance binds an existing record. Load writes validated values into it
// instead of creating a new record.
func Instance(rec *model.Record) LoadOption {
	return func(o *loadOptions) {
		o.instance = rec
	}
}

// Partial skips defaults and required checks for fields absent from the input.
func Partial() LoadOption {
	return func(o *loadOptions) {
		o.partial = true
	}
}

// Load validates data and returns the resulting record.
//
// Every supplied field is coerced through its descriptor and all violations
// are returned together as a *ValidationError; nothing is written in that
// case. Read-only fields in data are ignored. Fields that are not part of
// the schema are violations.
func (s *Schema) Load(data map[string]any, opts ...LoadOption) (*model.Record, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	verr := &ValidationError{}
	values := make(map[string]any, len(s.fields))

	for name, raw := range data {
		d, ok := s.Field(name)
		if !ok {
			verr.add(name, field.MsgUnknown)
			continue
		}
		if d.ReadOnly {
			continue
		}
		v, reasons := d.Coerce(raw)
		if len(reasons) > 0 {
			verr.add(name, reasons...)
			continue
		}
		values[name] = v
	}

	if !o.partial {
		for _, d := range s.fields {
			if d.ReadOnly {
				continue
			}
			if _, ok := data[d.Name]; ok {
				continue
			}
			switch {
			case d.HasDefault():
				values[d.Name] = d.Default
			case d.Nullable:
				if o.instance == nil {
					values[d.Name] = nil
				}
			default:
				verr.add(d.Name, field.MsgRequired)
			}
		}
	}

	if len(verr.Fields) > 0 {
		return nil, verr
	}

	rec := o.instance
	if rec == nil {
		rec = model.NewRecord(s.model)
	}
	for name, v := range values {
		rec.Set(name, v)
	}
	return rec, nil
}
