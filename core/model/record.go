package model

// Record is one instance of a model: a set of field values.
// A Record is owned by a single request and is not safe for concurrent use.
type Record struct {
	model  *Model
	values map[string]any
}

// NewRecord creates an empty record for m.
func NewRecord(m *Model) *Record {
	return &Record{
		model:  m,
		values: make(map[string]any, len(m.Fields)),
	}
}

// NewRecordFrom creates a record holding the given values.
// Keys that are not model fields are dropped.
func NewRecordFrom(m *Model, values map[string]any) *Record {
	r := NewRecord(m)
	for k, v := range values {
		if _, ok := m.Field(k); ok {
			r.values[k] = v
		}
	}
	return r
}

// Model returns the record's model.
func (r *Record) Model() *Model {
	return r.model
}

// Get returns the value of a field, or nil when unset.
func (r *Record) Get(name string) any {
	return r.values[name]
}

// Has reports whether a field has been set, including to nil.
func (r *Record) Has(name string) bool {
	_, ok := r.values[name]
	return ok
}

// Set assigns a field value.
func (r *Record) Set(name string, value any) {
	r.values[name] = value
}

// PK returns the primary key value.
func (r *Record) PK() any {
	return r.values[r.model.PrimaryKey().Name]
}

// Values returns a copy of the set values.
func (r *Record) Values() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}
