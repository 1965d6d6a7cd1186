package schema

import (
	"bytes"
	"encoding/json"
)

// Data is a serialized record: field name to JSON value, in schema order.
type Data struct {
	keys   []string
	values map[string]any
}

func newData(n int) Data {
	return Data{
		keys:   make([]string, 0, n),
		values: make(map[string]any, n),
	}
}

func (d *Data) set(key string, value any) {
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// Keys returns field names in order.
func (d Data) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Get returns the value for key.
func (d Data) Get(key string) (any, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Len returns the number of fields.
func (d Data) Len() int {
	return len(d.keys)
}

// Map returns the values as an unordered map.
func (d Data) Map() map[string]any {
	out := make(map[string]any, len(d.values))
	for k, v := range d.values {
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the fields as a JSON object in schema order.
func (d Data) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(d.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
