package query

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/artpar/crudkit/core/field"
	"github.com/artpar/crudkit/core/schema"
)

// FilterBackend narrows a queryset based on the request.
type FilterBackend interface {
	FilterQueryset(r *http.Request, qs Queryset, s *schema.Schema) (Queryset, error)
}

// FilterFunc adapts a function to FilterBackend.
type FilterFunc func(r *http.Request, qs Queryset, s *schema.Schema) (Queryset, error)

// FilterQueryset calls f.
func (f FilterFunc) FilterQueryset(r *http.Request, qs Queryset, s *schema.Schema) (Queryset, error) {
	return f(r, qs, s)
}

// ApplyFilters threads qs through backends in order.
func ApplyFilters(r *http.Request, qs Queryset, s *schema.Schema, backends []FilterBackend) (Queryset, error) {
	var err error
	for _, b := range backends {
		qs, err = b.FilterQueryset(r, qs, s)
		if err != nil {
			return nil, err
		}
	}
	return qs, nil
}

// FieldFilter matches ?<field>=<value> by equality. Values are coerced
// through the field's descriptor; an empty value on a nullable field
// matches NULL.
type FieldFilter struct {
	// Fields limits filterable fields. Empty means every schema field.
	Fields []string
}

// FilterQueryset implements FilterBackend.
func (f FieldFilter) FilterQueryset(r *http.Request, qs Queryset, s *schema.Schema) (Queryset, error) {
	params := r.URL.Query()
	verr := &schema.ValidationError{}

	var conds []Condition
	for _, d := range filterable(s, f.Fields) {
		if !params.Has(d.Name) {
			continue
		}
		raw := params.Get(d.Name)
		if raw == "" && d.Nullable {
			conds = append(conds, Eq(d.Name, nil))
			continue
		}
		v, reasons := d.Coerce(raw)
		if len(reasons) > 0 {
			addReasons(verr, d.Name, reasons)
			continue
		}
		conds = append(conds, Eq(d.Name, v))
	}

	if len(verr.Fields) > 0 {
		return nil, verr
	}
	if len(conds) == 0 {
		return qs, nil
	}
	return qs.Filter(conds...), nil
}

// SearchFilter matches ?search=<term> against string fields with OR.
type SearchFilter struct {
	// Param defaults to "search".
	Param string

	// Fields to search. Empty means every string field.
	Fields []string
}

// FilterQueryset implements FilterBackend.
func (f SearchFilter) FilterQueryset(r *http.Request, qs Queryset, s *schema.Schema) (Queryset, error) {
	param := f.Param
	if param == "" {
		param = "search"
	}
	term := strings.TrimSpace(r.URL.Query().Get(param))
	if term == "" {
		return qs, nil
	}

	var conds []Condition
	for _, d := range filterable(s, f.Fields) {
		if d.Kind == field.KindString {
			conds = append(conds, Contains(d.Name, term))
		}
	}
	if len(conds) == 0 {
		return qs, nil
	}
	return qs.Filter(Or(conds...)), nil
}

// OrderingFilter sorts by ?ordering=name,-id. A leading "-" sorts descending.
type OrderingFilter struct {
	// Param defaults to "ordering".
	Param string

	// Fields allowed for ordering. Empty means every schema field.
	Fields []string

	// Default ordering used when the parameter is absent.
	Default []Order
}

// FilterQueryset implements FilterBackend.
func (f OrderingFilter) FilterQueryset(r *http.Request, qs Queryset, s *schema.Schema) (Queryset, error) {
	param := f.Param
	if param == "" {
		param = "ordering"
	}
	raw := r.URL.Query().Get(param)
	if raw == "" {
		if len(f.Default) > 0 {
			return qs.OrderBy(f.Default...), nil
		}
		return qs, nil
	}

	allowed := make(map[string]bool)
	for _, d := range filterable(s, f.Fields) {
		allowed[d.Name] = true
	}

	var orders []Order
	for _, term := range strings.Split(raw, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		o := Asc(term)
		if strings.HasPrefix(term, "-") {
			o = Desc(term[1:])
		}
		if !allowed[o.Field] {
			return nil, &schema.ValidationError{Fields: map[string][]string{
				param: {fmt.Sprintf("Invalid ordering field %q.", o.Field)},
			}}
		}
		orders = append(orders, o)
	}
	if len(orders) == 0 {
		return qs, nil
	}
	return qs.OrderBy(orders...), nil
}

func filterable(s *schema.Schema, names []string) []field.Descriptor {
	if len(names) == 0 {
		return s.Fields()
	}
	out := make([]field.Descriptor, 0, len(names))
	for _, name := range names {
		if d, ok := s.Field(name); ok {
			out = append(out, d)
		}
	}
	return out
}

func addReasons(verr *schema.ValidationError, name string, reasons []string) {
	if verr.Fields == nil {
		verr.Fields = make(map[string][]string)
	}
	verr.Fields[name] = append(verr.Fields[name], reasons...)
}
