package sqlstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/artpar/crudkit/core/model"
	"github.com/artpar/crudkit/core/query"
)

// quote returns an identifier quoted for SQLite.
func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func columnList(m *model.Model) string {
	cols := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		cols[i] = quote(f.Name)
	}
	return strings.Join(cols, ", ")
}

// where compiles conds into a WHERE clause. Field names are checked
// against the model so nothing user-supplied reaches the SQL text.
func where(m *model.Model, conds []query.Condition) (string, []any, error) {
	if len(conds) == 0 {
		return "", nil, nil
	}
	parts := make([]string, 0, len(conds))
	var args []any
	for _, c := range conds {
		clause, a, err := compile(m, c)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, clause)
		args = append(args, a...)
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func compile(m *model.Model, c query.Condition) (string, []any, error) {
	switch c := c.(type) {
	case query.Compare:
		f, ok := m.Field(c.Field)
		if !ok {
			return "", nil, fmt.Errorf("filter: unknown field %q", c.Field)
		}
		col := quote(f.Name)
		switch c.Op {
		case query.OpEq:
			if c.Value == nil {
				return col + " IS NULL", nil, nil
			}
			return col + " = ?", []any{toDB(c.Value)}, nil
		case query.OpContains:
			term := strings.ToLower(fmt.Sprint(c.Value))
			return "LOWER(" + col + `) LIKE ? ESCAPE '\'`, []any{"%" + escapeLike(term) + "%"}, nil
		}
		return "", nil, fmt.Errorf("filter: unsupported operator %q", c.Op)

	case query.AnyOf:
		if len(c) == 0 {
			return "0", nil, nil
		}
		parts := make([]string, 0, len(c))
		var args []any
		for _, child := range c {
			clause, a, err := compile(m, child)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, clause)
			args = append(args, a...)
		}
		return "(" + strings.Join(parts, " OR ") + ")", args, nil
	}
	return "", nil, fmt.Errorf("filter: unsupported condition %T", c)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// orderBy compiles orders, falling back to the primary key so pages are stable.
func orderBy(m *model.Model, orders []query.Order) (string, error) {
	if len(orders) == 0 {
		return " ORDER BY " + quote(m.PrimaryKey().Name), nil
	}
	parts := make([]string, 0, len(orders))
	for _, o := range orders {
		if _, ok := m.Field(o.Field); !ok {
			return "", fmt.Errorf("order: unknown field %q", o.Field)
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		parts = append(parts, quote(o.Field)+" "+dir)
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

func limit(w query.Window) string {
	if !w.Bounded() {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", w.Limit, w.Offset)
}

// toDB converts a canonical field value to a driver value.
func toDB(v any) any {
	switch val := v.(type) {
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case bool:
		if val {
			return int64(1)
		}
		return int64(0)
	}
	return v
}

// fromDB converts a scanned value to the record representation of f.
func fromDB(v any, f model.Field) any {
	if v == nil {
		return nil
	}
	switch f.Type {
	case model.TypeBoolean:
		switch val := v.(type) {
		case int64:
			return val != 0
		case bool:
			return val
		}
	case model.TypeBlob:
		return v
	}
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
