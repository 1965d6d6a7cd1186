package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/artpar/crudkit/core/model"
)

// CreateTableSQL generates CREATE TABLE SQL for m.
func CreateTableSQL(m *model.Model) string {
	columns := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		columns[i] = columnDef(f)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)",
		quote(m.Table), strings.Join(columns, ",\n  "))
}

// EnsureTable creates the table for m if it does not exist.
// Existing tables are left untouched.
func EnsureTable(ctx context.Context, pool *Pool, m *model.Model) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, CreateTableSQL(m)); err != nil {
		return fmt.Errorf("create table %s: %w", m.Table, err)
	}
	return nil
}

func columnDef(f model.Field) string {
	parts := []string{quote(f.Name), f.SQLType()}

	if f.PrimaryKey {
		parts = append(parts, "PRIMARY KEY")
	} else if !f.Nullable {
		parts = append(parts, "NOT NULL")
	}

	if f.Default != nil {
		if def := formatDefault(f.Default); def != "" {
			parts = append(parts, "DEFAULT "+def)
		}
	}

	return strings.Join(parts, " ")
}

func formatDefault(val any) string {
	switch v := val.(type) {
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case int, int32, int64:
		return fmt.Sprintf("%d", v)
	case float32, float64:
		return fmt.Sprintf("%v", v)
	case bool:
		if v {
			return "1"
		}
		return "0"
	default:
		return ""
	}
}
