package model

import "fmt"

// Type is a native column type as declared by the data model.
type Type string

const (
	// Integer family
	TypeInteger  Type = "integer"
	TypeBigInt   Type = "bigint"
	TypeSmallInt Type = "smallint"

	// Numeric family. A non-zero Scale makes a numeric column decimal-capable.
	TypeNumeric Type = "numeric"
	TypeDecimal Type = "decimal"

	// Floating point
	TypeFloat  Type = "float"
	TypeReal   Type = "real"
	TypeDouble Type = "double"

	// Character data
	TypeString  Type = "string"
	TypeVarchar Type = "varchar"
	TypeChar    Type = "char"
	TypeText    Type = "text"

	TypeUUID Type = "uuid"

	// Temporal
	TypeTimestamp Type = "timestamp"
	TypeDateTime  Type = "datetime"
	TypeDate      Type = "date"
	TypeTime      Type = "time"

	TypeBoolean Type = "boolean"

	// Declared by models but not serializable.
	TypeBlob Type = "blob"
	TypeJSON Type = "json"
)

// Field describes one column of a model.
type Field struct {
	// Name is the column and attribute name.
	Name string `yaml:"name"`

	// Type is the native column type.
	Type Type `yaml:"type"`

	// Nullable allows NULL values.
	Nullable bool `yaml:"nullable,omitempty"`

	// Default is used when a value is not supplied on create.
	Default any `yaml:"default,omitempty"`

	// MaxLength limits character data. Zero means unlimited.
	MaxLength int `yaml:"max_length,omitempty"`

	// PrimaryKey marks the single identifying column.
	PrimaryKey bool `yaml:"primary_key,omitempty"`

	// Precision and Scale apply to numeric and decimal columns.
	Precision int `yaml:"precision,omitempty"`
	Scale     int `yaml:"scale,omitempty"`
}

// HasDefault reports whether the field declares a default value.
func (f Field) HasDefault() bool {
	return f.Default != nil
}

// IsAutoIncrement reports whether the database assigns the value on insert.
// Integer primary keys are row-id aliases in SQLite.
func (f Field) IsAutoIncrement() bool {
	if !f.PrimaryKey {
		return false
	}
	switch f.Type {
	case TypeInteger, TypeBigInt, TypeSmallInt:
		return true
	}
	return false
}

// SQLType returns the SQLite column type for this field.
func (f Field) SQLType() string {
	switch f.Type {
	case TypeInteger, TypeBigInt, TypeSmallInt, TypeBoolean, TypeTimestamp:
		return "INTEGER"
	case TypeFloat, TypeReal, TypeDouble:
		return "REAL"
	case TypeNumeric, TypeDecimal:
		if f.Scale > 0 {
			// Stored as text to keep exact digits.
			return "TEXT"
		}
		return "INTEGER"
	case TypeString, TypeVarchar, TypeChar:
		if f.MaxLength > 0 {
			return fmt.Sprintf("VARCHAR(%d)", f.MaxLength)
		}
		return "TEXT"
	case TypeBlob:
		return "BLOB"
	default:
		return "TEXT"
	}
}
