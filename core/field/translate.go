// Package field translates native model columns into serialization field
// descriptors and implements per-kind coercion and rendering.
package field

import (
	"errors"
	"fmt"

	"github.com/artpar/crudkit/core/model"
)

// ErrUnsupportedFieldType is returned for native types with no serialization kind.
var ErrUnsupportedFieldType = errors.New("unsupported field type")

// Descriptor describes how one model field is serialized and validated.
// Descriptors are immutable once built.
type Descriptor struct {
	Name      string
	Kind      Kind
	Nullable  bool
	Default   any // already coerced to Kind; nil when the field has no default
	MaxLength int
	ReadOnly  bool

	// Precision and Scale constrain KindDecimal values.
	Precision int
	Scale     int
}

// HasDefault reports whether the descriptor carries a default.
func (d Descriptor) HasDefault() bool {
	return d.Default != nil
}

type rule struct {
	match func(model.Field) bool
	kind  Kind
}

// translationTable is scanned in order and the first match wins.
// Narrow matches must precede the broader ones that would also claim them:
// scaled numerics are decimal before the integer family takes numerics,
// and timestamps are epoch integers before the date-time family takes them.
var translationTable = []rule{
	{isScaledNumeric, KindDecimal},
	{isIntegerFamily, KindInt},
	{isTimestamp, KindInt},
	{isFloat, KindFloat},
	{isUUID, KindUUID},
	{isCharacter, KindString},
	{isDateTimeFamily, KindDateTime},
	{is(model.TypeDate), KindDate},
	{is(model.TypeTime), KindTime},
	{is(model.TypeBoolean), KindBoolean},
}

// Translate maps one model field to its descriptor.
// The primary key becomes read-only.
func Translate(f model.Field) (Descriptor, error) {
	for _, r := range translationTable {
		if !r.match(f) {
			continue
		}

		d := Descriptor{
			Name:      f.Name,
			Kind:      r.kind,
			Nullable:  f.Nullable,
			MaxLength: f.MaxLength,
			ReadOnly:  f.PrimaryKey,
			Precision: f.Precision,
			Scale:     f.Scale,
		}
		if r.kind != KindString {
			d.MaxLength = 0
		}

		if f.Default != nil {
			v, reasons := d.Coerce(f.Default)
			if len(reasons) > 0 {
				return Descriptor{}, fmt.Errorf("field %q: invalid default %v: %s", f.Name, f.Default, reasons[0])
			}
			d.Default = v
		}
		return d, nil
	}

	return Descriptor{}, fmt.Errorf("%w: field %q has type %q", ErrUnsupportedFieldType, f.Name, f.Type)
}

func is(t model.Type) func(model.Field) bool {
	return func(f model.Field) bool { return f.Type == t }
}

func isNumeric(f model.Field) bool {
	return f.Type == model.TypeNumeric || f.Type == model.TypeDecimal
}

func isScaledNumeric(f model.Field) bool {
	return isNumeric(f) && f.Scale > 0
}

func isIntegerFamily(f model.Field) bool {
	switch f.Type {
	case model.TypeInteger, model.TypeBigInt, model.TypeSmallInt:
		return true
	}
	return isNumeric(f)
}

func isTimestamp(f model.Field) bool {
	return f.Type == model.TypeTimestamp
}

func isFloat(f model.Field) bool {
	switch f.Type {
	case model.TypeFloat, model.TypeReal, model.TypeDouble:
		return true
	}
	return false
}

func isUUID(f model.Field) bool {
	return f.Type == model.TypeUUID
}

func isCharacter(f model.Field) bool {
	switch f.Type {
	case model.TypeString, model.TypeVarchar, model.TypeChar, model.TypeText:
		return true
	}
	return false
}

func isDateTimeFamily(f model.Field) bool {
	return f.Type == model.TypeDateTime || f.Type == model.TypeTimestamp
}
