package field

// Kind is a serialization field kind.
type Kind int

const (
	KindInt Kind = iota + 1
	KindFloat
	KindDecimal
	KindString
	KindUUID
	KindDateTime
	KindDate
	KindTime
	KindBoolean
)

var kindNames = map[Kind]string{
	KindInt:      "int",
	KindFloat:    "float",
	KindDecimal:  "decimal",
	KindString:   "string",
	KindUUID:     "uuid",
	KindDateTime: "datetime",
	KindDate:     "date",
	KindTime:     "time",
	KindBoolean:  "boolean",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// JSONType returns the JSON Schema type and format for the kind.
func (k Kind) JSONType() (typ, format string) {
	switch k {
	case KindInt:
		return "integer", "int64"
	case KindFloat:
		return "number", "double"
	case KindDecimal:
		return "string", "decimal"
	case KindUUID:
		return "string", "uuid"
	case KindDateTime:
		return "string", "date-time"
	case KindDate:
		return "string", "date"
	case KindTime:
		return "string", "time"
	case KindBoolean:
		return "boolean", ""
	default:
		return "string", ""
	}
}
