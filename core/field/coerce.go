package field

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Validation messages.
const (
	MsgNull          = "Field may not be null."
	MsgRequired      = "Missing data for required field."
	MsgUnknown       = "Unknown field."
	MsgInvalidInt    = "Not a valid integer."
	MsgInvalidNumber = "Not a valid number."
	MsgInvalidDec    = "Not a valid decimal."
	MsgInvalidString = "Not a valid string."
	MsgInvalidUUID   = "Not a valid UUID."
	MsgInvalidDT     = "Not a valid datetime."
	MsgInvalidDate   = "Not a valid date."
	MsgInvalidTime   = "Not a valid time."
	MsgInvalidBool   = "Not a valid boolean."
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

var decimalPattern = regexp.MustCompile(`^[+-]?(\d+)(?:\.(\d+))?$`)

var (
	truthy = map[string]bool{"true": true, "t": true, "1": true, "yes": true, "y": true, "on": true}
	falsy  = map[string]bool{"false": true, "f": true, "0": true, "no": true, "n": true, "off": true}
)

// Coerce validates an input value and converts it to the kind's canonical
// Go representation. It returns every violation found for the value.
//
// Canonical values: int64, float64, decimal string, string, UUID string,
// time.Time (UTC), date string, time string, bool.
func (d Descriptor) Coerce(v any) (any, []string) {
	if v == nil {
		if d.Nullable {
			return nil, nil
		}
		return nil, []string{MsgNull}
	}

	switch d.Kind {
	case KindInt:
		if n, ok := toInt64(v); ok {
			return n, nil
		}
		return nil, []string{MsgInvalidInt}

	case KindFloat:
		if f, ok := toFloat64(v); ok {
			return f, nil
		}
		return nil, []string{MsgInvalidNumber}

	case KindDecimal:
		return d.coerceDecimal(v)

	case KindString:
		s, ok := v.(string)
		if !ok {
			return nil, []string{MsgInvalidString}
		}
		if d.MaxLength > 0 && utf8.RuneCountInString(s) > d.MaxLength {
			return nil, []string{fmt.Sprintf("Longer than maximum length %d.", d.MaxLength)}
		}
		return s, nil

	case KindUUID:
		switch u := v.(type) {
		case uuid.UUID:
			return u.String(), nil
		case string:
			parsed, err := uuid.Parse(u)
			if err != nil {
				return nil, []string{MsgInvalidUUID}
			}
			return parsed.String(), nil
		}
		return nil, []string{MsgInvalidUUID}

	case KindDateTime:
		if t, ok := toTime(v); ok {
			return t, nil
		}
		return nil, []string{MsgInvalidDT}

	case KindDate:
		switch t := v.(type) {
		case time.Time:
			return t.Format(dateLayout), nil
		case string:
			parsed, err := time.Parse(dateLayout, t)
			if err != nil {
				return nil, []string{MsgInvalidDate}
			}
			return parsed.Format(dateLayout), nil
		}
		return nil, []string{MsgInvalidDate}

	case KindTime:
		switch t := v.(type) {
		case time.Time:
			return t.Format(timeLayout), nil
		case string:
			for _, layout := range []string{"15:04:05.999999999", "15:04"} {
				if parsed, err := time.Parse(layout, t); err == nil {
					return parsed.Format(timeLayout), nil
				}
			}
		}
		return nil, []string{MsgInvalidTime}

	case KindBoolean:
		if b, ok := toBool(v); ok {
			return b, nil
		}
		return nil, []string{MsgInvalidBool}
	}

	return nil, []string{fmt.Sprintf("Unsupported kind %s.", d.Kind)}
}

func (d Descriptor) coerceDecimal(v any) (any, []string) {
	var s string
	switch n := v.(type) {
	case json.Number:
		s = n.String()
	case string:
		s = strings.TrimSpace(n)
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, []string{MsgInvalidDec}
		}
		s = strconv.FormatFloat(n, 'f', -1, 64)
	case []byte:
		s = string(n)
	default:
		i, ok := toInt64(v)
		if !ok {
			return nil, []string{MsgInvalidDec}
		}
		s = strconv.FormatInt(i, 10)
	}

	m := decimalPattern.FindStringSubmatch(s)
	if m == nil {
		return nil, []string{MsgInvalidDec}
	}
	s = strings.TrimPrefix(s, "+")

	var reasons []string
	intDigits, fracDigits := len(strings.TrimLeft(m[1], "0")), len(m[2])
	if d.Scale > 0 && fracDigits > d.Scale {
		reasons = append(reasons, fmt.Sprintf("Ensure that there are no more than %d decimal places.", d.Scale))
	}
	if d.Precision > 0 && intDigits+fracDigits > d.Precision {
		reasons = append(reasons, fmt.Sprintf("Ensure that there are no more than %d digits in total.", d.Precision))
	}
	if len(reasons) > 0 {
		return nil, reasons
	}
	return s, nil
}

// Render converts a stored value into its JSON representation.
// Values the kind cannot interpret are passed through unchanged.
func (d Descriptor) Render(v any) any {
	if v == nil {
		return nil
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}

	switch d.Kind {
	case KindInt:
		if n, ok := toInt64(v); ok {
			return n
		}
	case KindFloat:
		if f, ok := toFloat64(v); ok {
			return f
		}
	case KindDecimal:
		if s, reasons := d.coerceDecimal(v); len(reasons) == 0 {
			return s
		}
	case KindDateTime:
		if t, ok := toTime(v); ok {
			return t.Format(time.RFC3339Nano)
		}
	case KindDate:
		switch t := v.(type) {
		case time.Time:
			return t.Format(dateLayout)
		case string:
			if len(t) >= len(dateLayout) {
				return t[:len(dateLayout)]
			}
		}
	case KindBoolean:
		if b, ok := toBool(v); ok {
			return b
		}
	case KindString, KindUUID, KindTime:
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}
	return v
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float32:
		return integral(float64(n))
	case float64:
		return integral(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return integral(f)
		}
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

func integral(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

func toFloat64(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		i, ok := toInt64(v)
		if !ok {
			return 0, false
		}
		f = float64(i)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), true
	case string:
		for _, layout := range dateTimeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed.UTC(), true
			}
		}
	}
	return time.Time{}, false
}

func toBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		s := strings.ToLower(strings.TrimSpace(b))
		if truthy[s] {
			return true, true
		}
		if falsy[s] {
			return false, true
		}
		return false, false
	}
	if n, ok := toInt64(v); ok && (n == 0 || n == 1) {
		return n == 1, true
	}
	return false, false
}
