package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CoerceValue converts a raw legacy string into the Go value stored for
// a column of the given kind. Text passes through verbatim. Integer and
// numeric values parse strictly, except that integral floats ("10.0")
// are accepted for integer columns since legacy exports serialize every
// number through JavaScript.
func CoerceValue(kind FieldKind, raw string) (interface{}, error) {
	switch kind {
	case FieldText:
		return raw, nil

	case FieldInteger:
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			return nil, fmt.Errorf("empty value cannot be parsed as integer")
		}
		if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot parse %q as integer", raw)
		}
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("cannot parse %q as integer: fractional value", raw)
		}
		return int64(f), nil

	case FieldNumeric:
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			return nil, fmt.Errorf("empty value cannot be parsed as number")
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot parse %q as number", raw)
		}
		return f, nil

	default:
		return nil, fmt.Errorf("unknown field kind %q", kind)
	}
}

// ZeroValue returns the value stored for a column when the legacy
// payload carries no usable data for it
func ZeroValue(kind FieldKind) interface{} {
	switch kind {
	case FieldInteger:
		return int64(0)
	case FieldNumeric:
		return float64(0)
	default:
		return ""
	}
}
