package dataprocessing

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Kind is the dynamic type of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindTime
)

// String returns the kind name used in logs.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindTime:
		return "time"
	default:
		return "null"
	}
}

// Value is one table cell. Times are stored as Unix milliseconds in Int so
// values compare with == and survive a cache round trip unchanged.
type Value struct {
	Kind  Kind
	Str   string
	Int   int64
	Float float64
}

// Null is the missing value.
var Null = Value{}

// StringValue wraps s. The empty string is kept as a string; use Null for
// missing cells.
func StringValue(s string) Value {
	return Value{Kind: KindString, Str: s}
}

// IntValue wraps i.
func IntValue(i int64) Value {
	return Value{Kind: KindInt, Int: i}
}

// FloatValue wraps f. NaN and infinities become Null.
func FloatValue(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null
	}
	return Value{Kind: KindFloat, Float: f}
}

// TimeValue wraps t with millisecond precision.
func TimeValue(t time.Time) Value {
	return Value{Kind: KindTime, Int: t.UnixMilli()}
}

// IsNull reports whether the value is missing.
func (v Value) IsNull() bool {
	return v.Kind == KindNull
}

// Text renders the value the way it would appear in a CSV cell.
func (v Value) Text() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case KindTime:
		t, _ := v.AsTime()
		return t.Format(time.RFC3339)
	default:
		return ""
	}
}

// AsFloat returns the numeric value for int and float kinds.
func (v Value) AsFloat() (float64, bool) {
	switch v.Kind {
	case KindFloat:
		return v.Float, true
	case KindInt:
		return float64(v.Int), true
	default:
		return 0, false
	}
}

// AsInt returns the value for int kinds and integral floats.
func (v Value) AsInt() (int64, bool) {
	switch v.Kind {
	case KindInt:
		return v.Int, true
	case KindFloat:
		if v.Float == math.Trunc(v.Float) {
			return int64(v.Float), true
		}
	}
	return 0, false
}

// AsTime returns the instant in the source timezone.
func (v Value) AsTime() (time.Time, bool) {
	if v.Kind != KindTime {
		return time.Time{}, false
	}
	return time.UnixMilli(v.Int).In(SourceLocation), true
}

// Interface returns the Go value for document building: nil, string, int64,
// float64 or time.Time.
func (v Value) Interface() interface{} {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Float
	case KindTime:
		t, _ := v.AsTime()
		return t
	default:
		return nil
	}
}

// MarshalJSON encodes the value as its natural JSON type.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}
