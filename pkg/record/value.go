// Package record defines the row model shared by sources, operators and sinks.
package record

import (
	"strconv"
	"strings"
)

// Kind is the dynamic type of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "str"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Value is a typed scalar cell. The zero Value is null.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
}

// Null returns the null value.
func Null() Value { return Value{} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a float value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind reports the dynamic type.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsEmpty reports whether v is null or a whitespace-only string.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return strings.TrimSpace(v.s) == ""
	default:
		return false
	}
}

// Str returns the raw string payload and whether v is a string.
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// Int64 returns the integer payload and whether v is an int.
func (v Value) Int64() (int64, bool) { return v.i, v.kind == KindInt }

// Float64 returns the float payload and whether v is a float.
func (v Value) Float64() (float64, bool) { return v.f, v.kind == KindFloat }

// Boolean returns the boolean payload and whether v is a bool.
func (v Value) Boolean() (bool, bool) { return v.b, v.kind == KindBool }

// Text renders the value in its canonical text form. Null renders as "".
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// String implements fmt.Stringer.
func (v Value) String() string {
	if v.kind == KindNull {
		return "<null>"
	}
	return v.Text()
}

// Interface returns the value as a plain Go value (nil, string, int64,
// float64 or bool) for sinks that preserve types.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == o.s
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindBool:
		return v.b == o.b
	default:
		return true
	}
}
