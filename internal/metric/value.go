package metric

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Type is the declared value type of a metric. The set is closed.
type Type int

const (
	Float Type = iota + 1
	Int
	String
)

// ParseType resolves a type identifier from a metric declaration.
// "str" is accepted as an alias of "string".
func ParseType(name string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "float":
		return Float, nil
	case "int":
		return Int, nil
	case "string", "str":
		return String, nil
	default:
		return 0, fmt.Errorf("%w: %q (want float, int or string)", ErrUnknownType, name)
	}
}

func (t Type) String() string {
	switch t {
	case Float:
		return "float"
	case Int:
		return "int"
	case String:
		return "string"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Parse converts captured text into a value of type t.
func (t Type) Parse(text string) (Value, error) {
	switch t {
	case Float:
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return Value{}, err
		}
		return Value{typ: Float, f: f}, nil
	case Int:
		i, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return Value{}, err
		}
		return Value{typ: Int, i: i}, nil
	case String:
		return Value{typ: String, s: text}, nil
	default:
		return Value{}, fmt.Errorf("%w: %v", ErrUnknownType, t)
	}
}

// Value is a typed metric value extracted from one trial.
type Value struct {
	typ Type
	f   float64
	i   int64
	s   string
}

func FloatValue(f float64) Value { return Value{typ: Float, f: f} }
func IntValue(i int64) Value     { return Value{typ: Int, i: i} }
func StringValue(s string) Value { return Value{typ: String, s: s} }
func (v Value) Type() Type       { return v.typ }
func (v Value) IsZero() bool     { return v.typ == 0 }

// IsNaN reports whether v is a float NaN. NaN has no place in the natural
// order, so Compare treats it as equal to everything.
func (v Value) IsNaN() bool { return v.typ == Float && math.IsNaN(v.f) }

// Compare orders two values of the same type in their natural ascending
// order. Values of different types compare by type.
func (v Value) Compare(o Value) int {
	if v.typ != o.typ {
		if v.typ < o.typ {
			return -1
		}
		return 1
	}
	switch v.typ {
	case Float:
		switch {
		case v.f < o.f:
			return -1
		case v.f > o.f:
			return 1
		}
		return 0
	case Int:
		switch {
		case v.i < o.i:
			return -1
		case v.i > o.i:
			return 1
		}
		return 0
	default:
		return strings.Compare(v.s, o.s)
	}
}

func (v Value) String() string {
	switch v.typ {
	case Float:
		s := strconv.FormatFloat(v.f, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eIN") {
			s += ".0"
		}
		return s
	case Int:
		return strconv.FormatInt(v.i, 10)
	default:
		return v.s
	}
}

// Interface returns the underlying Go value (float64, int64 or string).
func (v Value) Interface() any {
	switch v.typ {
	case Float:
		return v.f
	case Int:
		return v.i
	case String:
		return v.s
	default:
		return nil
	}
}

// MarshalJSON encodes non-finite floats as strings since JSON has no
// literal for them.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.typ == Float && (math.IsNaN(v.f) || math.IsInf(v.f, 0)) {
		return json.Marshal(v.String())
	}
	return json.Marshal(v.Interface())
}
