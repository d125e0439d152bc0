package result

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Row is an ordered set of named column values. Input rows hold strings;
// output rows append typed metric values after the input columns. A Row is
// never mutated after construction.
type Row struct {
	names  []string
	values []any
	index  map[string]int
}

// NewRow builds a row from parallel name and value slices.
func NewRow(names, values []string) (Row, error) {
	if len(names) != len(values) {
		return Row{}, fmt.Errorf("row has %d values for %d columns", len(values), len(names))
	}
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = v
	}
	return newRow(append([]string(nil), names...), vals)
}

func newRow(names []string, values []any) (Row, error) {
	index := make(map[string]int, len(names))
	for i, n := range names {
		if _, dup := index[n]; dup {
			return Row{}, fmt.Errorf("duplicate column %q", n)
		}
		index[n] = i
	}
	return Row{names: names, values: values, index: index}, nil
}

func (r Row) Len() int { return len(r.names) }

func (r Row) Names() []string {
	return append([]string(nil), r.names...)
}

// Get returns the string form of a column.
func (r Row) Get(name string) (string, bool) {
	i, ok := r.index[name]
	if !ok {
		return "", false
	}
	return format(r.values[i]), true
}

// Value returns a column's underlying value.
func (r Row) Value(name string) (any, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.values[i], true
}

// Strings returns every column's string form in column order.
func (r Row) Strings() []string {
	out := make([]string, len(r.values))
	for i, v := range r.values {
		out[i] = format(v)
	}
	return out
}

// With derives a new row with extra columns appended after the existing ones.
func (r Row) With(names []string, values []any) (Row, error) {
	if len(names) != len(values) {
		return Row{}, fmt.Errorf("%d values for %d appended columns", len(values), len(names))
	}
	allNames := make([]string, 0, len(r.names)+len(names))
	allNames = append(append(allNames, r.names...), names...)
	allValues := make([]any, 0, len(r.values)+len(values))
	allValues = append(append(allValues, r.values...), values...)
	return newRow(allNames, allValues)
}

// MarshalJSON encodes the row as an object whose keys follow column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range r.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", n, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func format(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}
