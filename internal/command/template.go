// Package command turns an argument-vector template with {field}
// placeholders into a concrete argv for one parameter row.
package command

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownField      = errors.New("unknown field")
	ErrMalformedTemplate = errors.New("malformed template")
)

// UnknownFieldError reports a placeholder that names a field the row lacks.
type UnknownFieldError struct {
	Field string
	Arg   int
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("argument %d: %s %q", e.Arg, ErrUnknownField, e.Field)
}

func (e *UnknownFieldError) Unwrap() error { return ErrUnknownField }

// Fields is the read side of a parameter row.
type Fields interface {
	Get(name string) (string, bool)
}

type segment struct {
	text  string
	field bool
}

// Template is a compiled argument vector. It is immutable and safe to share.
type Template struct {
	raw  []string
	args [][]segment
}

// Compile parses every argument. "{{" and "}}" produce literal braces; any
// other unbalanced brace is an error.
func Compile(argv []string) (*Template, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrMalformedTemplate)
	}
	t := &Template{raw: append([]string(nil), argv...)}
	for i, a := range argv {
		segs, err := parseArg(a)
		if err != nil {
			return nil, fmt.Errorf("argument %d %q: %w", i, a, err)
		}
		t.args = append(t.args, segs)
	}
	return t, nil
}

func parseArg(a string) ([]segment, error) {
	var (
		segs []segment
		lit  strings.Builder
	)
	for i := 0; i < len(a); i++ {
		switch c := a[i]; c {
		case '{':
			if i+1 < len(a) && a[i+1] == '{' {
				lit.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexAny(a[i+1:], "{}")
			if end < 0 || a[i+1+end] != '}' {
				return nil, fmt.Errorf("%w: unterminated placeholder at offset %d", ErrMalformedTemplate, i)
			}
			name := a[i+1 : i+1+end]
			if name == "" {
				return nil, fmt.Errorf("%w: empty placeholder at offset %d", ErrMalformedTemplate, i)
			}
			if lit.Len() > 0 {
				segs = append(segs, segment{text: lit.String()})
				lit.Reset()
			}
			segs = append(segs, segment{text: name, field: true})
			i += end + 1
		case '}':
			if i+1 < len(a) && a[i+1] == '}' {
				lit.WriteByte('}')
				i++
				continue
			}
			return nil, fmt.Errorf("%w: single '}' at offset %d", ErrMalformedTemplate, i)
		default:
			lit.WriteByte(c)
		}
	}
	if lit.Len() > 0 || len(segs) == 0 {
		segs = append(segs, segment{text: lit.String()})
	}
	return segs, nil
}

// Fields returns the distinct placeholder names in order of first use.
func (t *Template) Fields() []string {
	seen := make(map[string]bool)
	var names []string
	for _, segs := range t.args {
		for _, s := range segs {
			if s.field && !seen[s.text] {
				seen[s.text] = true
				names = append(names, s.text)
			}
		}
	}
	return names
}

// Raw returns the template as written.
func (t *Template) Raw() []string {
	return append([]string(nil), t.raw...)
}

func (t *Template) String() string {
	return strings.Join(t.raw, " ")
}

// Materialize substitutes row values into every argument. Substituted text is
// never rescanned, so values containing braces are kept verbatim.
func (t *Template) Materialize(row Fields) ([]string, error) {
	argv := make([]string, len(t.args))
	for i, segs := range t.args {
		var b strings.Builder
		for _, s := range segs {
			if !s.field {
				b.WriteString(s.text)
				continue
			}
			v, ok := row.Get(s.text)
			if !ok {
				return nil, &UnknownFieldError{Field: s.text, Arg: i}
			}
			b.WriteString(v)
		}
		argv[i] = b.String()
	}
	return argv, nil
}
