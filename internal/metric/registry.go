// Package metric holds the named, typed patterns used to pull measurements
// out of a benchmark's captured output.
package metric

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrDuplicateName = errors.New("duplicate metric name")
	ErrMissingGroup  = errors.New("pattern is missing capture group")
	ErrUnknownType   = errors.New("unknown metric type")
	ErrEmptyName     = errors.New("metric name is required")
)

// Spec is one registered metric. Specs are immutable once registered.
type Spec struct {
	Name    string
	Type    Type
	Pattern *regexp.Regexp
	group   int
}

// Find searches text for the first match of the spec's pattern and returns
// the text of its named group. Anchors match at line boundaries.
func (s Spec) Find(text string) (string, bool) {
	m := s.Pattern.FindStringSubmatchIndex(text)
	if m == nil {
		return "", false
	}
	start, end := m[2*s.group], m[2*s.group+1]
	if start < 0 {
		// Group did not participate in the match.
		return "", false
	}
	return text[start:end], true
}

// Decl is an uncompiled metric declaration as written by the user.
type Decl struct {
	Name    string `yaml:"name" json:"name"`
	Type    string `yaml:"type" json:"type"`
	Pattern string `yaml:"pattern" json:"pattern"`
}

// ParseDecl parses the command-line form "name:type:pattern". The pattern
// itself may contain colons.
func ParseDecl(s string) (Decl, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return Decl{}, fmt.Errorf("metric %q: want name:type:pattern", s)
	}
	return Decl{Name: parts[0], Type: parts[1], Pattern: parts[2]}, nil
}

// Registry is the ordered set of metrics a sweep extracts. The first
// registered metric is the primary one.
type Registry struct {
	specs []Spec
	index map[string]int
}

func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Build registers every declaration in order.
func Build(decls []Decl) (*Registry, error) {
	r := NewRegistry()
	for _, d := range decls {
		typ, err := ParseType(d.Type)
		if err != nil {
			return nil, fmt.Errorf("metric %q: %w", d.Name, err)
		}
		if err := r.Register(d.Name, typ, d.Pattern); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register compiles pattern in multiline mode and adds it under name.
func (r *Registry) Register(name string, typ Type, pattern string) error {
	if name == "" {
		return ErrEmptyName
	}
	if _, ok := r.index[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	if typ < Float || typ > String {
		return fmt.Errorf("metric %q: %w: %v", name, ErrUnknownType, typ)
	}
	re, err := regexp.Compile("(?m)" + pattern)
	if err != nil {
		return fmt.Errorf("metric %q: compiling pattern: %w", name, err)
	}
	group := re.SubexpIndex(name)
	if group < 0 {
		return fmt.Errorf("%w: pattern %q has no group named %q", ErrMissingGroup, pattern, name)
	}
	r.index[name] = len(r.specs)
	r.specs = append(r.specs, Spec{Name: name, Type: typ, Pattern: re, group: group})
	return nil
}

func (r *Registry) Len() int { return len(r.specs) }

// Specs returns the metrics in declaration order.
func (r *Registry) Specs() []Spec {
	return append([]Spec(nil), r.specs...)
}

// Names returns metric names in declaration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.specs))
	for i, s := range r.specs {
		names[i] = s.Name
	}
	return names
}

// Primary returns the first declared metric, the ordering key for best-of-N
// selection. It panics on an empty registry.
func (r *Registry) Primary() Spec {
	return r.specs[0]
}

func (r *Registry) Lookup(name string) (Spec, bool) {
	i, ok := r.index[name]
	if !ok {
		return Spec{}, false
	}
	return r.specs[i], true
}
