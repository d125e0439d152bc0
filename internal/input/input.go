// Package input reads parameter rows from CSV tables. Several tables are
// combined by row-wise cross product.
package input

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/signalnine/sweep/internal/result"
)

// Source yields parameter rows. Next returns io.EOF after the last row.
type Source interface {
	Header() []string
	Next() (result.Row, error)
}

// CSVSource streams rows from a single CSV with a header line.
type CSVSource struct {
	r      *csv.Reader
	header []string
}

func NewCSVSource(r io.Reader) (*CSVSource, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("input has no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if err := checkColumns(header); err != nil {
		return nil, err
	}
	return &CSVSource{r: cr, header: header}, nil
}

func (s *CSVSource) Header() []string { return append([]string(nil), s.header...) }

func (s *CSVSource) Next() (result.Row, error) {
	rec, err := s.r.Read()
	if err != nil {
		if err == io.EOF {
			return result.Row{}, io.EOF
		}
		return result.Row{}, fmt.Errorf("reading row: %w", err)
	}
	return result.NewRow(s.header, rec)
}

// Table is a fully loaded CSV.
type Table struct {
	Header  []string
	Records [][]string
}

func ReadTable(r io.Reader) (*Table, error) {
	src, err := NewCSVSource(r)
	if err != nil {
		return nil, err
	}
	recs, err := src.r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}
	return &Table{Header: src.header, Records: recs}, nil
}

// Product iterates the cross product of several tables. The last table
// varies fastest.
type Product struct {
	tables []*Table
	header []string
	pos    []int
	done   bool
}

func Cross(tables ...*Table) (*Product, error) {
	if len(tables) == 0 {
		return nil, errors.New("no input tables")
	}
	var header []string
	for _, t := range tables {
		header = append(header, t.Header...)
	}
	if err := checkColumns(header); err != nil {
		return nil, err
	}
	p := &Product{tables: tables, header: header, pos: make([]int, len(tables))}
	for _, t := range tables {
		if len(t.Records) == 0 {
			p.done = true
		}
	}
	return p, nil
}

func (p *Product) Header() []string { return append([]string(nil), p.header...) }

func (p *Product) Next() (result.Row, error) {
	if p.done {
		return result.Row{}, io.EOF
	}
	var values []string
	for i, t := range p.tables {
		values = append(values, t.Records[p.pos[i]]...)
	}
	for i := len(p.pos) - 1; i >= 0; i-- {
		p.pos[i]++
		if p.pos[i] < len(p.tables[i].Records) {
			break
		}
		p.pos[i] = 0
		if i == 0 {
			p.done = true
		}
	}
	return result.NewRow(p.header, values)
}

// Open builds a Source from paths. No paths reads stdin; one path streams;
// several paths are loaded and crossed. The returned closer releases files.
func Open(paths []string, stdin io.Reader) (Source, io.Closer, error) {
	switch len(paths) {
	case 0:
		src, err := NewCSVSource(stdin)
		if err != nil {
			return nil, nil, fmt.Errorf("stdin: %w", err)
		}
		return src, nopCloser{}, nil
	case 1:
		f, err := os.Open(paths[0])
		if err != nil {
			return nil, nil, err
		}
		src, err := NewCSVSource(f)
		if err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("%s: %w", paths[0], err)
		}
		return src, f, nil
	}

	tables := make([]*Table, 0, len(paths))
	for _, path := range paths {
		t, err := readTableFile(path)
		if err != nil {
			return nil, nil, err
		}
		tables = append(tables, t)
	}
	p, err := Cross(tables...)
	if err != nil {
		return nil, nil, err
	}
	return p, nopCloser{}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func readTableFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := ReadTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func checkColumns(header []string) error {
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		if seen[h] {
			return fmt.Errorf("duplicate input column %q", h)
		}
		seen[h] = true
	}
	return nil
}
