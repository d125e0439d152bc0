// Package report renders a finished sweep for reading. It does no
// statistics of its own.
package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-runewidth"
	"github.com/signalnine/sweep/internal/result"
)

const defaultMaxWidth = 32

type Options struct {
	// MaxWidth truncates table cells to this many terminal cells.
	MaxWidth int
	// Styled enables colour and bold headers.
	Styled bool
}

// Sweep is everything a report shows.
type Sweep struct {
	Header   []string
	Rows     [][]string
	Meta     *result.RunMeta
	Failures map[string]int
}

// Load reads an output CSV. When path is a run directory its results,
// run metadata and failure log are read from there.
func Load(path string) (*Sweep, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	s := &Sweep{}
	csvPath := path
	if info.IsDir() {
		csvPath = filepath.Join(path, result.ResultsFile)
		if meta, err := result.ReadRunMeta(filepath.Join(path, result.RunMetaFile)); err == nil {
			s.Meta = meta
		}
		recs, err := result.ReadFailures(filepath.Join(path, result.FailuresFile))
		if err == nil {
			s.Failures = make(map[string]int)
			for _, r := range recs {
				s.Failures[r.Kind]++
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", csvPath, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: no header row", csvPath)
	}
	s.Header, s.Rows = records[0], records[1:]
	return s, nil
}

// Generate loads path and writes it to w in format table, markdown or json.
func Generate(path, format string, w io.Writer, opts Options) error {
	s, err := Load(path)
	if err != nil {
		return err
	}
	switch format {
	case "markdown":
		return writeMarkdown(s, w)
	case "json":
		return writeJSON(s, w)
	case "", "table":
		return writeTable(s, w, opts)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

func summary(s *Sweep) string {
	if s.Meta == nil {
		return ""
	}
	m := s.Meta
	line := fmt.Sprintf("run %s: %d rows in, %d out, %d skipped, best of %d (%s)",
		m.RunID, m.RowsIn, m.RowsOut, m.RowsSkipped, m.Trials, m.Objective)
	if m.Interrupted {
		line += ", interrupted"
	}
	if len(s.Failures) > 0 {
		kinds := make([]string, 0, len(s.Failures))
		for k := range s.Failures {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		parts := make([]string, len(kinds))
		for i, k := range kinds {
			parts[i] = fmt.Sprintf("%s=%d", k, s.Failures[k])
		}
		line += "; failed trials: " + strings.Join(parts, " ")
	}
	return line
}

func writeTable(s *Sweep, w io.Writer, opts Options) error {
	maxWidth := opts.MaxWidth
	if maxWidth <= 0 {
		maxWidth = defaultMaxWidth
	}
	trunc := func(cells []string) []string {
		out := make([]string, len(cells))
		for i, c := range cells {
			out[i] = runewidth.Truncate(c, maxWidth, "…")
		}
		return out
	}

	cell := lipgloss.NewStyle().Padding(0, 1)
	head := cell
	border := lipgloss.NewStyle()
	if opts.Styled {
		head = head.Bold(true).Foreground(lipgloss.Color("12"))
		border = border.Foreground(lipgloss.Color("8"))
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(border).
		Headers(trunc(s.Header)...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return head
			}
			return cell
		})
	for _, r := range s.Rows {
		t.Row(trunc(r)...)
	}

	if line := summary(s); line != "" {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func escapeMarkdown(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func writeMarkdown(s *Sweep, w io.Writer) error {
	if line := summary(s); line != "" {
		if _, err := fmt.Fprintf(w, "%s\n\n", line); err != nil {
			return err
		}
	}
	row := func(cells []string) error {
		escaped := make([]string, len(cells))
		for i, c := range cells {
			escaped[i] = escapeMarkdown(c)
		}
		_, err := fmt.Fprintf(w, "| %s |\n", strings.Join(escaped, " | "))
		return err
	}
	if err := row(s.Header); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "|"+strings.Repeat("---|", len(s.Header))); err != nil {
		return err
	}
	for _, r := range s.Rows {
		if err := row(r); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(s *Sweep, w io.Writer) error {
	rows := make([]result.Row, 0, len(s.Rows))
	for i, rec := range s.Rows {
		r, err := result.NewRow(s.Header, rec)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
		rows = append(rows, r)
	}
	out := struct {
		Run      *result.RunMeta `json:"run,omitempty"`
		Failures map[string]int  `json:"failures,omitempty"`
		Rows     []result.Row    `json:"rows"`
	}{s.Meta, s.Failures, rows}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
