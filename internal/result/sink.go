package result

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"
)

// Sink receives output rows one at a time. Every Write must leave the row
// durable before returning so an interrupted sweep keeps finished rows.
type Sink interface {
	Write(Row) error
	Close() error
}

func checkHeader(header []string, r Row) error {
	if !slices.Equal(header, r.names) {
		return fmt.Errorf("row columns %v do not match header %v", r.names, header)
	}
	return nil
}

// CSVSink writes rows as CSV and flushes after every row.
type CSVSink struct {
	file   *os.File
	writer *csv.Writer
	header []string
	mu     sync.Mutex
}

// NewCSVSink writes the header to w immediately. The caller owns w.
func NewCSVSink(w io.Writer, header []string) (*CSVSink, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return nil, err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	return &CSVSink{writer: cw, header: append([]string(nil), header...)}, nil
}

// CreateCSV creates (or truncates) path and writes the header. Rows are
// synced to disk as they are written.
func CreateCSV(path string, header []string) (*CSVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	s, err := NewCSVSink(f, header)
	if err != nil {
		f.Close()
		return nil, err
	}
	s.file = f
	return s, nil
}

func (s *CSVSink) Write(r Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkHeader(s.header, r); err != nil {
		return err
	}
	if err := s.writer.Write(r.Strings()); err != nil {
		return err
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return err
	}
	if s.file != nil {
		return s.file.Sync()
	}
	return nil
}

func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.writer.Flush()
	err := s.writer.Error()
	if s.file != nil {
		err = errors.Join(err, s.file.Close())
	}
	return err
}

// JSONLSink writes one JSON object per row, keys in column order.
type JSONLSink struct {
	file    *os.File
	encoder *json.Encoder
	header  []string
	mu      sync.Mutex
}

// NewJSONLSink wraps w. The caller owns w.
func NewJSONLSink(w io.Writer, header []string) *JSONLSink {
	return &JSONLSink{encoder: json.NewEncoder(w), header: append([]string(nil), header...)}
}

// CreateJSONL creates (or truncates) path.
func CreateJSONL(path string, header []string) (*JSONLSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	s := NewJSONLSink(f, header)
	s.file = f
	return s, nil
}

func (s *JSONLSink) Write(r Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkHeader(s.header, r); err != nil {
		return err
	}
	if err := s.encoder.Encode(r); err != nil {
		return err
	}
	if s.file != nil {
		return s.file.Sync()
	}
	return nil
}

func (s *JSONLSink) Close() error {
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

// MultiSink fans every row out to several sinks in order.
type MultiSink []Sink

func (m MultiSink) Write(r Row) error {
	for _, s := range m {
		if err := s.Write(r); err != nil {
			return err
		}
	}
	return nil
}

func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
