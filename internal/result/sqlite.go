package result

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteSink appends rows to a "results" table. Columns are declared without
// a type so metric values keep their numeric storage class.
type SQLiteSink struct {
	db     *sql.DB
	insert *sql.Stmt
	header []string
	mu     sync.Mutex
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// OpenSQLite opens (or creates) the database at path and prepares the table.
func OpenSQLite(path string, header []string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	cols := make([]string, len(header))
	marks := make([]string, len(header))
	for i, h := range header {
		cols[i] = quoteIdent(h)
		marks[i] = "?"
	}
	create := fmt.Sprintf("CREATE TABLE IF NOT EXISTS results (%s)", strings.Join(cols, ", "))
	if _, err := db.Exec(create); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating results table: %w", err)
	}
	stmt, err := db.Prepare(fmt.Sprintf("INSERT INTO results (%s) VALUES (%s)",
		strings.Join(cols, ", "), strings.Join(marks, ", ")))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("preparing insert: %w", err)
	}
	return &SQLiteSink{db: db, insert: stmt, header: append([]string(nil), header...)}, nil
}

func (s *SQLiteSink) Write(r Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkHeader(s.header, r); err != nil {
		return err
	}
	args := make([]any, len(r.values))
	for i, v := range r.values {
		if iv, ok := v.(interface{ Interface() any }); ok {
			args[i] = iv.Interface()
			continue
		}
		args[i] = format(v)
	}
	if _, err := s.insert.Exec(args...); err != nil {
		return fmt.Errorf("inserting row: %w", err)
	}
	return nil
}

func (s *SQLiteSink) Close() error {
	s.insert.Close()
	return s.db.Close()
}
