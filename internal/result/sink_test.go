package result_test

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/signalnine/sweep/internal/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

type num float64

func (n num) String() string { return strconv.FormatFloat(float64(n), 'g', -1, 64) }
func (n num) Interface() any { return float64(n) }

func outputRow(t *testing.T, n string, time float64) result.Row {
	t.Helper()
	in, err := result.NewRow([]string{"n"}, []string{n})
	require.NoError(t, err)
	out, err := in.With([]string{"time"}, []any{num(time)})
	require.NoError(t, err)
	return out
}

func TestCSVSinkWritesHeaderAndFlushesRows(t *testing.T) {
	var buf bytes.Buffer
	s, err := result.NewCSVSink(&buf, []string{"n", "time"})
	require.NoError(t, err)
	assert.Equal(t, "n,time\n", buf.String())

	require.NoError(t, s.Write(outputRow(t, "10", 0.9)))
	assert.Equal(t, "n,time\n10,0.9\n", buf.String())
	require.NoError(t, s.Close())
}

func TestCSVSinkRejectsMismatchedRow(t *testing.T) {
	var buf bytes.Buffer
	s, err := result.NewCSVSink(&buf, []string{"n", "ops"})
	require.NoError(t, err)
	assert.Error(t, s.Write(outputRow(t, "1", 1)))
}

func TestCreateCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	s, err := result.CreateCSV(path, []string{"n", "time"})
	require.NoError(t, err)
	require.NoError(t, s.Write(outputRow(t, "a,b", 1)))

	// Durable before Close.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "n,time\n\"a,b\",1\n", string(data))
	require.NoError(t, s.Close())
}

func TestJSONLSink(t *testing.T) {
	var buf bytes.Buffer
	s := result.NewJSONLSink(&buf, []string{"n", "time"})
	require.NoError(t, s.Write(outputRow(t, "10", 0.5)))
	require.NoError(t, s.Close())
	assert.Equal(t, "{\"n\":\"10\",\"time\":0.5}\n", buf.String())
}

func TestSQLiteSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	s, err := result.OpenSQLite(path, []string{"n", "time"})
	require.NoError(t, err)
	require.NoError(t, s.Write(outputRow(t, "10", 0.5)))
	require.NoError(t, s.Write(outputRow(t, "20", 0.25)))
	require.NoError(t, s.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var (
		n    string
		time float64
	)
	require.NoError(t, db.QueryRow(`SELECT "n", "time" FROM results ORDER BY "time" LIMIT 1`).Scan(&n, &time))
	assert.Equal(t, "20", n)
	assert.Equal(t, 0.25, time)
}

func TestMultiSink(t *testing.T) {
	var a, b bytes.Buffer
	csvSink, err := result.NewCSVSink(&a, []string{"n", "time"})
	require.NoError(t, err)
	m := result.MultiSink{csvSink, result.NewJSONLSink(&b, []string{"n", "time"})}

	require.NoError(t, m.Write(outputRow(t, "1", 2)))
	require.NoError(t, m.Close())
	assert.Contains(t, a.String(), "1,2")
	assert.Contains(t, b.String(), `"n":"1"`)
}
