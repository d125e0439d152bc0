package result

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	RunMetaFile  = "run.json"
	FailuresFile = "failures.jsonl"
	ResultsFile  = "results.csv"
)

// CreateRunDir creates a timestamped directory under baseDir/runs and points
// baseDir/latest at it.
func CreateRunDir(baseDir string) (string, error) {
	runsDir := filepath.Join(baseDir, "runs")
	stamp := time.Now().UTC().Format("2006-01-02T15-04-05")
	runDir := filepath.Join(runsDir, stamp)
	runDir, err := filepath.Abs(runDir)
	if err != nil {
		return "", fmt.Errorf("resolving run dir: %w", err)
	}
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", fmt.Errorf("creating run dir: %w", err)
	}
	latest := filepath.Join(baseDir, "latest")
	os.Remove(latest)
	if err := os.Symlink(runDir, latest); err != nil {
		return "", fmt.Errorf("creating latest symlink: %w", err)
	}
	return runDir, nil
}

func WriteRunMeta(runDir string, meta *RunMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling run meta: %w", err)
	}
	return os.WriteFile(filepath.Join(runDir, RunMetaFile), data, 0o644)
}

func ReadRunMeta(path string) (*RunMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run meta: %w", err)
	}
	var meta RunMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing run meta: %w", err)
	}
	return &meta, nil
}

// FailureLog appends failure records to failures.jsonl in a run directory.
type FailureLog struct {
	runID string
	file  *os.File
	enc   *json.Encoder
	mu    sync.Mutex
}

func OpenFailureLog(runDir, runID string) (*FailureLog, error) {
	f, err := os.OpenFile(filepath.Join(runDir, FailuresFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening failure log: %w", err)
	}
	return &FailureLog{runID: runID, file: f, enc: json.NewEncoder(f)}, nil
}

func (l *FailureLog) Write(rec FailureRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec.RunID == "" {
		rec.RunID = l.runID
	}
	return l.enc.Encode(rec)
}

func (l *FailureLog) Close() error {
	return l.file.Close()
}

// ReadFailures loads every record from a failures.jsonl file.
func ReadFailures(path string) ([]FailureRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading failures: %w", err)
	}
	defer f.Close()

	var recs []FailureRecord
	dec := json.NewDecoder(f)
	for dec.More() {
		var rec FailureRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("parsing failures: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
