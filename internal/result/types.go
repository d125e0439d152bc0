package result

import "time"

// RunMeta describes one sweep and is stored as run.json in the run directory.
type RunMeta struct {
	RunID       string       `json:"run_id"`
	StartedAt   time.Time    `json:"started_at"`
	FinishedAt  time.Time    `json:"finished_at"`
	Command     []string     `json:"command"`
	Metrics     []MetricMeta `json:"metrics"`
	Trials      int          `json:"trials"`
	Objective   string       `json:"objective"`
	Inputs      []string     `json:"inputs,omitempty"`
	Output      string       `json:"output,omitempty"`
	RowsIn      int          `json:"rows_in"`
	RowsOut     int          `json:"rows_out"`
	RowsSkipped int          `json:"rows_skipped"`
	Interrupted bool         `json:"interrupted"`
}

type MetricMeta struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Pattern string `json:"pattern"`
}

// FailureRecord is the diagnostic trace of one failed trial.
type FailureRecord struct {
	RunID      string   `json:"run_id,omitempty"`
	Row        int      `json:"row"`
	Trial      int      `json:"trial"`
	Kind       string   `json:"kind"`
	Argv       []string `json:"argv"`
	ExitCode   int      `json:"exit_code"`
	Missing    string   `json:"missing,omitempty"`
	Output     []string `json:"output"`
	Stderr     []string `json:"stderr,omitempty"`
	Error      string   `json:"error,omitempty"`
	DurationMS int64    `json:"duration_ms"`
}
