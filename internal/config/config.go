package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/signalnine/sweep/internal/command"
	"github.com/signalnine/sweep/internal/metric"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when --config is not given. A missing default file is
// not an error.
const DefaultPath = "sweep.yaml"

const (
	CaptureCombined = "combined"
	CaptureStdout   = "stdout"

	FormatCSV   = "csv"
	FormatJSONL = "jsonl"
)

type Config struct {
	Command    []string          `yaml:"command"`
	Metrics    []metric.Decl     `yaml:"metrics"`
	Trials     int               `yaml:"trials"`
	Timeout    time.Duration     `yaml:"timeout"`
	Delay      time.Duration     `yaml:"delay"`
	Objective  string            `yaml:"objective"`
	Capture    string            `yaml:"capture"`
	StrictExit bool              `yaml:"strict_exit"`
	TailLines  int               `yaml:"tail_lines"`
	Env        map[string]string `yaml:"env"`
	EnvFile    string            `yaml:"env_file"`
	Inputs     []string          `yaml:"inputs"`
	Output     string            `yaml:"output"`
	Format     string            `yaml:"format"`
	SQLite     string            `yaml:"sqlite"`
	Results    Results           `yaml:"results"`
	Docker     Docker            `yaml:"docker"`
}

type Results struct {
	Dir string `yaml:"dir"`
}

// Docker switches trials from host processes to containers when Image is set.
type Docker struct {
	Image       string            `yaml:"image"`
	Workdir     string            `yaml:"workdir"`
	Env         map[string]string `yaml:"env"`
	CPULimit    float64           `yaml:"cpu_limit"`
	MemoryLimit int64             `yaml:"memory_limit"`
}

func Default() *Config {
	return &Config{
		Trials:    4,
		Objective: "min",
		Capture:   CaptureCombined,
		TailLines: 10,
		Format:    FormatCSV,
	}
}

// Error marks a problem with the user's configuration, as opposed to a
// failure while running.
type Error struct {
	Err error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// Invalid wraps err as a configuration error. Nil stays nil.
func Invalid(err error) error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return err
	}
	return &Error{Err: err}
}

func IsConfigError(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}

// Load reads path over the defaults. When explicit is false a missing file
// yields the defaults.
func Load(path string, explicit bool) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, Invalid(fmt.Errorf("reading config %s: %w", path, err))
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, Invalid(fmt.Errorf("parsing config %s: %w", path, err))
	}
	return cfg, nil
}

// Validate checks everything that can be checked without input rows. Every
// error it returns is a configuration error.
func (c *Config) Validate() error {
	return Invalid(c.validate())
}

func (c *Config) validate() error {
	if len(c.Command) == 0 {
		return fmt.Errorf("no command given")
	}
	if len(c.Metrics) == 0 {
		return fmt.Errorf("no metrics defined")
	}
	if c.Trials < 1 {
		return fmt.Errorf("trials must be at least 1")
	}
	if c.TailLines < 1 {
		return fmt.Errorf("tail_lines must be at least 1")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay must not be negative")
	}
	switch c.Objective {
	case "min", "max":
	default:
		return fmt.Errorf("objective must be min or max, got %q", c.Objective)
	}
	switch c.Capture {
	case CaptureCombined, CaptureStdout:
	default:
		return fmt.Errorf("capture must be %s or %s, got %q", CaptureCombined, CaptureStdout, c.Capture)
	}
	switch c.Format {
	case FormatCSV, FormatJSONL:
	default:
		return fmt.Errorf("format must be %s or %s, got %q", FormatCSV, FormatJSONL, c.Format)
	}
	if c.Docker.CPULimit < 0 || c.Docker.MemoryLimit < 0 {
		return fmt.Errorf("docker limits must not be negative")
	}
	if _, err := c.Registry(); err != nil {
		return err
	}
	if _, err := c.Template(); err != nil {
		return err
	}
	return nil
}

// Registry compiles the metric declarations in order.
func (c *Config) Registry() (*metric.Registry, error) {
	reg, err := metric.Build(c.Metrics)
	return reg, Invalid(err)
}

func (c *Config) Template() (*command.Template, error) {
	tmpl, err := command.Compile(c.Command)
	return tmpl, Invalid(err)
}
