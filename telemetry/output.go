package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
)

// ConfigWriter is implemented by configurations that can snapshot themselves as YAML.
type ConfigWriter interface {
	WriteYAML(path string) error
}

// Recorder writes per-generation telemetry for one training run.
// A nil *Recorder is valid and discards everything.
type Recorder struct {
	dir   string
	runID string
	mode  string

	generationsFile *os.File
	headerWritten   bool
}

// NewRecorder creates dir and opens generations.csv inside it. Every row is stamped with
// a fresh run id and mode. Returns nil if dir is empty (output disabled).
func NewRecorder(dir, mode string) (*Recorder, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, "generations.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating generations.csv: %w", err)
	}
	return &Recorder{
		dir:             dir,
		runID:           uuid.NewString(),
		mode:            mode,
		generationsFile: f,
	}, nil
}

// RunID returns the identifier stamped on every row.
func (r *Recorder) RunID() string {
	if r == nil {
		return ""
	}
	return r.runID
}

// Dir returns the output directory path.
func (r *Recorder) Dir() string {
	if r == nil {
		return ""
	}
	return r.dir
}

// Record appends one generation to generations.csv.
func (r *Recorder) Record(stats GenerationStats) error {
	if r == nil {
		return nil
	}
	stats.RunID = r.runID
	stats.Mode = r.mode
	records := []GenerationStats{stats}

	if !r.headerWritten {
		if err := gocsv.Marshal(records, r.generationsFile); err != nil {
			return fmt.Errorf("writing generation: %w", err)
		}
		r.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, r.generationsFile); err != nil {
		return fmt.Errorf("writing generation: %w", err)
	}
	return nil
}

// WriteConfig saves the effective configuration as config.yaml.
func (r *Recorder) WriteConfig(cfg ConfigWriter) error {
	if r == nil || cfg == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(r.dir, "config.yaml"))
}

// WriteModel saves an exported model under name in the output directory.
func (r *Recorder) WriteModel(name string, data []byte) error {
	if r == nil {
		return nil
	}
	if err := os.WriteFile(filepath.Join(r.dir, name), data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// Close flushes and closes the output files.
func (r *Recorder) Close() error {
	if r == nil || r.generationsFile == nil {
		return nil
	}
	return r.generationsFile.Close()
}
