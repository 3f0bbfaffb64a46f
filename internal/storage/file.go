package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/capitalize-ai/journey-analytics/internal/model"
)

const reportFile = "report.json"

// FileStore writes artifacts under a local directory:
// <dir>/json/<metric>.json and <dir>/report.json. Each run overwrites the
// previous one, so loads ignore the run id.
type FileStore struct {
	dir string
}

// NewFileStore creates the output directories.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, "json"), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Kind returns "file".
func (s *FileStore) Kind() string { return "file" }

// MetricPath returns the path a metric artifact is written to.
func (s *FileStore) MetricPath(metric string) string {
	return filepath.Join(s.dir, "json", metric+".json")
}

// ReportPath returns the path of the compiled report.
func (s *FileStore) ReportPath() string {
	return filepath.Join(s.dir, reportFile)
}

// SaveMetric writes one metric artifact.
func (s *FileStore) SaveMetric(_ context.Context, artifact *model.MetricArtifact) (string, error) {
	path := s.MetricPath(artifact.Metric)
	if err := writeJSON(path, artifact); err != nil {
		return "", fmt.Errorf("save metric %s: %w", artifact.Metric, err)
	}
	return path, nil
}

// SaveReport writes the compiled report, stamping its location first.
func (s *FileStore) SaveReport(_ context.Context, report *model.CompiledReport) (string, error) {
	path := s.ReportPath()
	report.ReportLocation = path
	if err := writeJSON(path, report); err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}
	return path, nil
}

// LoadMetric reads the latest artifact for metric.
func (s *FileStore) LoadMetric(_ context.Context, _ string, metric string) (*model.MetricArtifact, error) {
	var a model.MetricArtifact
	if err := readJSON(s.MetricPath(metric), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// LoadReport reads the latest compiled report.
func (s *FileStore) LoadReport(_ context.Context, _ string) (*model.CompiledReport, error) {
	var r model.CompiledReport
	if err := readJSON(s.ReportPath(), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// writeJSON writes v atomically through a temp file in the same directory.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
