// Package storage persists per-metric artifacts and compiled reports.
package storage

import (
	"context"
	"errors"

	"github.com/capitalize-ai/journey-analytics/internal/model"
)

// ErrNotFound is returned when an artifact has not been written yet.
var ErrNotFound = errors.New("artifact not found")

// ArtifactStore persists run outputs. Save methods return the location of
// the written artifact.
type ArtifactStore interface {
	SaveMetric(ctx context.Context, artifact *model.MetricArtifact) (string, error)
	SaveReport(ctx context.Context, report *model.CompiledReport) (string, error)
	LoadMetric(ctx context.Context, runID, metric string) (*model.MetricArtifact, error)
	LoadReport(ctx context.Context, runID string) (*model.CompiledReport, error)
	// Kind names the backend for metrics and logs.
	Kind() string
}
