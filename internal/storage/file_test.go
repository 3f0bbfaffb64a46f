package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/journey-analytics/internal/model"
)

func TestFileStoreMetricRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "file", s.Kind())

	ctx := context.Background()
	_, err = s.LoadMetric(ctx, "run-1", "funnel_analysis")
	assert.ErrorIs(t, err, ErrNotFound)

	loc, err := s.SaveMetric(ctx, &model.MetricArtifact{
		RunID:      "run-1",
		Metric:     "funnel_analysis",
		Title:      "Booking Funnel Analysis",
		Data:       map[string]any{"stages": 6},
		Insights:   "<p>ok</p>",
		Iterations: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "json", "funnel_analysis.json"), loc)

	got, err := s.LoadMetric(ctx, "ignored", "funnel_analysis")
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, 3, got.Iterations)
	assert.Equal(t, map[string]any{"stages": float64(6)}, got.Data)

	entries, err := os.ReadDir(filepath.Join(dir, "json"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileStoreReport(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = s.LoadReport(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)

	rep := &model.CompiledReport{
		RunID:            "run-1",
		Narrative:        "<h2>Executive Summary</h2>",
		MetricsCompleted: []string{"funnel_analysis"},
		MetricsFailed:    []string{"retention_analysis: boom"},
		GeneratedAt:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	loc, err := s.SaveReport(ctx, rep)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report.json"), loc)
	assert.Equal(t, loc, rep.ReportLocation)

	got, err := s.LoadReport(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, rep, got)
}

func TestFileStoreCorruptArtifact(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.MetricPath("broken"), []byte("{"), 0o644))

	_, err = s.LoadMetric(context.Background(), "", "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
