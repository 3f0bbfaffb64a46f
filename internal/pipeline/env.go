package pipeline

import (
	"sync"

	"github.com/capitalize-ai/journey-analytics/internal/analytics"
	"github.com/capitalize-ai/journey-analytics/internal/config"
	"github.com/capitalize-ai/journey-analytics/internal/model"
)

// Env is the read-only input shared by every task of a run.
type Env struct {
	Dataset  *analytics.Dataset
	Summary  model.DatasetSummary
	Analysis *config.Analysis

	halvesOnce sync.Once
	halves     analytics.Halves
}

// NewEnv indexes the summary alongside the dataset.
func NewEnv(d *analytics.Dataset, a *config.Analysis) *Env {
	return &Env{Dataset: d, Summary: analytics.Summarize(d), Analysis: a}
}

// Halves returns the T1/T2 split, computed on first use.
func (e *Env) Halves() analytics.Halves {
	e.halvesOnce.Do(func() {
		e.halves = analytics.SplitHalves(e.Dataset)
	})
	return e.halves
}
