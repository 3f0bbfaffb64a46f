package pipeline

import (
	"sort"

	"github.com/capitalize-ai/journey-analytics/internal/model"
)

// State accumulates a run. Results only gain keys; Errors only grow.
type State struct {
	Summary  model.DatasetSummary
	Results  map[string]*model.MetricResult
	Errors   []string
	Failures []*TaskError
	Report   *model.CompiledReport
}

// NewState creates an empty state around the ingestion summary.
func NewState(summary model.DatasetSummary) *State {
	return &State{
		Summary: summary,
		Results: make(map[string]*model.MetricResult),
	}
}

// Apply folds one task outcome into the state.
func (s *State) Apply(o Outcome) {
	if o.OK() {
		s.Results[o.Metric] = o.Result
		return
	}
	s.Failures = append(s.Failures, o.Err)
	s.Errors = append(s.Errors, o.Err.Error())
}

// Merge folds other into s: results by key union (right-biased), errors by
// concatenation.
func (s *State) Merge(other *State) {
	for k, v := range other.Results {
		s.Results[k] = v
	}
	s.Failures = append(s.Failures, other.Failures...)
	s.Errors = append(s.Errors, other.Errors...)
}

// AddError records a run-level failure that is not tied to a metric task.
func (s *State) AddError(msg string) {
	s.Errors = append(s.Errors, truncate(msg, maxErrorLen))
}

// Completed lists the metrics with a result, catalogue order first and any
// others alphabetically after.
func (s *State) Completed() []string {
	out := make([]string, 0, len(s.Results))
	seen := make(map[string]bool, len(s.Results))
	for _, name := range MetricOrder {
		if _, ok := s.Results[name]; ok {
			out = append(out, name)
			seen[name] = true
		}
	}
	var extra []string
	for name := range s.Results {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// Failed returns a copy of the recorded error strings.
func (s *State) Failed() []string {
	return append([]string{}, s.Errors...)
}
