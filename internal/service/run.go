// Package service owns the run lifecycle behind the control surface.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/journey-analytics/internal/model"
	"github.com/capitalize-ai/journey-analytics/internal/pipeline"
	"github.com/capitalize-ai/journey-analytics/internal/storage"
	"github.com/capitalize-ai/journey-analytics/pkg/logger"
)

var (
	// ErrRunInProgress is returned by Trigger while a run is executing.
	ErrRunInProgress = errors.New("a run is already in progress")
	// ErrNoReport is returned before any run has produced a report.
	ErrNoReport = errors.New("no report available")
	// ErrMetricNotFound is returned when the last run has no result for a metric.
	ErrMetricNotFound = errors.New("metric not found")
)

// Runner executes one pipeline pass. *pipeline.Orchestrator implements it.
type Runner interface {
	Run(ctx context.Context, runID string, hooks pipeline.Hooks) (*pipeline.State, error)
}

// MetricsOverview lists the catalogue and the outcome of the last run.
type MetricsOverview struct {
	Available []string `json:"available"`
	Completed []string `json:"completed"`
	Failed    []string `json:"failed"`
}

// RunService starts runs in the background and tracks the latest one.
// At most one run executes at a time.
type RunService struct {
	ctx    context.Context
	runner Runner
	store  storage.ArtifactStore
	logger *logger.Logger

	mu     sync.RWMutex
	state  model.RunState
	last   *pipeline.State
	lastID string
	report *model.CompiledReport
	subs   map[chan model.RunState]struct{}
	wg     sync.WaitGroup

	now   func() time.Time
	newID func() string
}

// NewRunService creates a run service. Runs execute under ctx, so
// cancelling it aborts an in-flight run. store may be nil.
func NewRunService(ctx context.Context, runner Runner, store storage.ArtifactStore, log *logger.Logger) *RunService {
	return &RunService{
		ctx:    ctx,
		runner: runner,
		store:  store,
		logger: log,
		state: model.RunState{
			Status:           model.RunStatusIdle,
			MetricsCompleted: []string{},
			MetricsFailed:    []string{},
		},
		subs:  make(map[chan model.RunState]struct{}),
		now:   time.Now,
		newID: func() string { return uuid.Must(uuid.NewV7()).String() },
	}
}

// Trigger starts a new run and returns its initial state.
func (s *RunService) Trigger() (model.RunState, error) {
	s.mu.Lock()
	if s.state.Status == model.RunStatusRunning {
		s.mu.Unlock()
		return model.RunState{}, ErrRunInProgress
	}

	runID := s.newID()
	started := s.now()
	s.state = model.RunState{
		RunID:            runID,
		Status:           model.RunStatusRunning,
		Phase:            string(pipeline.PhaseIdle),
		StartedAt:        &started,
		MetricsCompleted: []string{},
		MetricsFailed:    []string{},
	}
	snap := s.snapshotLocked()
	s.broadcastLocked()
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.WithRun(runID).Info("run triggered")
	go s.execute(runID)
	return snap, nil
}

func (s *RunService) execute(runID string) {
	defer s.wg.Done()
	log := s.logger.WithRun(runID)

	var (
		st  *pipeline.State
		err error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("run panicked: %v", r)
			}
		}()
		st, err = s.runner.Run(s.ctx, runID, pipeline.Hooks{
			OnPhase:   s.onPhase,
			OnOutcome: s.onOutcome,
		})
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	done := s.now()
	s.state.CompletedAt = &done
	if err != nil {
		s.state.Status = model.RunStatusFailed
		s.state.Error = err.Error()
		log.Error("run failed", zap.Error(err))
		s.broadcastLocked()
		return
	}

	s.state.Status = model.RunStatusCompleted
	s.state.MetricsCompleted = st.Completed()
	s.state.MetricsFailed = st.Failed()
	if st.Report != nil {
		s.state.ReportLocation = st.Report.ReportLocation
		s.report = st.Report
	}
	s.last, s.lastID = st, runID
	log.Info("run completed",
		zap.Int("completed", len(s.state.MetricsCompleted)),
		zap.Int("failed", len(s.state.MetricsFailed)),
		zap.Duration("elapsed", done.Sub(*s.state.StartedAt)),
	)
	s.broadcastLocked()
}

func (s *RunService) onPhase(p pipeline.Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Phase = string(p)
	s.broadcastLocked()
}

func (s *RunService) onOutcome(o pipeline.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.OK() {
		s.state.MetricsCompleted = append(s.state.MetricsCompleted, o.Metric)
	} else {
		s.state.MetricsFailed = append(s.state.MetricsFailed, o.Err.Error())
	}
	s.broadcastLocked()
}

// Status returns a snapshot of the current or last run.
func (s *RunService) Status() model.RunState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *RunService) snapshotLocked() model.RunState {
	snap := s.state
	snap.MetricsCompleted = append([]string{}, s.state.MetricsCompleted...)
	snap.MetricsFailed = append([]string{}, s.state.MetricsFailed...)
	if snap.StartedAt != nil {
		end := s.now()
		if snap.CompletedAt != nil {
			end = *snap.CompletedAt
		}
		snap.ElapsedSec = end.Sub(*snap.StartedAt).Seconds()
	}
	return snap
}

// Subscribe returns a channel of status snapshots, starting with the
// current one. Only the latest snapshot is buffered; slow readers skip
// intermediate states. The returned func unsubscribes and closes the channel.
func (s *RunService) Subscribe() (<-chan model.RunState, func()) {
	ch := make(chan model.RunState, 1)

	s.mu.Lock()
	s.subs[ch] = struct{}{}
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, ch)
			close(ch)
			s.mu.Unlock()
		})
	}
}

// broadcastLocked replaces any unread snapshot with the current one.
func (s *RunService) broadcastLocked() {
	if len(s.subs) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

// Report returns the last compiled report, falling back to the store.
func (s *RunService) Report(ctx context.Context) (*model.CompiledReport, error) {
	s.mu.RLock()
	rep, runID := s.report, s.state.RunID
	s.mu.RUnlock()
	if rep != nil {
		return rep, nil
	}
	return s.loadReport(ctx, runID)
}

// RunReport returns the report of a specific run.
func (s *RunService) RunReport(ctx context.Context, runID string) (*model.CompiledReport, error) {
	s.mu.RLock()
	rep := s.report
	s.mu.RUnlock()
	if rep != nil && rep.RunID == runID {
		return rep, nil
	}
	rep, err := s.loadReport(ctx, runID)
	if err != nil {
		return nil, err
	}
	// the file store keeps only the latest report
	if rep.RunID != runID {
		return nil, ErrNoReport
	}
	return rep, nil
}

func (s *RunService) loadReport(ctx context.Context, runID string) (*model.CompiledReport, error) {
	if s.store == nil {
		return nil, ErrNoReport
	}
	rep, err := s.store.LoadReport(ctx, runID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoReport
	}
	if err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}
	return rep, nil
}

// Metric returns the artifact of one metric from the last completed run,
// falling back to the store.
func (s *RunService) Metric(ctx context.Context, name string) (*model.MetricArtifact, error) {
	s.mu.RLock()
	last, lastID := s.last, s.lastID
	runID := s.state.RunID
	s.mu.RUnlock()

	if last != nil {
		if r, ok := last.Results[name]; ok {
			return r.Artifact(lastID), nil
		}
		return nil, ErrMetricNotFound
	}
	if s.store == nil {
		return nil, ErrMetricNotFound
	}
	a, err := s.store.LoadMetric(ctx, runID, name)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrMetricNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load metric %s: %w", name, err)
	}
	return a, nil
}

// Metrics lists every catalogued metric with the last run's outcome.
func (s *RunService) Metrics() MetricsOverview {
	snap := s.Status()
	return MetricsOverview{
		Available: append([]string{}, pipeline.MetricOrder...),
		Completed: snap.MetricsCompleted,
		Failed:    snap.MetricsFailed,
	}
}

// Wait blocks until the in-flight run, if any, has finished.
func (s *RunService) Wait() {
	s.wg.Wait()
}
