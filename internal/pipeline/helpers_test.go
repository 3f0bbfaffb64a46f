package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/journey-analytics/internal/agent"
	"github.com/capitalize-ai/journey-analytics/internal/analytics"
	"github.com/capitalize-ai/journey-analytics/internal/config"
	"github.com/capitalize-ai/journey-analytics/internal/model"
	"github.com/capitalize-ai/journey-analytics/internal/storage"
	"github.com/capitalize-ai/journey-analytics/pkg/logger"
)

var base = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func ev(user, name string, offset time.Duration) model.Event {
	return model.Event{UserID: user, Name: name, Time: base.Add(offset), Category: model.ApplicationCategory}
}

// bookingEvents builds n users walking the default funnel, every third one
// stopping after search, spread over two weeks.
func bookingEvents(n int) []model.Event {
	flow := []string{"Session Started", "app_start", "bus_search", "bus_result", "select_seat", "payment_initiate", "payment_success"}
	var out []model.Event
	for i := 0; i < n; i++ {
		user := fmt.Sprintf("u%02d", i)
		steps := flow
		if i%3 == 0 {
			steps = flow[:3]
		}
		day := time.Duration(i%14) * 24 * time.Hour
		for j, name := range steps {
			out = append(out, ev(user, name, day+time.Duration(j)*30*time.Second))
		}
	}
	return out
}

func testEnv(t *testing.T, events []model.Event) *Env {
	t.Helper()
	d, err := analytics.NewDataset(events)
	require.NoError(t, err)
	return NewEnv(d, config.DefaultAnalysis())
}

type fakeSource struct {
	events []model.Event
	err    error
}

func (s *fakeSource) Load(context.Context) ([]model.Event, error) { return s.events, s.err }
func (s *fakeSource) Describe() string                           { return "fake" }

type fakeNarrator struct {
	mu       sync.Mutex
	fn       func(req agent.Request) (*agent.Result, error)
	requests []agent.Request
}

func (n *fakeNarrator) Run(_ context.Context, req agent.Request) (*agent.Result, error) {
	n.mu.Lock()
	n.requests = append(n.requests, req)
	n.mu.Unlock()
	if n.fn != nil {
		return n.fn(req)
	}
	return &agent.Result{Text: "<p>" + req.Task + "</p>", Iterations: 2}, nil
}

func (n *fakeNarrator) request(task string) (agent.Request, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, r := range n.requests {
		if r.Task == task {
			return r, true
		}
	}
	return agent.Request{}, false
}

type memStore struct {
	mu      sync.Mutex
	metrics map[string]*model.MetricArtifact
	saveErr error
}

var _ storage.ArtifactStore = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{metrics: map[string]*model.MetricArtifact{}}
}

func (s *memStore) Kind() string { return "mem" }

func (s *memStore) SaveMetric(_ context.Context, a *model.MetricArtifact) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return "", s.saveErr
	}
	s.metrics[a.Metric] = a
	return "mem://" + a.Metric, nil
}

func (s *memStore) SaveReport(context.Context, *model.CompiledReport) (string, error) {
	return "mem://report", nil
}

func (s *memStore) LoadMetric(_ context.Context, _, metric string) (*model.MetricArtifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.metrics[metric]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return a, nil
}

func (s *memStore) LoadReport(context.Context, string) (*model.CompiledReport, error) {
	return nil, storage.ErrNotFound
}

type stubCompiler struct {
	calls int
	seen  []string
}

func (c *stubCompiler) Compile(_ context.Context, runID string, st *State) *model.CompiledReport {
	c.calls++
	c.seen = st.Completed()
	return &model.CompiledReport{
		RunID:            runID,
		MetricsCompleted: st.Completed(),
		MetricsFailed:    st.Failed(),
		ReportLocation:   "mem://report",
	}
}

func newTestOrchestrator(src *fakeSource, n Narrator, store storage.ArtifactStore, c Compiler, opts ...Option) *Orchestrator {
	opts = append([]Option{WithLogger(logger.Nop())}, opts...)
	return New(src, n, store, c, config.DefaultAnalysis(), opts...)
}
