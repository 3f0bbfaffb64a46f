package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/journey-analytics/internal/agent"
	"github.com/capitalize-ai/journey-analytics/internal/analytics"
	"github.com/capitalize-ai/journey-analytics/internal/model"
)

func stubTask(name string, compute func(*Env) (Computation, error)) Task {
	if compute == nil {
		compute = func(*Env) (Computation, error) {
			return Computation{Data: map[string]int{"n": 1}}, nil
		}
	}
	return Task{
		Name:    name,
		Title:   strings.ToUpper(name),
		Prompt:  func(*Env) string { return "prompt for " + name },
		Compute: compute,
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	tasks := []Task{
		stubTask("ok_a", nil),
		stubTask("ok_b", nil),
		stubTask("algo", func(*Env) (Computation, error) { return Computation{}, errors.New("no stages") }),
		stubTask("boom", func(*Env) (Computation, error) { panic("index out of range") }),
		stubTask("exhausted", nil),
		stubTask("fatal", nil),
	}
	narrator := &fakeNarrator{fn: func(req agent.Request) (*agent.Result, error) {
		switch req.Task {
		case "exhausted":
			return nil, &agent.ExhaustedError{Attempts: 3, Last: errors.New("429 Too Many Requests")}
		case "fatal":
			return nil, errors.New("openai: 401 invalid api key")
		}
		return &agent.Result{Text: "**" + req.Task + "** done", Iterations: 1}, nil
	}}
	store := newMemStore()
	compiler := &stubCompiler{}

	var (
		phases   []Phase
		outcomes []string
	)
	hooks := Hooks{
		OnPhase:   func(p Phase) { phases = append(phases, p) },
		OnOutcome: func(o Outcome) { outcomes = append(outcomes, o.Metric) },
	}

	o := newTestOrchestrator(&fakeSource{events: bookingEvents(6)}, narrator, store, compiler, WithTasks(tasks))
	st, err := o.Run(context.Background(), "run-1", hooks)
	require.NoError(t, err)

	assert.Equal(t, []Phase{PhaseIngesting, PhaseFannedOut, PhaseSettled, PhaseCompiled}, phases)
	assert.ElementsMatch(t, []string{"ok_a", "ok_b", "algo", "boom", "exhausted", "fatal"}, outcomes)

	assert.Equal(t, []string{"ok_a", "ok_b"}, st.Completed())
	assert.Equal(t, "<p><strong>ok_a</strong> done</p>", st.Results["ok_a"].Insights)
	require.Len(t, st.Failures, 4)
	require.Len(t, st.Errors, 4)

	kinds := make(map[string]ErrorKind)
	for _, f := range st.Failures {
		kinds[f.Metric] = f.Kind
	}
	assert.Equal(t, map[string]ErrorKind{
		"algo":      KindAlgorithm,
		"boom":      KindPanic,
		"exhausted": KindGatewayExhausted,
		"fatal":     KindProvider,
	}, kinds)
	assert.Contains(t, st.Errors, "algo: no stages")

	assert.Len(t, store.metrics, 2)
	assert.Equal(t, "run-1", store.metrics["ok_a"].RunID)

	assert.Equal(t, 1, compiler.calls)
	assert.Equal(t, []string{"ok_a", "ok_b"}, compiler.seen)
	require.NotNil(t, st.Report)
	assert.Equal(t, "run-1", st.Report.RunID)
}

func TestRunIngestionFailure(t *testing.T) {
	tests := []struct {
		name   string
		source *fakeSource
		target error
	}{
		{
			name:   "source error",
			source: &fakeSource{err: errors.New("connection refused")},
		},
		{
			name: "no application events",
			source: &fakeSource{events: []model.Event{
				{UserID: "u1", Name: "heartbeat", Time: base, Category: "system"},
			}},
			target: analytics.ErrEmptyDataset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			narrator := &fakeNarrator{}
			compiler := &stubCompiler{}
			var phases []Phase

			o := newTestOrchestrator(tt.source, narrator, newMemStore(), compiler)
			st, err := o.Run(context.Background(), "run-x", Hooks{OnPhase: func(p Phase) { phases = append(phases, p) }})

			require.Error(t, err)
			assert.Nil(t, st)
			var ingest *IngestionError
			assert.True(t, errors.As(err, &ingest))
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
			assert.Equal(t, []Phase{PhaseIngesting}, phases)
			assert.Empty(t, narrator.requests)
			assert.Zero(t, compiler.calls)
		})
	}
}

func TestRunPersistFailure(t *testing.T) {
	store := newMemStore()
	store.saveErr = errors.New("disk full")

	o := newTestOrchestrator(&fakeSource{events: bookingEvents(3)}, &fakeNarrator{}, store, &stubCompiler{},
		WithTasks([]Task{stubTask("a", nil), stubTask("b", nil)}))
	st, err := o.Run(context.Background(), "run-2", Hooks{})
	require.NoError(t, err)

	assert.Empty(t, st.Results)
	require.Len(t, st.Failures, 2)
	for _, f := range st.Failures {
		assert.Equal(t, KindPersist, f.Kind)
		assert.ErrorContains(t, f, "save artifact: disk full")
	}
}

func TestRunWithoutStore(t *testing.T) {
	o := newTestOrchestrator(&fakeSource{events: bookingEvents(3)}, &fakeNarrator{}, nil, &stubCompiler{},
		WithTasks([]Task{stubTask("a", nil)}))
	st, err := o.Run(context.Background(), "run-3", Hooks{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, st.Completed())
}

func TestRunConcurrencyLimit(t *testing.T) {
	var inFlight, peak int32
	narrator := &fakeNarrator{fn: func(req agent.Request) (*agent.Result, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return &agent.Result{Text: "<p>ok</p>", Iterations: 1}, nil
	}}

	var tasks []Task
	for i := 0; i < 4; i++ {
		tasks = append(tasks, stubTask(fmt.Sprintf("t%d", i), nil))
	}

	o := newTestOrchestrator(&fakeSource{events: bookingEvents(3)}, narrator, newMemStore(), &stubCompiler{},
		WithTasks(tasks), WithConcurrency(1))
	st, err := o.Run(context.Background(), "run-4", Hooks{})
	require.NoError(t, err)
	assert.Len(t, st.Results, 4)
	assert.Equal(t, int32(1), atomic.LoadInt32(&peak))
}

func TestRunFullCatalog(t *testing.T) {
	narrator := &fakeNarrator{}
	store := newMemStore()

	var mu sync.Mutex
	seen := make(map[string]bool)
	hooks := Hooks{OnOutcome: func(o Outcome) {
		mu.Lock()
		seen[o.Metric] = true
		mu.Unlock()
	}}

	o := newTestOrchestrator(&fakeSource{events: bookingEvents(30)}, narrator, store, &stubCompiler{}, WithMaxIterations(5))
	st, err := o.Run(context.Background(), "run-5", hooks)
	require.NoError(t, err)

	assert.Len(t, seen, len(MetricOrder))
	assert.Equal(t, len(MetricOrder), len(st.Results)+len(st.Failures))
	for _, m := range []string{MetricFunnel, MetricDropoff, MetricSessions, MetricConversion, MetricLatency, MetricTemporal} {
		assert.Contains(t, st.Results, m)
	}

	funnel, ok := narrator.request(MetricFunnel)
	require.True(t, ok)
	assert.Equal(t, 5, funnel.MaxIterations)
	assert.Contains(t, funnel.System, "TREND ANALYSIS (First Half")
	assert.Contains(t, funnel.System, "CRITICAL: In your insights, you MUST explicitly compare T1 vs T2")

	latency, ok := narrator.request(MetricLatency)
	require.True(t, ok)
	assert.Equal(t, latencyMaxIterations, latency.MaxIterations)

	retention, ok := narrator.request(MetricRetention)
	require.True(t, ok)
	assert.NotContains(t, retention.System, "TREND ANALYSIS")

	require.Contains(t, store.metrics, MetricFunnel)
	assert.NotNil(t, store.metrics[MetricFunnel].Chart)
	assert.Equal(t, "Booking Funnel Analysis", store.metrics[MetricFunnel].Title)
}

func TestIsMetric(t *testing.T) {
	assert.True(t, IsMetric(MetricTemporal))
	assert.False(t, IsMetric("revenue"))
	assert.Len(t, Catalog(), len(MetricOrder))
	for i, task := range Catalog() {
		assert.Equal(t, MetricOrder[i], task.Name)
	}
}
