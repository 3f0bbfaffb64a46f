// Package pipeline runs one analytics pass: ingestion, a fan-out of
// independent metric tasks, and a single compile step over the merged state.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/capitalize-ai/journey-analytics/internal/agent"
	"github.com/capitalize-ai/journey-analytics/internal/analytics"
	"github.com/capitalize-ai/journey-analytics/internal/config"
	"github.com/capitalize-ai/journey-analytics/internal/dataset"
	"github.com/capitalize-ai/journey-analytics/internal/model"
	"github.com/capitalize-ai/journey-analytics/internal/storage"
	"github.com/capitalize-ai/journey-analytics/pkg/logger"
	"github.com/capitalize-ai/journey-analytics/pkg/metrics"
	"github.com/capitalize-ai/journey-analytics/pkg/tracing"
)

// Phase is a step of the run state machine.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseIngesting Phase = "ingesting"
	PhaseFannedOut Phase = "fanned_out"
	PhaseSettled   Phase = "settled"
	PhaseCompiled  Phase = "compiled"
)

// Narrator turns a prompt and tools into narrative text.
type Narrator interface {
	Run(ctx context.Context, req agent.Request) (*agent.Result, error)
}

// Compiler synthesises the merged state into the run report. It always
// returns a report; failures are recorded on the state.
type Compiler interface {
	Compile(ctx context.Context, runID string, st *State) *model.CompiledReport
}

// Hooks observe a run. Calls are serialised.
type Hooks struct {
	OnPhase   func(Phase)
	OnOutcome func(Outcome)
}

func (h Hooks) phase(p Phase) {
	if h.OnPhase != nil {
		h.OnPhase(p)
	}
}

func (h Hooks) outcome(o Outcome) {
	if h.OnOutcome != nil {
		h.OnOutcome(o)
	}
}

// Orchestrator runs the pipeline.
type Orchestrator struct {
	source        dataset.Source
	narrator      Narrator
	store         storage.ArtifactStore
	compiler      Compiler
	analysis      *config.Analysis
	tasks         []Task
	concurrency   int
	maxIterations int
	logger        *logger.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConcurrency bounds the number of metric tasks in flight; zero or
// negative means unbounded.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) { o.concurrency = n }
}

// WithMaxIterations sets the default tool-dispatch cap per task.
func WithMaxIterations(n int) Option {
	return func(o *Orchestrator) { o.maxIterations = n }
}

// WithTasks replaces the task catalogue.
func WithTasks(tasks []Task) Option {
	return func(o *Orchestrator) { o.tasks = tasks }
}

// WithLogger sets the orchestrator logger.
func WithLogger(log *logger.Logger) Option {
	return func(o *Orchestrator) { o.logger = log }
}

// New creates an orchestrator. A nil store skips artifact persistence.
func New(source dataset.Source, narrator Narrator, store storage.ArtifactStore, compiler Compiler, analysis *config.Analysis, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		source:        source,
		narrator:      narrator,
		store:         store,
		compiler:      compiler,
		analysis:      analysis,
		tasks:         Catalog(),
		maxIterations: agent.DefaultMaxIterations,
		logger:        logger.Global(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one pipeline pass. The only error returned is an
// IngestionError; task failures are recorded on the returned state.
func (o *Orchestrator) Run(ctx context.Context, runID string, hooks Hooks) (st *State, err error) {
	start := time.Now()
	log := o.logger.WithRun(runID)
	ctx, span := tracing.Start(ctx, "pipeline.Run", attribute.String("run_id", runID))
	defer func() {
		tracing.End(span, err)
		status := "completed"
		if err != nil {
			status = "failed"
		}
		metrics.RecordRun(status)
	}()

	hooks.phase(PhaseIngesting)
	phaseStart := time.Now()
	env, err := o.ingest(ctx)
	if err != nil {
		log.Error("ingestion failed", zap.String("source", o.source.Describe()), zap.Error(err))
		return nil, err
	}
	metrics.RecordPhase(string(PhaseIngesting), time.Since(phaseStart).Seconds())
	log.Info("dataset ingested",
		zap.String("source", o.source.Describe()),
		zap.Int("events", env.Summary.TotalEvents),
		zap.Int("users", env.Summary.TotalUsers),
		zap.Int("event_types", env.Summary.TotalEventTypes),
	)

	st = NewState(env.Summary)

	hooks.phase(PhaseFannedOut)
	phaseStart = time.Now()
	var mu sync.Mutex
	g := new(errgroup.Group)
	if o.concurrency > 0 {
		g.SetLimit(o.concurrency)
	}
	for _, task := range o.tasks {
		task := task
		g.Go(func() error {
			out := o.runTask(ctx, runID, env, task)
			mu.Lock()
			defer mu.Unlock()
			st.Apply(out)
			hooks.outcome(out)
			return nil
		})
	}
	_ = g.Wait()
	metrics.RecordPhase(string(PhaseFannedOut), time.Since(phaseStart).Seconds())

	hooks.phase(PhaseSettled)
	log.Info("metric tasks settled",
		zap.Int("completed", len(st.Results)),
		zap.Int("failed", len(st.Failures)),
	)

	phaseStart = time.Now()
	st.Report = o.compiler.Compile(ctx, runID, st)
	metrics.RecordPhase(string(PhaseCompiled), time.Since(phaseStart).Seconds())
	hooks.phase(PhaseCompiled)

	log.Info("run compiled",
		zap.Duration("elapsed", time.Since(start)),
		zap.String("report", st.Report.ReportLocation),
	)
	return st, nil
}

func (o *Orchestrator) ingest(ctx context.Context) (*Env, error) {
	ctx, span := tracing.Start(ctx, "pipeline.ingest")
	events, err := o.source.Load(ctx)
	if err == nil {
		var d *analytics.Dataset
		d, err = analytics.NewDataset(events)
		if err == nil {
			tracing.End(span, nil)
			return NewEnv(d, o.analysis), nil
		}
	}
	tracing.End(span, err)
	return nil, &IngestionError{Err: err}
}

// runTask computes one metric, narrates it and persists the artifact.
// Failures, including panics, are returned as a failed Outcome.
func (o *Orchestrator) runTask(ctx context.Context, runID string, env *Env, task Task) (out Outcome) {
	start := time.Now()
	log := o.logger.WithRun(runID).WithMetric(task.Name)
	ctx, span := tracing.Start(ctx, "pipeline.task", attribute.String("metric", task.Name))

	defer func() {
		if r := recover(); r != nil {
			out = Failed(task.Name, KindPanic, panicError(r))
		}
		out.Duration = time.Since(start)

		var err error
		if out.Err != nil {
			err = out.Err
			log.Warn("metric task failed",
				zap.String("kind", string(out.Err.Kind)),
				zap.Duration("duration", out.Duration),
				zap.Error(out.Err.Err),
			)
		} else {
			log.Info("metric task completed",
				zap.Int("iterations", out.Result.Iterations),
				zap.Duration("duration", out.Duration),
			)
		}
		tracing.End(span, err)
		metrics.RecordTask(task.Name, out.Status(), out.Duration.Seconds())
	}()

	comp, err := task.Compute(env)
	if err != nil {
		return Failed(task.Name, KindAlgorithm, err)
	}

	system := task.Prompt(env)
	if comp.Context != "" {
		system += "\n\n" + comp.Context
	}
	iters := o.maxIterations
	if task.MaxIterations > 0 {
		iters = task.MaxIterations
	}

	res, err := o.narrator.Run(ctx, agent.Request{
		Task:          task.Name,
		System:        system,
		Tools:         task.Tools(env),
		MaxIterations: iters,
	})
	if err != nil {
		return Failed(task.Name, gatewayKind(err), err)
	}

	result := &model.MetricResult{
		Metric:     task.Name,
		Title:      task.Title,
		Insights:   CleanMarkup(res.Text),
		Chart:      comp.Chart,
		Data:       comp.Data,
		Iterations: res.Iterations,
	}

	if o.store != nil {
		if _, err := o.store.SaveMetric(ctx, result.Artifact(runID)); err != nil {
			return Failed(task.Name, KindPersist, fmt.Errorf("save artifact: %w", err))
		}
		metrics.RecordArtifact(o.store.Kind(), "metric")
	}

	return Succeeded(result)
}
