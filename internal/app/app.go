// Package app wires configuration into a ready-to-run pipeline. Both the
// API server and the CLI build on it.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/capitalize-ai/journey-analytics/internal/agent"
	"github.com/capitalize-ai/journey-analytics/internal/config"
	"github.com/capitalize-ai/journey-analytics/internal/dataset"
	natsclient "github.com/capitalize-ai/journey-analytics/internal/nats"
	"github.com/capitalize-ai/journey-analytics/internal/pipeline"
	"github.com/capitalize-ai/journey-analytics/internal/report"
	"github.com/capitalize-ai/journey-analytics/internal/storage"
	"github.com/capitalize-ai/journey-analytics/pkg/logger"
)

// Overrides replace configured values for a single invocation.
type Overrides struct {
	DatasetPath  string
	OutputDir    string
	AnalysisPath string
}

// App holds the wired components. Close releases connections.
type App struct {
	Orchestrator *pipeline.Orchestrator
	Gateway      *agent.Gateway
	Store        storage.ArtifactStore
	Source       dataset.Source
	NATS         *natsclient.Client
	Analysis     *config.Analysis
}

// Build wires source, store, gateway, compiler and orchestrator from cfg.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger, ov Overrides) (*App, error) {
	a := &App{}

	analysisPath := cfg.AnalysisConfigPath
	if ov.AnalysisPath != "" {
		analysisPath = ov.AnalysisPath
	}
	analysis, err := config.LoadAnalysis(analysisPath)
	if err != nil {
		return nil, err
	}
	a.Analysis = analysis

	a.Source, err = dataset.Open(ctx, cfg, ov.DatasetPath)
	if err != nil {
		return nil, fmt.Errorf("open event source: %w", err)
	}

	if err := a.openStore(ctx, cfg, log, ov.OutputDir); err != nil {
		a.Close()
		return nil, err
	}

	a.Gateway, err = agent.GatewayFromConfig(cfg, agent.WithLogger(log))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("configure providers: %w", err)
	}
	if len(a.Gateway.Candidates()) == 0 {
		log.Warn("no LLM API keys configured, every metric task will fail")
	}

	compiler := report.New(a.Gateway, a.Store, log)
	a.Orchestrator = pipeline.New(a.Source, a.Gateway, a.Store, compiler, analysis,
		pipeline.WithConcurrency(cfg.TaskConcurrency),
		pipeline.WithMaxIterations(cfg.AgentMaxIterations),
		pipeline.WithLogger(log),
	)

	log.Info("pipeline wired",
		zap.String("source", a.Source.Describe()),
		zap.String("store", a.Store.Kind()),
		zap.Strings("providers", a.Gateway.Candidates()),
		zap.Int("concurrency", cfg.TaskConcurrency),
	)
	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg *config.Config, log *logger.Logger, outputDir string) error {
	switch cfg.ArtifactStore {
	case "", "file":
		if outputDir == "" {
			outputDir = cfg.OutputDir
		}
		fs, err := storage.NewFileStore(outputDir)
		if err != nil {
			return err
		}
		a.Store = fs
	case "nats":
		client, err := natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		a.NATS = client
		sm := natsclient.NewStreamManager(client, log)
		if err := sm.EnsureStream(ctx); err != nil {
			return fmt.Errorf("ensure stream: %w", err)
		}
		a.Store = sm
	default:
		return fmt.Errorf("unknown artifact store %q", cfg.ArtifactStore)
	}
	return nil
}

// Close releases the event source and NATS connection.
func (a *App) Close() {
	if c, ok := a.Source.(dataset.Closer); ok {
		_ = c.Close()
	}
	if a.NATS != nil {
		a.NATS.Close()
	}
}
