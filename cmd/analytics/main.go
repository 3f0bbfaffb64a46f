package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/capitalize-ai/journey-analytics/internal/analytics"
	"github.com/capitalize-ai/journey-analytics/internal/app"
	"github.com/capitalize-ai/journey-analytics/internal/config"
	"github.com/capitalize-ai/journey-analytics/internal/dataset"
	"github.com/capitalize-ai/journey-analytics/internal/pipeline"
	"github.com/capitalize-ai/journey-analytics/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootFlags struct {
	dataset  string
	config   string
	logLevel string
}

func newRootCmd() *cobra.Command {
	var flags rootFlags

	root := &cobra.Command{
		Use:           "analytics",
		Short:         "Behavioural analytics over mobile app event logs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.dataset, "dataset", "", "event CSV path (default DATASET_PATH)")
	root.PersistentFlags().StringVar(&flags.config, "config", "", "analysis parameter YAML (default ANALYSIS_CONFIG)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (default LOG_LEVEL)")

	root.AddCommand(newRunCmd(&flags))
	root.AddCommand(newSummaryCmd(&flags))
	root.AddCommand(newMetricsCmd())
	return root
}

func newLogger(cfg *config.Config, flags *rootFlags) (*logger.Logger, error) {
	level := cfg.LogLevel
	if flags.logLevel != "" {
		level = flags.logLevel
	}
	log, err := logger.New(level)
	if err != nil {
		return nil, err
	}
	logger.SetGlobal(log)
	return log, nil
}

func newRunCmd(flags *rootFlags) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every metric task once and compile the report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			log, err := newLogger(cfg, flags)
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.Build(ctx, cfg, log, app.Overrides{
				DatasetPath:  flags.dataset,
				OutputDir:    output,
				AnalysisPath: flags.config,
			})
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			start := time.Now()
			st, err := a.Orchestrator.Run(ctx, uuid.Must(uuid.NewV7()).String(), pipeline.Hooks{
				OnPhase: func(p pipeline.Phase) {
					_, _ = fmt.Fprintf(out, "phase: %s\n", p)
				},
				OnOutcome: func(o pipeline.Outcome) {
					printOutcome(out, o)
				},
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(out, "\ncompleted %d/%d metrics in %s\n",
				len(st.Results), len(st.Results)+len(st.Failures), time.Since(start).Round(time.Millisecond))
			for _, e := range st.Errors {
				_, _ = fmt.Fprintf(out, "  error: %s\n", e)
			}
			if st.Report != nil && st.Report.ReportLocation != "" {
				_, _ = fmt.Fprintf(out, "report: %s\n", st.Report.ReportLocation)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&output, "output", "", "artifact directory for the file store (default OUTPUT_DIR)")
	return cmd
}

func printOutcome(w io.Writer, o pipeline.Outcome) {
	if o.OK() {
		_, _ = fmt.Fprintf(w, "  ok    %-24s %3d iterations  %s\n", o.Metric, o.Result.Iterations, o.Duration.Round(time.Millisecond))
		return
	}
	_, _ = fmt.Fprintf(w, "  FAIL  %-24s [%s] %s\n", o.Metric, o.Err.Kind, o.Err.Error())
}

func newSummaryCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Load the dataset and print its summary without calling any model",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			ctx := context.Background()

			src, err := dataset.Open(ctx, cfg, flags.dataset)
			if err != nil {
				return err
			}
			if c, ok := src.(dataset.Closer); ok {
				defer c.Close()
			}

			events, err := src.Load(ctx)
			if err != nil {
				return err
			}
			d, err := analytics.NewDataset(events)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(analytics.Summarize(d))
		},
	}
}

func newMetricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "List the metric catalogue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, t := range pipeline.Catalog() {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s\n", t.Name, t.Title)
			}
			return nil
		},
	}
}
