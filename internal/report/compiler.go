// Package report synthesises the merged pipeline state into the executive
// report.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/journey-analytics/internal/agent"
	"github.com/capitalize-ai/journey-analytics/internal/model"
	"github.com/capitalize-ai/journey-analytics/internal/pipeline"
	"github.com/capitalize-ai/journey-analytics/internal/storage"
	"github.com/capitalize-ai/journey-analytics/pkg/logger"
	"github.com/capitalize-ai/journey-analytics/pkg/metrics"
	"github.com/capitalize-ai/journey-analytics/pkg/tracing"
)

// TaskName identifies the synthesis call in gateway logs and metrics.
const TaskName = "compiler"

const synthesisInstruction = "Write the executive report now using only the metric results above."

// Compiler implements pipeline.Compiler.
type Compiler struct {
	narrator pipeline.Narrator
	store    storage.ArtifactStore
	logger   *logger.Logger
	now      func() time.Time
}

var _ pipeline.Compiler = (*Compiler)(nil)

// New creates a compiler. A nil store skips saving the report.
func New(narrator pipeline.Narrator, store storage.ArtifactStore, log *logger.Logger) *Compiler {
	if log == nil {
		log = logger.Global()
	}
	return &Compiler{
		narrator: narrator,
		store:    store,
		logger:   log,
		now:      time.Now,
	}
}

// Compile calls the gateway once over every metric's insights. A failed
// synthesis falls back to a static narrative; a failed save leaves the
// report location empty. Both are recorded on st.
func (c *Compiler) Compile(ctx context.Context, runID string, st *pipeline.State) *model.CompiledReport {
	log := c.logger.WithRun(runID)
	ctx, span := tracing.Start(ctx, "report.Compile")
	defer tracing.End(span, nil)

	log.Info("compiling report",
		zap.Int("results", len(st.Results)),
		zap.Int("errors", len(st.Errors)),
	)

	narrative, err := c.synthesise(ctx, st)
	if err != nil {
		log.Warn("executive synthesis failed, using fallback", zap.Error(err))
		st.AddError(TaskName + ": " + err.Error())
		narrative = Fallback(st)
	}

	summary := st.Summary
	rep := &model.CompiledReport{
		RunID:            runID,
		Narrative:        narrative,
		MetricsCompleted: st.Completed(),
		MetricsFailed:    st.Failed(),
		Summary:          &summary,
		GeneratedAt:      c.now().UTC(),
	}

	if c.store == nil {
		return rep
	}
	loc, err := c.store.SaveReport(ctx, rep)
	if err != nil {
		log.Error("failed to save report", zap.String("store", c.store.Kind()), zap.Error(err))
		st.AddError(TaskName + ": save report: " + err.Error())
		rep.MetricsFailed = st.Failed()
		rep.ReportLocation = ""
		return rep
	}
	rep.ReportLocation = loc
	metrics.RecordArtifact(c.store.Kind(), "report")
	log.Info("report saved", zap.String("location", loc))
	return rep
}

func (c *Compiler) synthesise(ctx context.Context, st *pipeline.State) (string, error) {
	prompt, err := Prompt(st)
	if err != nil {
		return "", err
	}
	res, err := c.narrator.Run(ctx, agent.Request{
		Task:          TaskName,
		System:        prompt,
		Instruction:   synthesisInstruction,
		MaxIterations: 1,
	})
	if err != nil {
		return "", err
	}
	return pipeline.CleanMarkup(res.Text), nil
}

// Prompt renders the executive-synthesis prompt. Insights appear in report
// order regardless of task completion order.
func Prompt(st *pipeline.State) (string, error) {
	summary, err := json.MarshalIndent(st.Summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal dataset summary: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `You are a senior product analytics consultant with 15 years of experience in mobile app growth,
retention, and monetisation. You specialise in bus/travel booking platforms.

You have received results from %d independent analysis agents that each examined a different
dimension of user behaviour within a bus ticket booking mobile app. Synthesize these individual
findings into a single, unified executive report that a VP of Product or CTO can act on.

Dataset summary (application events only, system events excluded):
%s

Individual metric results:
`, len(st.Results), summary)

	for _, name := range st.Completed() {
		r := st.Results[name]
		insights := r.Insights
		if insights == "" {
			insights = "No insights"
		}
		fmt.Fprintf(&b, "\n### %s\n%s\n", name, insights)
	}

	b.WriteString(formattingRules)
	return b.String(), nil
}

const formattingRules = `

CRITICAL FORMATTING RULES:
- Use ONLY HTML tags for formatting: <h3>, <h4>, <ul>, <li>, <p>, <strong>, <em>.
- Do NOT use markdown syntax anywhere. No **, no *, no ##, no - lists.
- Do NOT use emoji characters anywhere. Be professional and data-driven.
- Every paragraph must be wrapped in <p> tags and every list must use <ul> and <li> tags.
- Section headers must use <h3> tags. Sub-headers use <h4>.
- Keep all numbers and percentages precise, rounded to 1 decimal place.

Produce a structured executive report with these exact sections:
1. <h3>Executive Summary</h3>: 3-4 sentences on overall product health, key KPIs, and trajectory.
2. <h3>Top 5 Critical Findings</h3>: ranked by business impact, each citing specific numbers
   from the metric results, as numbered <li> items.
3. <h3>Cross-Metric Correlations</h3>: patterns visible across 2+ metrics. Cite which metrics
   you are correlating.
4. <h3>User Health Scorecard</h3>: rate Acquisition, Activation, Retention, Revenue and Referral
   (AARRR) as Critical, Needs Work or Healthy with 1 sentence why.
5. <h3>Strategic Recommendations</h3>: 5 prioritised actions, each with the problem it solves,
   the expected impact (quantified) and implementation complexity (Low/Medium/High).
6. <h3>Quick Wins</h3>: 3 things implementable within a single sprint with highest ROI.`

// Fallback is the narrative used when the synthesis call fails. It lists
// what completed so the report is still useful on its own.
func Fallback(st *pipeline.State) string {
	var b strings.Builder
	b.WriteString("<h3>Executive Summary</h3>\n")
	fmt.Fprintf(&b, "<p>Executive synthesis was unavailable for this run. %d of %d metrics completed; "+
		"see the individual metric insights below.</p>\n", len(st.Results), len(st.Results)+len(st.Failures))

	if completed := st.Completed(); len(completed) > 0 {
		b.WriteString("<h4>Completed Metrics</h4>\n<ul>\n")
		for _, name := range completed {
			title := st.Results[name].Title
			if title == "" {
				title = name
			}
			fmt.Fprintf(&b, "<li>%s</li>\n", title)
		}
		b.WriteString("</ul>\n")
	}
	if len(st.Failures) > 0 {
		b.WriteString("<h4>Failed Metrics</h4>\n<ul>\n")
		for _, f := range st.Failures {
			fmt.Fprintf(&b, "<li>%s</li>\n", f.Metric)
		}
		b.WriteString("</ul>\n")
	}
	return strings.TrimSpace(b.String())
}
