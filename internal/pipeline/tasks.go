package pipeline

import (
	"github.com/capitalize-ai/journey-analytics/internal/agent"
	"github.com/capitalize-ai/journey-analytics/internal/analytics"
	"github.com/capitalize-ai/journey-analytics/internal/model"
)

// Metric names, in report order.
const (
	MetricFunnel       = "funnel_analysis"
	MetricDropoff      = "dropoff_analysis"
	MetricFriction     = "friction_points"
	MetricSessions     = "session_metrics"
	MetricRetention    = "retention_analysis"
	MetricSegmentation = "user_segmentation"
	MetricConversion   = "conversion_rates"
	MetricLatency      = "time_to_action"
	MetricFrequency    = "event_frequency"
	MetricTemporal     = "temporal_patterns"
	MetricJourney      = "user_journey_insights"
)

// MetricOrder is the fixed order metrics appear in the compiled report.
var MetricOrder = []string{
	MetricFunnel, MetricDropoff, MetricFriction, MetricSessions, MetricRetention,
	MetricSegmentation, MetricConversion, MetricLatency, MetricFrequency,
	MetricTemporal, MetricJourney,
}

// latencyMaxIterations gives the latency task room for one call per pair.
const latencyMaxIterations = 8

// Computation is the deterministic part of a task.
type Computation struct {
	Data  any
	Chart *model.ChartConfig
	// Context is appended to the system prompt.
	Context string
}

// Task pairs one metric algorithm with its narration prompt and tools.
type Task struct {
	Name  string
	Title string
	// MaxIterations overrides the orchestrator default when positive.
	MaxIterations int
	Prompt        func(env *Env) string
	Compute       func(env *Env) (Computation, error)
	Tool          func(env *Env) agent.Tool
}

// Tools returns the query tools plus the task's own metric tool.
func (t Task) Tools(env *Env) []agent.Tool {
	tools := QueryTools(env)
	if t.Tool != nil {
		tools = append(tools, t.Tool(env))
	}
	return tools
}

// Catalog returns every metric task in report order.
func Catalog() []Task {
	return []Task{
		{
			Name:    MetricFunnel,
			Title:   "Booking Funnel Analysis",
			Prompt:  funnelPrompt,
			Compute: computeFunnel,
			Tool:    funnelTool,
		},
		{
			Name:   MetricDropoff,
			Title:  "Drop-off Waterfall Analysis",
			Prompt: dropoffPrompt,
			Compute: func(env *Env) (Computation, error) {
				r := analytics.Dropoffs(env.Dataset, env.Analysis.DropoffStages)
				return Computation{Data: r, Chart: r.Chart()}, nil
			},
			Tool: dropoffTool,
		},
		{
			Name:   MetricFriction,
			Title:  "Friction Point Analysis",
			Prompt: frictionPrompt,
			Compute: func(env *Env) (Computation, error) {
				a := env.Analysis
				r := analytics.Friction(env.Dataset, a.Markers(), a.FrictionMinTotal, a.FrictionTopK)
				return Computation{Data: r, Chart: analytics.FrictionChart(r)}, nil
			},
			Tool: frictionTool,
		},
		{
			Name:    MetricSessions,
			Title:   "Session Behaviour Metrics",
			Prompt:  sessionPrompt,
			Compute: computeSessions,
			Tool:    sessionTool,
		},
		{
			Name:   MetricRetention,
			Title:  "Cohort Retention Heatmap",
			Prompt: retentionPrompt,
			Compute: func(env *Env) (Computation, error) {
				r := analytics.Retention(env.Dataset, env.Analysis.RetentionMaxWeeks)
				return Computation{Data: r, Chart: r.Chart()}, nil
			},
			Tool: retentionTool,
		},
		{
			Name:   MetricSegmentation,
			Title:  "User Segmentation",
			Prompt: segmentationPrompt,
			Compute: func(env *Env) (Computation, error) {
				a := env.Analysis
				r, err := analytics.Segment(env.Dataset, a.Markers(), analytics.NewEventSet(a.BookingEvents...),
					a.ClusterEps, a.ClusterMinSamples)
				if err != nil {
					return Computation{}, err
				}
				return Computation{Data: r, Chart: r.Chart()}, nil
			},
			Tool: clusterTool,
		},
		{
			Name:    MetricConversion,
			Title:   "Conversion Rate Analysis",
			Prompt:  conversionPrompt,
			Compute: computeConversion,
			Tool:    conversionTool,
		},
		{
			Name:          MetricLatency,
			Title:         "Time-to-Action Analysis",
			MaxIterations: latencyMaxIterations,
			Prompt:        latencyPrompt,
			Compute: func(env *Env) (Computation, error) {
				pairs := make([]analytics.LatencyResult, 0, len(env.Analysis.LatencyPairs))
				for _, p := range env.Analysis.LatencyPairs {
					pairs = append(pairs, analytics.Latency(env.Dataset, p.From, p.To))
				}
				return Computation{Data: pairs, Chart: analytics.LatencyChart(pairs)}, nil
			},
			Tool: latencyTool,
		},
		{
			Name:   MetricFrequency,
			Title:  "Event Frequency Distribution",
			Prompt: frequencyPrompt,
			Compute: func(env *Env) (Computation, error) {
				a := env.Analysis
				r := analytics.Frequency(env.Dataset, a.FrequencyTopN, a.SuperuserThreshold)
				return Computation{Data: r, Chart: r.Chart()}, nil
			},
			Tool: frequencyTool,
		},
		{
			Name:   MetricTemporal,
			Title:  "Temporal Usage Patterns",
			Prompt: temporalPrompt,
			Compute: func(env *Env) (Computation, error) {
				r := analytics.Temporal(env.Dataset)
				return Computation{Data: r, Chart: r.Chart()}, nil
			},
			Tool: temporalTool,
		},
		{
			Name:   MetricJourney,
			Title:  "User Journey & Persona Analysis",
			Prompt: journeyPrompt,
			Compute: func(env *Env) (Computation, error) {
				a := env.Analysis
				r := analytics.Journey(env.Dataset, a.Journey, a.JourneyMinEvents)
				return Computation{Data: r, Chart: r.Chart()}, nil
			},
			Tool: journeyTool,
		},
	}
}

// IsMetric reports whether name is a catalogued metric.
func IsMetric(name string) bool {
	for _, m := range MetricOrder {
		if m == name {
			return true
		}
	}
	return false
}

type funnelData struct {
	Stages []analytics.FunnelStage                   `json:"stages"`
	Trend  analytics.Trend[analytics.FunnelOverview] `json:"trend"`
}

func computeFunnel(env *Env) (Computation, error) {
	a := env.Analysis
	stages := analytics.Funnel(env.Dataset, a.FunnelStages)

	h := env.Halves()
	trend := analytics.Compare(h, analytics.OverviewFunnel(
		analytics.NewEventSet(a.Conversion.Success...),
		analytics.NewEventSet(a.Journey.Search...),
		analytics.NewEventSet(a.ResultEvents...),
	))

	return Computation{
		Data:    funnelData{Stages: stages, Trend: trend},
		Chart:   analytics.FunnelChart(stages),
		Context: funnelTrendContext(h, trend),
	}, nil
}

type sessionData struct {
	analytics.SessionResult
	Trend analytics.Trend[analytics.SessionOverview] `json:"trend"`
}

func computeSessions(env *Env) (Computation, error) {
	markers := env.Analysis.Markers()
	r := analytics.SessionMetrics(env.Dataset, markers)
	h := env.Halves()
	trend := analytics.Compare(h, analytics.OverviewSessions(markers))
	return Computation{
		Data:    sessionData{SessionResult: r, Trend: trend},
		Chart:   r.Chart(),
		Context: sessionTrendContext(h, trend),
	}, nil
}

type conversionData struct {
	analytics.ConversionResult
	Trend analytics.Trend[analytics.ConversionOverview] `json:"trend"`
}

func computeConversion(env *Env) (Computation, error) {
	ev := env.Analysis.Conversion
	r := analytics.Conversion(env.Dataset, ev)
	h := env.Halves()
	trend := analytics.Compare(h, analytics.OverviewConversion(ev))
	return Computation{
		Data:    conversionData{ConversionResult: r, Trend: trend},
		Chart:   r.Chart(),
		Context: conversionTrendContext(h, trend),
	}, nil
}
