// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// PipelineRunsTotal counts finished pipeline runs by status.
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Total pipeline runs by final status",
		},
		[]string{"status"},
	)

	// PipelinePhaseDuration tracks the time spent in each pipeline phase.
	PipelinePhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_phase_duration_seconds",
			Help:    "Pipeline phase duration",
			Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"phase"},
	)

	// MetricTaskDuration tracks metric task duration by outcome.
	MetricTaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "metric_task_duration_seconds",
			Help:    "Metric task duration",
			Buckets: []float64{.1, .5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"metric", "outcome"},
	)

	// GatewayAttemptsTotal counts provider attempts by outcome.
	GatewayAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_attempts_total",
			Help: "Provider attempts made by the external-call gateway",
		},
		[]string{"provider", "outcome"},
	)

	// GatewayFallbacksTotal counts rate-limit fallbacks to the next provider.
	GatewayFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_fallbacks_total",
			Help: "Rate-limited providers skipped in favour of the next candidate",
		},
		[]string{"provider"},
	)

	// ToolInvocationsTotal counts tool dispatches by outcome.
	ToolInvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tool_invocations_total",
			Help: "Tool invocations dispatched by the gateway",
		},
		[]string{"tool", "outcome"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// SSEConnectionsActive tracks active SSE connections.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)

	// ArtifactsPublished counts persisted artifacts by store and kind.
	ArtifactsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artifacts_published_total",
			Help: "Metric and report artifacts persisted",
		},
		[]string{"store", "kind"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordTask records the duration and outcome of a metric task.
func RecordTask(metric, outcome string, duration float64) {
	MetricTaskDuration.WithLabelValues(metric, outcome).Observe(duration)
}

// RecordPhase records how long a pipeline phase took.
func RecordPhase(phase string, duration float64) {
	PipelinePhaseDuration.WithLabelValues(phase).Observe(duration)
}

// RecordRun records a finished run.
func RecordRun(status string) {
	PipelineRunsTotal.WithLabelValues(status).Inc()
}

// RecordAttempt records one provider attempt.
func RecordAttempt(provider, outcome string) {
	GatewayAttemptsTotal.WithLabelValues(provider, outcome).Inc()
}

// RecordFallback records a rate-limit fallback away from provider.
func RecordFallback(provider string) {
	GatewayFallbacksTotal.WithLabelValues(provider).Inc()
}

// RecordTool records one tool invocation.
func RecordTool(tool, outcome string) {
	ToolInvocationsTotal.WithLabelValues(tool, outcome).Inc()
}

// RecordTokens records token usage for a model.
func RecordTokens(model string, tokensIn, tokensOut int) {
	LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
}

// RecordArtifact records a persisted artifact.
func RecordArtifact(store, kind string) {
	ArtifactsPublished.WithLabelValues(store, kind).Inc()
}

// IncrementSSEConnections increments the active SSE connection count.
func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

// DecrementSSEConnections decrements the active SSE connection count.
func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}
