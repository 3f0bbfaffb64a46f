package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/capitalize-ai/journey-analytics/internal/agent"
	"github.com/capitalize-ai/journey-analytics/internal/model"
)

// maxErrorLen caps the message part of a recorded task error, in runes.
const maxErrorLen = 200

// ErrorKind classifies why a metric task failed.
type ErrorKind string

const (
	KindAlgorithm        ErrorKind = "algorithm"
	KindGatewayExhausted ErrorKind = "gateway_exhausted"
	KindProvider         ErrorKind = "provider"
	KindPersist          ErrorKind = "persist"
	KindPanic            ErrorKind = "panic"
)

// TaskError is the failure variant of a task Outcome.
type TaskError struct {
	Metric string
	Kind   ErrorKind
	Err    error
}

// Error renders "<metric>: <message>" with the message truncated.
func (e *TaskError) Error() string {
	return e.Metric + ": " + truncate(e.Err.Error(), maxErrorLen)
}

func (e *TaskError) Unwrap() error { return e.Err }

// Outcome is the tagged result of one metric task: exactly one of Result
// and Err is set.
type Outcome struct {
	Metric   string
	Result   *model.MetricResult
	Err      *TaskError
	Duration time.Duration
}

// Succeeded returns a success outcome.
func Succeeded(result *model.MetricResult) Outcome {
	return Outcome{Metric: result.Metric, Result: result}
}

// Failed returns a failure outcome.
func Failed(metric string, kind ErrorKind, err error) Outcome {
	return Outcome{Metric: metric, Err: &TaskError{Metric: metric, Kind: kind, Err: err}}
}

// OK reports whether the task produced a result.
func (o Outcome) OK() bool { return o.Err == nil }

// Status is "success" or the failure kind, for metrics labels.
func (o Outcome) Status() string {
	if o.OK() {
		return "success"
	}
	return string(o.Err.Kind)
}

// IngestionError aborts a run before any metric task starts.
type IngestionError struct {
	Err error
}

func (e *IngestionError) Error() string { return "ingestion failed: " + e.Err.Error() }
func (e *IngestionError) Unwrap() error { return e.Err }

// gatewayKind distinguishes provider exhaustion from fatal provider errors.
func gatewayKind(err error) ErrorKind {
	var exhausted *agent.ExhaustedError
	if errors.As(err, &exhausted) || errors.Is(err, agent.ErrNoCandidates) {
		return KindGatewayExhausted
	}
	return KindProvider
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
