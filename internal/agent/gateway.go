// Package agent implements the resilient external-call gateway: ordered
// provider candidates with rate-limit fallback around a bounded
// tool-dispatch loop.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/capitalize-ai/journey-analytics/internal/llm"
	"github.com/capitalize-ai/journey-analytics/pkg/logger"
	"github.com/capitalize-ai/journey-analytics/pkg/metrics"
	"github.com/capitalize-ai/journey-analytics/pkg/tracing"
)

const (
	// DefaultMaxIterations bounds the tool-dispatch loop when a request
	// does not set its own cap.
	DefaultMaxIterations = 5
	// DefaultBackoff is the pause before moving past a throttled provider.
	DefaultBackoff = 2 * time.Second

	// Placeholder is returned when the model finishes without any text.
	Placeholder = "Analysis complete."

	analyzeInstruction = "Analyze the dataset and provide detailed findings. " +
		"Use the available tools to gather data before forming conclusions. " +
		"Do not guess -- call tools first. No emoji in output."
)

// ErrNoCandidates is returned when the gateway has no provider to call.
var ErrNoCandidates = errors.New("no API keys configured")

// ExhaustedError is returned once every candidate was throttled.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("All providers exhausted. Last error: %v", e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Candidate is one (provider, credential) pair, already bound into a client.
type Candidate struct {
	Label  string
	Client llm.Client
}

// Request is one top-level gateway call.
type Request struct {
	// Task names the caller for logs, metrics and spans.
	Task          string
	System        string
	Instruction   string
	Tools         []Tool
	MaxIterations int
}

// Result is the narrative produced by a successful candidate.
type Result struct {
	Text       string
	Iterations int
	Provider   string
	Attempts   int
	TokensIn   int
	TokensOut  int
}

// SleepFunc pauses between candidates.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Gateway calls candidates in order until one completes the dispatch loop.
type Gateway struct {
	candidates  []Candidate
	backoff     time.Duration
	sleep       SleepFunc
	temperature float64
	maxTokens   int
	logger      *logger.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithBackoff sets the pause taken after a rate-limited candidate.
func WithBackoff(d time.Duration) Option {
	return func(g *Gateway) { g.backoff = d }
}

// WithSleep replaces the backoff sleeper.
func WithSleep(fn SleepFunc) Option {
	return func(g *Gateway) { g.sleep = fn }
}

// WithTemperature sets the sampling temperature passed to every provider.
func WithTemperature(t float64) Option {
	return func(g *Gateway) { g.temperature = t }
}

// WithMaxTokens sets the per-response token limit.
func WithMaxTokens(n int) Option {
	return func(g *Gateway) { g.maxTokens = n }
}

// WithLogger sets the gateway logger.
func WithLogger(log *logger.Logger) Option {
	return func(g *Gateway) { g.logger = log }
}

// NewGateway creates a gateway over the ordered candidates.
func NewGateway(candidates []Candidate, opts ...Option) *Gateway {
	g := &Gateway{
		candidates:  candidates,
		backoff:     DefaultBackoff,
		sleep:       sleepContext,
		temperature: 0.3,
		maxTokens:   4000,
		logger:      logger.Global(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Candidates returns the labels of the configured candidates in call order.
func (g *Gateway) Candidates() []string {
	out := make([]string, len(g.candidates))
	for i, c := range g.candidates {
		out[i] = c.Label
	}
	return out
}

// Run executes req against the candidates in order. A throttled candidate
// costs one backoff and is not retried; any other failure is returned
// immediately.
func (g *Gateway) Run(ctx context.Context, req Request) (res *Result, err error) {
	ctx, span := tracing.Start(ctx, "agent.Run",
		attribute.String("task", req.Task),
		attribute.Int("candidates", len(g.candidates)),
	)
	defer func() { tracing.End(span, err) }()

	if len(g.candidates) == 0 {
		return nil, ErrNoCandidates
	}

	log := g.logger.With(zap.String("task", req.Task))
	var last error
	for i, cand := range g.candidates {
		out, aerr := g.attempt(ctx, cand, req)
		kind := Classify(aerr)
		metrics.RecordAttempt(cand.Label, kind.String())

		switch kind {
		case FailureNone:
			out.Attempts = i + 1
			span.SetAttributes(
				attribute.String("provider", cand.Label),
				attribute.Int("iterations", out.Iterations),
			)
			return out, nil
		case FailureRateLimit:
			last = aerr
			metrics.RecordFallback(cand.Label)
			log.Warn("provider rate limited, falling back",
				zap.String("provider", cand.Label),
				zap.Duration("backoff", g.backoff),
				zap.Error(aerr),
			)
			if serr := g.sleep(ctx, g.backoff); serr != nil {
				return nil, serr
			}
		default:
			return nil, fmt.Errorf("%s: %w", cand.Label, aerr)
		}
	}

	return nil, &ExhaustedError{Attempts: len(g.candidates), Last: last}
}

// attempt runs the bounded tool-dispatch loop against one candidate.
func (g *Gateway) attempt(ctx context.Context, cand Candidate, req Request) (*Result, error) {
	maxIter := req.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}
	instruction := req.Instruction
	if instruction == "" {
		instruction = analyzeInstruction
	}

	messages := []llm.ChatMessage{
		{Role: llm.RoleSystem, Content: req.System},
		{Role: llm.RoleUser, Content: instruction},
	}
	var specs []llm.ToolSpec
	registry := make(map[string]Tool, len(req.Tools))
	for _, t := range req.Tools {
		specs = append(specs, t.Spec())
		registry[t.Name] = t
	}

	res := &Result{Provider: cand.Label}
	var text string
	for round := 0; round < maxIter; round++ {
		resp, err := cand.Client.Complete(ctx, &llm.CompletionRequest{
			Messages:    messages,
			Tools:       specs,
			MaxTokens:   g.maxTokens,
			Temperature: g.temperature,
		})
		if err != nil {
			return nil, err
		}
		res.Iterations = round + 1
		res.TokensIn += resp.TokensIn
		res.TokensOut += resp.TokensOut
		metrics.RecordTokens(resp.Model, resp.TokensIn, resp.TokensOut)

		text = resp.Content
		if len(resp.ToolCalls) == 0 {
			break
		}

		messages = append(messages, llm.ChatMessage{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			messages = append(messages, llm.ChatMessage{
				Role:       llm.RoleTool,
				Content:    g.dispatch(ctx, registry, call),
				ToolCallID: call.ID,
				Name:       call.Name,
			})
		}
	}

	if strings.TrimSpace(text) == "" {
		text = Placeholder
	}
	res.Text = text
	return res, nil
}

// dispatch runs one tool call. Failures become text for the model and
// never abort the loop.
func (g *Gateway) dispatch(ctx context.Context, registry map[string]Tool, call llm.ToolCall) (out string) {
	tool, ok := registry[call.Name]
	if !ok {
		metrics.RecordTool(call.Name, "unknown")
		return "Unknown tool: " + call.Name
	}

	defer func() {
		if r := recover(); r != nil {
			metrics.RecordTool(call.Name, "panic")
			g.logger.Error("tool panicked", zap.String("tool", call.Name), zap.Any("panic", r))
			out = fmt.Sprintf("Tool error: %v", r)
		}
	}()

	v, err := tool.Handler(ctx, parseArgs(call.Arguments))
	if err == nil {
		out, err = encodeToolResult(v)
	}
	if err != nil {
		metrics.RecordTool(call.Name, "error")
		g.logger.Debug("tool failed", zap.String("tool", call.Name), zap.Error(err))
		return "Tool error: " + err.Error()
	}
	metrics.RecordTool(call.Name, "success")
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
