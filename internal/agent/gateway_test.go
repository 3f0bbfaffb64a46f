package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/capitalize-ai/journey-analytics/internal/llm"
	"github.com/capitalize-ai/journey-analytics/pkg/logger"
)

// scriptedClient replays responses in order and records every request.
type scriptedClient struct {
	mu        sync.Mutex
	name      string
	responses []*llm.CompletionResponse
	err       error
	requests  []*llm.CompletionRequest
}

func (c *scriptedClient) Complete(_ context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *req
	cp.Messages = append([]llm.ChatMessage(nil), req.Messages...)
	c.requests = append(c.requests, &cp)
	if c.err != nil {
		return nil, c.err
	}
	if len(c.responses) == 0 {
		return &llm.CompletionResponse{Content: "done"}, nil
	}
	resp := c.responses[0]
	c.responses = c.responses[1:]
	return resp, nil
}

func (c *scriptedClient) Name() string     { return c.name }
func (c *scriptedClient) Models() []string { return nil }

func (c *scriptedClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func newTestGateway(rec *sleepRecorder, candidates ...Candidate) *Gateway {
	return NewGateway(candidates,
		WithSleep(rec.sleep),
		WithBackoff(2*time.Second),
		WithLogger(logger.Nop()),
	)
}

func toolCall(id, name, args string) llm.ToolCall {
	return llm.ToolCall{ID: id, Name: name, Arguments: json.RawMessage(args)}
}

func TestGatewayFallsBackOnRateLimit(t *testing.T) {
	throttled := &scriptedClient{name: "p1", err: errors.New("googleapi: Error 429: RESOURCE_EXHAUSTED")}
	healthy := &scriptedClient{name: "p2", responses: []*llm.CompletionResponse{{Content: "insight"}}}
	rec := &sleepRecorder{}

	g := newTestGateway(rec, Candidate{Label: "p1", Client: throttled}, Candidate{Label: "p2", Client: healthy})
	res, err := g.Run(context.Background(), Request{Task: "funnel", System: "sys"})

	require.NoError(t, err)
	assert.Equal(t, "insight", res.Text)
	assert.Equal(t, "p2", res.Provider)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, 1, res.Iterations)
	assert.Equal(t, []time.Duration{2 * time.Second}, rec.delays)
	assert.Equal(t, 1, throttled.calls())
	assert.Equal(t, 1, healthy.calls())
}

func TestGatewayFailsFastOnFatalError(t *testing.T) {
	broken := &scriptedClient{name: "p1", err: errors.New("invalid api key")}
	healthy := &scriptedClient{name: "p2"}
	rec := &sleepRecorder{}

	g := newTestGateway(rec, Candidate{Label: "p1", Client: broken}, Candidate{Label: "p2", Client: healthy})
	_, err := g.Run(context.Background(), Request{Task: "funnel"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")
	assert.Equal(t, FailureFatal, Classify(err))
	assert.Empty(t, rec.delays)
	assert.Equal(t, 0, healthy.calls())
}

func TestGatewayExhausted(t *testing.T) {
	p1 := &scriptedClient{name: "p1", err: errors.New("rate_limit_error: slow down")}
	p2 := &scriptedClient{name: "p2", err: &RateLimitError{Err: errors.New("quota")}}
	rec := &sleepRecorder{}

	g := newTestGateway(rec, Candidate{Label: "p1", Client: p1}, Candidate{Label: "p2", Client: p2})
	_, err := g.Run(context.Background(), Request{Task: "retention"})

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 2, exhausted.Attempts)
	assert.Contains(t, err.Error(), "All providers exhausted. Last error: rate limited: quota")
	assert.Len(t, rec.delays, 2)
}

func TestGatewayNoCandidates(t *testing.T) {
	g := newTestGateway(&sleepRecorder{})
	_, err := g.Run(context.Background(), Request{Task: "funnel"})
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestGatewayDispatchesTools(t *testing.T) {
	client := &scriptedClient{name: "p1", responses: []*llm.CompletionResponse{
		{ToolCalls: []llm.ToolCall{
			toolCall("c1", "count", `{"names": ["a", "b"]}`),
			toolCall("c2", "missing", `{}`),
			toolCall("c3", "broken", `{}`),
		}},
		{Content: "final answer"},
	}}
	var gotNames []string
	tools := []Tool{
		{
			Name: "count",
			Handler: func(_ context.Context, args gjson.Result) (any, error) {
				for _, n := range args.Get("names").Array() {
					gotNames = append(gotNames, n.String())
				}
				return map[string]int{"users": 3}, nil
			},
		},
		{
			Name: "broken",
			Handler: func(context.Context, gjson.Result) (any, error) {
				return nil, fmt.Errorf("column missing")
			},
		},
	}

	g := newTestGateway(&sleepRecorder{}, Candidate{Label: "p1", Client: client})
	res, err := g.Run(context.Background(), Request{Task: "funnel", System: "sys", Tools: tools})
	require.NoError(t, err)

	assert.Equal(t, "final answer", res.Text)
	assert.Equal(t, 2, res.Iterations)
	assert.Equal(t, []string{"a", "b"}, gotNames)

	require.Len(t, client.requests, 2)
	first := client.requests[0]
	require.Len(t, first.Messages, 2)
	assert.Equal(t, llm.RoleSystem, first.Messages[0].Role)
	assert.Equal(t, analyzeInstruction, first.Messages[1].Content)
	require.Len(t, first.Tools, 2)
	assert.Equal(t, "count", first.Tools[0].Name)

	second := client.requests[1].Messages
	require.Len(t, second, 6)
	assert.Equal(t, llm.RoleAssistant, second[2].Role)
	assert.Len(t, second[2].ToolCalls, 3)
	assert.Equal(t, llm.ChatMessage{Role: llm.RoleTool, Content: `{"users":3}`, ToolCallID: "c1", Name: "count"}, second[3])
	assert.Equal(t, "Unknown tool: missing", second[4].Content)
	assert.Equal(t, "Tool error: column missing", second[5].Content)
}

func TestGatewayRecoversToolPanic(t *testing.T) {
	client := &scriptedClient{name: "p1", responses: []*llm.CompletionResponse{
		{ToolCalls: []llm.ToolCall{toolCall("c1", "explode", ``)}},
		{Content: "ok"},
	}}
	tools := []Tool{{
		Name: "explode",
		Handler: func(context.Context, gjson.Result) (any, error) {
			panic("boom")
		},
	}}

	g := newTestGateway(&sleepRecorder{}, Candidate{Label: "p1", Client: client})
	res, err := g.Run(context.Background(), Request{Task: "t", Tools: tools})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Text)
	assert.Equal(t, "Tool error: boom", client.requests[1].Messages[3].Content)
}

func TestGatewayIterationCap(t *testing.T) {
	loop := func() *llm.CompletionResponse {
		return &llm.CompletionResponse{ToolCalls: []llm.ToolCall{toolCall("c", "noop", `{}`)}}
	}
	client := &scriptedClient{name: "p1", responses: []*llm.CompletionResponse{loop(), loop(), loop(), loop()}}
	tools := []Tool{{
		Name:    "noop",
		Handler: func(context.Context, gjson.Result) (any, error) { return "ok", nil },
	}}

	g := newTestGateway(&sleepRecorder{}, Candidate{Label: "p1", Client: client})
	res, err := g.Run(context.Background(), Request{Task: "t", Tools: tools, MaxIterations: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Iterations)
	assert.Equal(t, Placeholder, res.Text)
	assert.Equal(t, 3, client.calls())
}

func TestGatewayCustomInstruction(t *testing.T) {
	client := &scriptedClient{name: "p1", responses: []*llm.CompletionResponse{{Content: "  "}}}

	g := newTestGateway(&sleepRecorder{}, Candidate{Label: "p1", Client: client})
	res, err := g.Run(context.Background(), Request{Task: "compile", Instruction: "Write the report.", MaxIterations: 1})
	require.NoError(t, err)
	assert.Equal(t, Placeholder, res.Text)
	assert.Equal(t, "Write the report.", client.requests[0].Messages[1].Content)
	assert.Empty(t, client.requests[0].Tools)
}

func TestGatewayBackoffHonoursContext(t *testing.T) {
	throttled := &scriptedClient{name: "p1", err: errors.New("429 Too Many Requests")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewGateway([]Candidate{{Label: "p1", Client: throttled}, {Label: "p2", Client: &scriptedClient{}}},
		WithBackoff(time.Hour), WithLogger(logger.Nop()))
	_, err := g.Run(ctx, Request{Task: "t"})
	assert.ErrorIs(t, err, context.Canceled)
}
