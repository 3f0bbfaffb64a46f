package llm

import (
	"context"
	"errors"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-3-5-haiku-latest"

// AnthropicClient is the Anthropic LLM client.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(apiKey, model string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("Anthropic API key is required")
	}
	if model == "" {
		model = defaultAnthropicModel
	}

	return &AnthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

// Name returns the provider name.
func (c *AnthropicClient) Name() string {
	return string(ProviderAnthropic)
}

// Models returns available models.
func (c *AnthropicClient) Models() []string {
	return []string{
		"claude-3-5-sonnet-latest",
		"claude-3-5-haiku-latest",
		"claude-3-opus-latest",
	}
}

// Complete sends a completion request. System messages become the system
// prompt; consecutive tool results are folded into one user turn.
func (c *AnthropicClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = c.model
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	var system []anthropic.TextBlockParam
	var messages []anthropic.MessageParam
	var pendingResults []anthropic.ContentBlockParamUnion
	flushResults := func() {
		if len(pendingResults) > 0 {
			messages = append(messages, anthropic.NewUserMessage(pendingResults...))
			pendingResults = nil
		}
	}

	for _, msg := range req.Messages {
		if msg.Role != RoleTool {
			flushResults()
		}
		switch msg.Role {
		case RoleSystem:
			system = append(system, anthropic.NewTextBlock(msg.Content))
		case RoleTool:
			pendingResults = append(pendingResults, anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false))
		case RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlockParam(tc.ID, tc.Name, argumentsOrEmpty(tc.Arguments)))
			}
			messages = append(messages, anthropic.NewAssistantMessage(blocks...))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	flushResults()

	params := anthropic.MessageNewParams{
		Model:       anthropic.F(anthropic.Model(model)),
		MaxTokens:   anthropic.F(int64(maxTokens)),
		Messages:    anthropic.F(messages),
		Temperature: anthropic.F(req.Temperature),
	}
	if len(system) > 0 {
		params.System = anthropic.F(system)
	}
	if len(req.Tools) > 0 {
		tools := make([]anthropic.ToolParam, len(req.Tools))
		for i, t := range req.Tools {
			tools[i] = anthropic.ToolParam{
				Name:        anthropic.F(t.Name),
				Description: anthropic.F(t.Description),
				InputSchema: anthropic.F[interface{}](t.Parameters),
			}
		}
		params.Tools = anthropic.F(tools)
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}

	out := &CompletionResponse{
		Model:      string(resp.Model),
		TokensIn:   int(resp.Usage.InputTokens),
		TokensOut:  int(resp.Usage.OutputTokens),
		StopReason: string(resp.StopReason),
	}
	for _, block := range resp.Content {
		switch block.Type {
		case anthropic.ContentBlockTypeText:
			out.Content += block.Text
		case anthropic.ContentBlockTypeToolUse:
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: argumentsOrEmpty(block.Input),
			})
		}
	}
	out.LatencyMs = time.Since(start).Milliseconds()

	return out, nil
}
