// Package llm provides LLM client interfaces and implementations.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/sashabaranov/go-openai"
)

// Message roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// CompletionRequest represents a completion request.
type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	Tools       []ToolSpec
	MaxTokens   int
	Temperature float64
}

// ChatMessage represents a chat message for LLM. Assistant messages may carry
// tool calls; tool messages answer one call by ToolCallID and Name.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ToolCall is a function invocation proposed by the model.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolSpec declares a callable function to the model. Parameters is a JSON
// schema object.
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content    string
	ToolCalls  []ToolCall
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Client is the interface for LLM providers.
type Client interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string

	// Models returns available models.
	Models() []string
}

// Provider is the type of LLM provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGemini    Provider = "gemini"
)

// NewClient creates a new LLM client based on provider.
func NewClient(provider Provider, apiKey, model string) (Client, error) {
	switch provider {
	case ProviderAnthropic:
		return NewAnthropicClient(apiKey, model)
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey, model)
	case ProviderGemini:
		return NewGeminiClient(apiKey, model)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", provider)
	}
}

// StatusError is returned by providers called over plain HTTP when the
// response status is not 200.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API returned %d: %s", e.Provider, e.StatusCode, e.Body)
}

// StatusCode extracts the HTTP status from a provider error, or 0 when the
// error carries none.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	var oaiAPI *openai.APIError
	if errors.As(err, &oaiAPI) {
		return oaiAPI.HTTPStatusCode
	}
	var oaiReq *openai.RequestError
	if errors.As(err, &oaiReq) {
		return oaiReq.HTTPStatusCode
	}
	var anth *anthropic.Error
	if errors.As(err, &anth) {
		return anth.StatusCode
	}
	return 0
}

func argumentsOrEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("{}")
	}
	return raw
}
