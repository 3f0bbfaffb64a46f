package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

const (
	defaultGeminiModel    = "gemini-2.0-flash"
	defaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"
)

// GeminiClient calls the Gemini generateContent REST endpoint.
type GeminiClient struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// GeminiOption configures a GeminiClient.
type GeminiOption func(*GeminiClient)

// WithGeminiEndpoint overrides the base models endpoint.
func WithGeminiEndpoint(endpoint string) GeminiOption {
	return func(c *GeminiClient) { c.endpoint = endpoint }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) GeminiOption {
	return func(c *GeminiClient) { c.client = hc }
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(apiKey, model string, opts ...GeminiOption) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("Gemini API key is required")
	}
	if model == "" {
		model = defaultGeminiModel
	}
	c := &GeminiClient{
		apiKey:   apiKey,
		model:    model,
		endpoint: defaultGeminiEndpoint,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name returns the provider name.
func (c *GeminiClient) Name() string {
	return string(ProviderGemini)
}

// Models returns available models.
func (c *GeminiClient) Models() []string {
	return []string{
		"gemini-2.0-flash",
		"gemini-2.5-flash",
		"gemini-2.5-pro",
	}
}

type geminiPart struct {
	Text             string                  `json:"text,omitempty"`
	FunctionCall     *geminiFunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *geminiFunctionResponse `json:"functionResponse,omitempty"`
}

type geminiFunctionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

type geminiFunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiFunctionDecl struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type geminiTool struct {
	FunctionDeclarations []geminiFunctionDecl `json:"functionDeclarations"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	Tools             []geminiTool           `json:"tools,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

// Complete sends a completion request. Gemini has no call IDs, so IDs are
// synthesized per response and tool results are matched back by name.
func (c *GeminiClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	body := geminiRequest{
		GenerationConfig: geminiGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: maxTokens,
		},
	}
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			if body.SystemInstruction == nil {
				body.SystemInstruction = &geminiContent{}
			}
			body.SystemInstruction.Parts = append(body.SystemInstruction.Parts, geminiPart{Text: msg.Content})
		case RoleAssistant:
			content := geminiContent{Role: "model"}
			if msg.Content != "" {
				content.Parts = append(content.Parts, geminiPart{Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				content.Parts = append(content.Parts, geminiPart{
					FunctionCall: &geminiFunctionCall{Name: tc.Name, Args: argumentsOrEmpty(tc.Arguments)},
				})
			}
			body.Contents = append(body.Contents, content)
		case RoleTool:
			part := geminiPart{FunctionResponse: &geminiFunctionResponse{
				Name:     msg.Name,
				Response: map[string]any{"result": msg.Content},
			}}
			// Parallel call results share a single user turn.
			if n := len(body.Contents); n > 0 && body.Contents[n-1].Role == "user" &&
				len(body.Contents[n-1].Parts) > 0 && body.Contents[n-1].Parts[0].FunctionResponse != nil {
				body.Contents[n-1].Parts = append(body.Contents[n-1].Parts, part)
				continue
			}
			body.Contents = append(body.Contents, geminiContent{Role: "user", Parts: []geminiPart{part}})
		default:
			body.Contents = append(body.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: msg.Content}}})
		}
	}
	if len(req.Tools) > 0 {
		decls := make([]geminiFunctionDecl, len(req.Tools))
		for i, t := range req.Tools {
			decls[i] = geminiFunctionDecl{Name: t.Name, Description: t.Description, Parameters: t.Parameters}
		}
		body.Tools = []geminiTool{{FunctionDeclarations: decls}}
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.endpoint, model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gemini response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Provider: "Gemini", StatusCode: resp.StatusCode, Body: string(raw)}
	}

	return parseGeminiResponse(raw, model, start)
}

func parseGeminiResponse(raw []byte, model string, start time.Time) (*CompletionResponse, error) {
	if !gjson.ValidBytes(raw) {
		return nil, errors.New("gemini returned invalid JSON")
	}
	doc := gjson.ParseBytes(raw)
	candidate := doc.Get("candidates.0")
	if !candidate.Exists() {
		if reason := doc.Get("promptFeedback.blockReason"); reason.Exists() {
			return nil, fmt.Errorf("gemini blocked prompt: %s", reason.String())
		}
		return nil, errors.New("gemini returned no candidates")
	}

	out := &CompletionResponse{
		Model:      model,
		TokensIn:   int(doc.Get("usageMetadata.promptTokenCount").Int()),
		TokensOut:  int(doc.Get("usageMetadata.candidatesTokenCount").Int()),
		StopReason: candidate.Get("finishReason").String(),
	}
	candidate.Get("content.parts").ForEach(func(_, part gjson.Result) bool {
		if text := part.Get("text"); text.Exists() {
			out.Content += text.String()
		}
		if fc := part.Get("functionCall"); fc.Exists() {
			args := json.RawMessage(fc.Get("args").Raw)
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        fmt.Sprintf("call_%d", len(out.ToolCalls)),
				Name:      fc.Get("name").String(),
				Arguments: argumentsOrEmpty(args),
			})
		}
		return true
	})
	out.LatencyMs = time.Since(start).Milliseconds()
	return out, nil
}
