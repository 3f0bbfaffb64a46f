package agent

import (
	"fmt"

	"github.com/capitalize-ai/journey-analytics/internal/config"
	"github.com/capitalize-ai/journey-analytics/internal/llm"
)

// CandidatesFromConfig builds the ordered candidate list: every Gemini key,
// then OpenAI, then Anthropic. Providers without a key are skipped.
func CandidatesFromConfig(cfg *config.Config) ([]Candidate, error) {
	var out []Candidate
	for i, key := range cfg.GeminiAPIKeys {
		c, err := llm.NewGeminiClient(key, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("gemini key %d: %w", i+1, err)
		}
		out = append(out, Candidate{Label: fmt.Sprintf("gemini#%d", i+1), Client: c})
	}
	if cfg.OpenAIAPIKey != "" {
		c, err := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		if err != nil {
			return nil, fmt.Errorf("openai: %w", err)
		}
		out = append(out, Candidate{Label: string(llm.ProviderOpenAI), Client: c})
	}
	if cfg.AnthropicAPIKey != "" {
		c, err := llm.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		if err != nil {
			return nil, fmt.Errorf("anthropic: %w", err)
		}
		out = append(out, Candidate{Label: string(llm.ProviderAnthropic), Client: c})
	}
	return out, nil
}

// GatewayFromConfig wires a Gateway from environment configuration.
func GatewayFromConfig(cfg *config.Config, opts ...Option) (*Gateway, error) {
	candidates, err := CandidatesFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	base := []Option{
		WithBackoff(cfg.RateLimitBackoff),
		WithTemperature(cfg.LLMTemperature),
		WithMaxTokens(cfg.LLMMaxTokens),
	}
	return NewGateway(candidates, append(base, opts...)...), nil
}
