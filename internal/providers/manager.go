package providers

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"litinsight/internal/config"
)

// NewFallbackClientFromConfig builds the candidate chain described by
// LITINSIGHT_LLM_CANDIDATES and LITINSIGHT_LLM_SECONDARY.
func NewFallbackClientFromConfig(cfg config.Config, log *zap.Logger, opts ...FallbackOption) (*FallbackClient, error) {
	primaries := ParseCandidates(cfg.LLMCandidates)
	if len(primaries) == 0 {
		primaries = ParseCandidates("mock")
	}
	for i := range primaries {
		p, err := buildProvider(primaries[i], cfg)
		if err != nil {
			return nil, err
		}
		primaries[i].Provider = p
	}

	var secondary *Candidate
	if refs := ParseCandidates(cfg.LLMSecondary); len(refs) > 0 {
		p, err := buildProvider(refs[0], cfg)
		if err != nil {
			return nil, err
		}
		refs[0].Provider = p
		secondary = &refs[0]
	}

	base := []FallbackOption{WithRetryBackoff(cfg.RetryBackoff), WithLogger(log)}
	return NewFallbackClient(primaries, secondary, append(base, opts...)...), nil
}

func buildProvider(c Candidate, cfg config.Config) (LLMProvider, error) {
	timeout := cfg.ProviderTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	switch strings.ToLower(c.Backend) {
	case "mock":
		return NewMockProvider(c.Model), nil
	case "anthropic":
		return NewAnthropicProvider(cfg.AnthropicAPIKey, c.Model, timeout), nil
	case "openai":
		return NewOpenAIProvider(cfg.OpenAIAPIKey, c.Model, timeout), nil
	case "groq":
		return NewGroqProvider(cfg.GroqAPIKey, c.Model, timeout), nil
	case "ollama":
		return NewOllamaProvider(cfg.OllamaBaseURL, c.Model, timeout), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", c.Backend)
	}
}
