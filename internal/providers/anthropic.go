package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	anthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
)

type AnthropicProvider struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func NewAnthropicProvider(apiKey, model string, timeout time.Duration) *AnthropicProvider {
	if strings.TrimSpace(model) == "" {
		model = "claude-sonnet-4-5"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &AnthropicProvider{
		baseURL: anthropicBaseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

func (a *AnthropicProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: "anthropic", Model: a.model}
	if a.apiKey == "" {
		return GenerateResponse{}, info, fmt.Errorf("anthropic: %w", ErrMissingAPIKey)
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	payload := map[string]any{
		"model":      a.model,
		"max_tokens": maxTokens,
		"messages": []map[string]string{
			{"role": "user", "content": req.Prompt},
		},
	}
	if req.SystemPrompt != "" {
		payload["system"] = req.SystemPrompt
	}

	body, err := postJSON(ctx, a.client, "anthropic", strings.TrimRight(a.baseURL, "/")+"/v1/messages", map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": anthropicVersion,
	}, payload)
	if err != nil {
		return GenerateResponse{}, info, err
	}
	var parsed struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return GenerateResponse{}, info, fmt.Errorf("decode anthropic response: %w", err)
	}
	var b strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return GenerateResponse{}, info, fmt.Errorf("anthropic: %w", ErrEmptyResponse)
	}
	return GenerateResponse{Text: b.String()}, info, nil
}
