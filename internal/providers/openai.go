package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const openAIBaseURL = "https://api.openai.com/v1"

// OpenAIProvider talks to any OpenAI-compatible chat completions endpoint.
type OpenAIProvider struct {
	name    string
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func NewOpenAIProvider(apiKey, model string, timeout time.Duration) *OpenAIProvider {
	if strings.TrimSpace(model) == "" {
		model = "gpt-4o-mini"
	}
	return newChatCompletionsProvider("openai", openAIBaseURL, apiKey, model, timeout)
}

func newChatCompletionsProvider(name, baseURL, apiKey, model string, timeout time.Duration) *OpenAIProvider {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OpenAIProvider{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

func (o *OpenAIProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: o.name, Model: o.model}
	if o.apiKey == "" {
		return GenerateResponse{}, info, fmt.Errorf("%s: %w", o.name, ErrMissingAPIKey)
	}
	messages := make([]map[string]string, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, map[string]string{"role": "system", "content": req.SystemPrompt})
	}
	messages = append(messages, map[string]string{"role": "user", "content": req.Prompt})
	payload := map[string]any{
		"model":    o.model,
		"messages": messages,
	}
	if req.MaxTokens > 0 {
		payload["max_tokens"] = req.MaxTokens
	}

	body, err := postJSON(ctx, o.client, o.name, o.baseURL+"/chat/completions", map[string]string{
		"Authorization": "Bearer " + o.apiKey,
	}, payload)
	if err != nil {
		return GenerateResponse{}, info, err
	}
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return GenerateResponse{}, info, fmt.Errorf("decode %s response: %w", o.name, err)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return GenerateResponse{}, info, fmt.Errorf("%s: %w", o.name, ErrEmptyResponse)
	}
	return GenerateResponse{Text: parsed.Choices[0].Message.Content}, info, nil
}
