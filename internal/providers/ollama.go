package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OllamaProvider generates text with a locally served model.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewOllamaProvider(baseURL, model string, timeout time.Duration) *OllamaProvider {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if strings.TrimSpace(model) == "" {
		model = "llama3.1"
	}
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	return &OllamaProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

func (o *OllamaProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: "ollama", Model: o.model}
	messages := make([]map[string]string, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, map[string]string{"role": "system", "content": req.SystemPrompt})
	}
	messages = append(messages, map[string]string{"role": "user", "content": req.Prompt})
	payload := map[string]any{
		"model":    o.model,
		"stream":   false,
		"messages": messages,
	}
	if req.MaxTokens > 0 {
		payload["options"] = map[string]any{"num_predict": req.MaxTokens}
	}

	body, err := postJSON(ctx, o.client, "ollama", o.baseURL+"/api/chat", nil, payload)
	if err != nil {
		return GenerateResponse{}, info, err
	}
	var parsed struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return GenerateResponse{}, info, fmt.Errorf("decode ollama response: %w", err)
	}
	if parsed.Error != "" {
		return GenerateResponse{}, info, fmt.Errorf("ollama: %s", parsed.Error)
	}
	if strings.TrimSpace(parsed.Message.Content) == "" {
		return GenerateResponse{}, info, fmt.Errorf("ollama: %w", ErrEmptyResponse)
	}
	return GenerateResponse{Text: parsed.Message.Content}, info, nil
}
