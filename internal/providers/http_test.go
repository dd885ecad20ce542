package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"litinsight/internal/config"
)

func TestAnthropicProviderGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages", r.URL.Path)
		require.Equal(t, "k", r.Header.Get("x-api-key"))
		require.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "sys", body["system"])
		require.EqualValues(t, 2048, body["max_tokens"])
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"hello "},{"type":"text","text":"world"}]}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider("k", "claude-test", time.Second)
	p.baseURL = srv.URL
	resp, info, err := p.Generate(context.Background(), GenerateRequest{Prompt: "p", SystemPrompt: "sys", MaxTokens: 2048})
	require.NoError(t, err)
	require.Equal(t, "hello world", resp.Text)
	require.Equal(t, "claude-test", info.Model)
}

func TestAnthropicProviderOverloadedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(529)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider("k", "", time.Second)
	p.baseURL = srv.URL
	_, _, err := p.Generate(context.Background(), GenerateRequest{Prompt: "p"})
	require.Error(t, err)
	require.Equal(t, ErrorOverloaded, ClassifyError(err))
}

func TestOpenAICompatibleProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"answer"}}]}`))
	}))
	defer srv.Close()

	p := newChatCompletionsProvider("groq", srv.URL, "k", "m", time.Second)
	resp, info, err := p.Generate(context.Background(), GenerateRequest{Prompt: "p", MaxTokens: 5})
	require.NoError(t, err)
	require.Equal(t, "answer", resp.Text)
	require.Equal(t, "groq", info.Name)
}

func TestOpenAIMissingKeyIsCandidateSpecific(t *testing.T) {
	_, _, err := NewOpenAIProvider("", "", time.Second).Generate(context.Background(), GenerateRequest{Prompt: "p"})
	require.ErrorIs(t, err, ErrMissingAPIKey)
	require.Equal(t, ErrorModelUnavailable, ClassifyError(err))
}

func TestOllamaProviderGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"local"}}`))
	}))
	defer srv.Close()

	resp, _, err := NewOllamaProvider(srv.URL, "llama3.1", time.Second).Generate(context.Background(), GenerateRequest{Prompt: "p", MaxTokens: 10})
	require.NoError(t, err)
	require.Equal(t, "local", resp.Text)
}

func TestMockProviderEchoesOrdinals(t *testing.T) {
	m := NewMockProvider("")
	resp, _, err := m.Generate(context.Background(), GenerateRequest{Prompt: "[#3] A\n[#4] B\n[#3] again"})
	require.NoError(t, err)
	require.Contains(t, resp.Text, "[#3]")
	require.Contains(t, resp.Text, "[#4]")

	resp, _, err = m.Generate(context.Background(), GenerateRequest{Prompt: "=== Batch 1 ===\n- [#1] fact"})
	require.NoError(t, err)
	require.Contains(t, resp.Text, "## Key Findings")
}

func TestNewFallbackClientFromConfig(t *testing.T) {
	cfg := config.Config{
		LLMCandidates: "mock:a|openai:gpt-4o-mini",
		LLMSecondary:  "ollama:llama3.1",
		RetryBackoff:  time.Millisecond,
	}
	client, err := NewFallbackClientFromConfig(cfg, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"mock:a", "openai:gpt-4o-mini"}, client.Candidates())
	require.NotNil(t, client.secondary)
	require.Equal(t, "ollama:llama3.1", client.secondary.ID)

	_, err = NewFallbackClientFromConfig(config.Config{LLMCandidates: "nope:x"}, nil)
	require.Error(t, err)
}
