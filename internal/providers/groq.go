package providers

import (
	"strings"
	"time"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// NewGroqProvider returns a client for Groq's OpenAI-compatible API.
func NewGroqProvider(apiKey, model string, timeout time.Duration) *OpenAIProvider {
	if strings.TrimSpace(model) == "" {
		model = "llama-3.1-8b-instant"
	}
	return newChatCompletionsProvider("groq", groqBaseURL, apiKey, model, timeout)
}
