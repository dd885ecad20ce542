package providers

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var ordinalTag = regexp.MustCompile(`\[#(\d+)\]`)

// MockProvider returns deterministic text that echoes the citation tags found
// in the prompt. Used for local runs without API keys.
type MockProvider struct {
	model string
}

func NewMockProvider(model string) *MockProvider {
	if model == "" {
		model = "mock-llm-v1"
	}
	return &MockProvider{model: model}
}

func (m *MockProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	_ = ctx
	info := ProviderInfo{Name: "mock", Model: m.model}
	tags := uniqueTags(req.Prompt)

	var b strings.Builder
	if strings.Contains(req.Prompt, "=== Batch ") {
		b.WriteString("## Key Findings\n")
		for _, tag := range tags {
			fmt.Fprintf(&b, "- Deterministic synthesis point %s.\n", tag)
		}
		b.WriteString("\n## Critical Gaps & Evidence Strength\n- Mock output only.\n")
	} else {
		for _, tag := range tags {
			fmt.Fprintf(&b, "- %s Deterministic highlight.\n", tag)
		}
		if len(tags) == 0 {
			b.WriteString("- No citable evidence.\n")
		}
	}
	return GenerateResponse{Text: b.String()}, info, nil
}

func uniqueTags(s string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, 8)
	for _, m := range ordinalTag.FindAllString(s, -1) {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
