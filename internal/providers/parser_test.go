package providers

import "testing"

func TestParseCandidates(t *testing.T) {
	refs := ParseCandidates("anthropic:claude-sonnet-4-5| openai:gpt-4o-mini ||mock")
	if len(refs) != 3 {
		t.Fatalf("expected 3 candidates got %d", len(refs))
	}
	if refs[0].Backend != "anthropic" || refs[0].Model != "claude-sonnet-4-5" || refs[0].ID != "anthropic:claude-sonnet-4-5" {
		t.Fatalf("unexpected parse result: %+v", refs[0])
	}
	if refs[1].ID != "openai:gpt-4o-mini" {
		t.Fatalf("expected trimmed id, got %q", refs[1].ID)
	}
	if refs[2].Backend != "mock" || refs[2].Model != "" {
		t.Fatalf("unexpected bare backend: %+v", refs[2])
	}
	if len(ParseCandidates("")) != 0 {
		t.Fatalf("expected no candidates for empty list")
	}
}
