package providers

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorType
	}{
		{&ProviderError{Provider: "anthropic", StatusCode: 529}, ErrorOverloaded},
		{&ProviderError{Provider: "openai", StatusCode: 503}, ErrorOverloaded},
		{&ProviderError{Provider: "openai", StatusCode: 429}, ErrorRateLimited},
		{&ProviderError{Provider: "openai", StatusCode: 401}, ErrorAuth},
		{&ProviderError{Provider: "openai", StatusCode: 404}, ErrorModelUnavailable},
		{&ProviderError{Provider: "openai", StatusCode: 403}, ErrorModelUnavailable},
		{fmt.Errorf("wrapped: %w", &ProviderError{Provider: "groq", StatusCode: 429}), ErrorRateLimited},
		{errors.New("Overloaded"), ErrorOverloaded},
		{errors.New("Rate limit exceeded"), ErrorRateLimited},
		{errors.New("model not found: claude-x"), ErrorModelUnavailable},
		{errors.New("caller is not authorized to invoke model"), ErrorModelUnavailable},
		{errors.New("Invalid API key provided"), ErrorAuth},
		{fmt.Errorf("openai: %w", ErrMissingAPIKey), ErrorModelUnavailable},
		{errors.New("bad request"), ErrorOther},
	}
	for _, tc := range cases {
		if got := ClassifyError(tc.err); got != tc.want {
			t.Fatalf("classify %q: got %s want %s", tc.err, got, tc.want)
		}
	}
	if got := ClassifyError(nil); got != "" {
		t.Fatalf("nil error classified as %s", got)
	}
}

func TestAllProvidersFailedErrorUnwrap(t *testing.T) {
	inner := &ProviderError{Provider: "x", StatusCode: 529}
	err := &AllProvidersFailedError{Attempts: []AttemptError{{CandidateID: "x", Type: ErrorOverloaded, Err: inner}}}

	var pe *ProviderError
	if !errors.As(err, &pe) || pe.StatusCode != 529 {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
}
