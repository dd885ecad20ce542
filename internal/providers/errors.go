package providers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorOverloaded       ErrorType = "overloaded"
	ErrorRateLimited      ErrorType = "rate_limited"
	ErrorModelUnavailable ErrorType = "model_unavailable"
	ErrorAuth             ErrorType = "auth"
	ErrorOther            ErrorType = "other"
)

var (
	// ErrProviderAuth aborts the whole candidate chain.
	ErrProviderAuth = errors.New("provider authentication failed")
	// ErrMissingAPIKey marks a candidate that cannot be called at all.
	ErrMissingAPIKey = errors.New("provider api key missing")
	ErrEmptyResponse = errors.New("provider returned empty response")
)

// ProviderError is a non-2xx answer from a backend.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s error %d: %s", e.Provider, e.StatusCode, e.Body)
}

// AttemptError records one failed call in a fallback chain.
type AttemptError struct {
	CandidateID string
	Type        ErrorType
	Err         error
}

func (e AttemptError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.CandidateID, e.Type, e.Err)
}

// AllProvidersFailedError is returned once primaries and secondary are exhausted.
type AllProvidersFailedError struct {
	Attempts []AttemptError
}

func (e *AllProvidersFailedError) Error() string {
	if len(e.Attempts) == 0 {
		return "all providers failed: no candidates configured"
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.Error())
	}
	return "all providers failed: " + strings.Join(parts, "; ")
}

func (e *AllProvidersFailedError) Unwrap() []error {
	out := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		out = append(out, a.Err)
	}
	return out
}

func ClassifyError(err error) ErrorType {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrProviderAuth) {
		return ErrorAuth
	}
	if errors.Is(err, ErrMissingAPIKey) {
		return ErrorModelUnavailable
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		switch pe.StatusCode {
		case 529, http.StatusServiceUnavailable:
			return ErrorOverloaded
		case http.StatusTooManyRequests:
			return ErrorRateLimited
		case http.StatusUnauthorized:
			return ErrorAuth
		case http.StatusForbidden, http.StatusNotFound:
			return ErrorModelUnavailable
		}
	}
	e := strings.ToLower(err.Error())
	switch {
	case strings.Contains(e, "overloaded"):
		return ErrorOverloaded
	case strings.Contains(e, "rate limit"), strings.Contains(e, "rate_limit"), strings.Contains(e, "too many requests"):
		return ErrorRateLimited
	case strings.Contains(e, "model not found"), strings.Contains(e, "not_found_error"), strings.Contains(e, "not authorized"), strings.Contains(e, "does not exist"):
		return ErrorModelUnavailable
	case strings.Contains(e, "invalid api key"), strings.Contains(e, "invalid x-api-key"), strings.Contains(e, "authentication_error"):
		return ErrorAuth
	default:
		return ErrorOther
	}
}
