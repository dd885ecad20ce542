package insights

import (
	"context"
	"errors"
	"fmt"

	"litinsight/internal/providers"
	"litinsight/internal/storage"
)

var ErrNoArticles = errors.New("no articles provided")

const (
	CategoryProviderAuth       = "ProviderAuthError"
	CategoryAllProvidersFailed = "AllProvidersFailed"
	CategoryPersistence        = "PersistenceError"
	CategoryTimeout            = "Timeout"
	CategoryPanic              = "PanicError"
	CategoryGeneric            = "Error"
)

// PanicError carries a recovered panic out of a detached run.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func ErrorCategory(err error) string {
	var pe *PanicError
	var all *providers.AllProvidersFailedError
	var perr *storage.PersistenceError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &pe):
		return CategoryPanic
	case errors.Is(err, providers.ErrProviderAuth):
		return CategoryProviderAuth
	case errors.As(err, &all):
		return CategoryAllProvidersFailed
	case errors.As(err, &perr):
		return CategoryPersistence
	case errors.Is(err, context.DeadlineExceeded):
		return CategoryTimeout
	default:
		return CategoryGeneric
	}
}

// ErrorText is the user-visible error recorded on a failed job.
func ErrorText(category, message string) string {
	if category == "" {
		category = CategoryGeneric
	}
	return category + ": " + message
}
