package insights

import (
	"context"
	"errors"
)

var ErrNoHighlights = errors.New("no highlights to synthesize")

type Reducer struct {
	client    Completer
	maxTokens int
}

func NewReducer(client Completer, maxTokens int) *Reducer {
	if maxTokens <= 0 {
		maxTokens = DefaultReduceMaxTokens
	}
	return &Reducer{client: client, maxTokens: maxTokens}
}

// Reduce returns the final report and the id of the provider that wrote it.
func (r *Reducer) Reduce(ctx context.Context, highlights []string, query string) (string, string, error) {
	if len(highlights) == 0 {
		return "", "", ErrNoHighlights
	}
	return r.client.Complete(ctx, BuildReducePrompt(highlights, query), reduceSystemPrompt, r.maxTokens)
}
