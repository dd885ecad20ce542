package insights

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"litinsight/internal/models"
	"litinsight/internal/storage"
)

type completerCall struct {
	Prompt    string
	System    string
	MaxTokens int
}

type fakeCompleter struct {
	mu      sync.Mutex
	calls   []completerCall
	respond func(n int, prompt string) (string, string, error)
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt, systemPrompt string, maxTokens int) (string, string, error) {
	f.mu.Lock()
	n := len(f.calls)
	f.calls = append(f.calls, completerCall{Prompt: prompt, System: systemPrompt, MaxTokens: maxTokens})
	f.mu.Unlock()
	if f.respond == nil {
		return echoResponse(prompt), "mock:a", nil
	}
	return f.respond(n, prompt)
}

func (f *fakeCompleter) Calls() []completerCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]completerCall(nil), f.calls...)
}

func echoResponse(prompt string) string {
	if strings.Contains(prompt, "=== Batch ") {
		return "## Report\n" + prompt
	}
	return "highlights for batch"
}

func makeArticles(n int) []models.Article {
	out := make([]models.Article, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, models.Article{
			Title:    fmt.Sprintf("Article %d", i),
			Abstract: fmt.Sprintf("Abstract %d", i),
			PubDate:  "2020-01-01",
			SourceID: fmt.Sprintf("PMC%d", i),
		})
	}
	return out
}

type sleepLog struct {
	mu     sync.Mutex
	pauses []time.Duration
}

func (s *sleepLog) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.pauses = append(s.pauses, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepLog) Pauses() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.pauses...)
}

// flakyStore fails Update calls matching failOn.
type flakyStore struct {
	*storage.MemoryInsightStore
	failOn func(u models.InsightUpdate) error
}

func (f *flakyStore) Update(ctx context.Context, id string, u models.InsightUpdate) error {
	if f.failOn != nil {
		if err := f.failOn(u); err != nil {
			return err
		}
	}
	return f.MemoryInsightStore.Update(ctx, id, u)
}
