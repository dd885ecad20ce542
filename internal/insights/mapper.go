package insights

import (
	"context"
	"fmt"

	"litinsight/internal/enrich"
	"litinsight/internal/models"
)

const (
	DefaultMapMaxTokens    = 2048
	DefaultReduceMaxTokens = 4096
	DefaultMaxExcerptChars = 6000
)

// Completer is the provider surface used by the map and reduce steps.
type Completer interface {
	Complete(ctx context.Context, prompt, systemPrompt string, maxTokens int) (string, string, error)
}

type BatchResult struct {
	Highlights       string `json:"highlights"`
	FullTextOrdinals []int  `json:"full_text_ordinals"`
	ProviderID       string `json:"provider_id"`
}

type Mapper struct {
	client          Completer
	maxTokens       int
	maxExcerptChars int
}

func NewMapper(client Completer, maxTokens, maxExcerptChars int) *Mapper {
	if maxTokens <= 0 {
		maxTokens = DefaultMapMaxTokens
	}
	if maxExcerptChars <= 0 {
		maxExcerptChars = DefaultMaxExcerptChars
	}
	return &Mapper{client: client, maxTokens: maxTokens, maxExcerptChars: maxExcerptChars}
}

// MapBatch runs one extraction call. Provider errors are returned unchanged
// so callers can classify them.
func (m *Mapper) MapBatch(ctx context.Context, batch []models.Article, enrichment enrich.Enrichment, offset int) (BatchResult, error) {
	if len(batch) == 0 {
		return BatchResult{}, fmt.Errorf("map batch at offset %d: empty batch", offset)
	}
	prompt, fullText := BuildMapPrompt(batch, enrichment, offset, m.maxExcerptChars)
	text, providerID, err := m.client.Complete(ctx, prompt, mapSystemPrompt, m.maxTokens)
	if err != nil {
		return BatchResult{}, err
	}
	return BatchResult{Highlights: text, FullTextOrdinals: fullText, ProviderID: providerID}, nil
}
