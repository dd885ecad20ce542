package insights

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"litinsight/internal/enrich"
	"litinsight/internal/models"
)

const (
	DefaultBatchSize  = 10
	DefaultBatchPause = 500 * time.Millisecond
)

// Task is everything a detached run needs. It is serializable so it can be
// handed to a workflow engine.
type Task struct {
	InsightID string           `json:"insight_id"`
	Query     string           `json:"query,omitempty"`
	Articles  []models.Article `json:"articles"`
}

// Outcome is the successful result of a run.
type Outcome struct {
	Summary          string `json:"summary"`
	ModelUsed        string `json:"model_used"`
	FullTextOrdinals []int  `json:"full_text_ordinals"`
}

type BatchEnricher interface {
	Enrich(ctx context.Context, batch []models.Article) enrich.Enrichment
}

type Runner interface {
	Run(ctx context.Context, task Task) (Outcome, error)
}

// Pipeline runs map batches strictly in order, then one reduce call.
type Pipeline struct {
	enricher  BatchEnricher
	mapper    *Mapper
	reducer   *Reducer
	batchSize int
	pause     time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
	log       *zap.Logger
}

type PipelineOption func(*Pipeline)

func WithBatchSize(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

func WithBatchPause(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if d >= 0 {
			p.pause = d
		}
	}
}

func WithPipelineSleep(fn func(ctx context.Context, d time.Duration) error) PipelineOption {
	return func(p *Pipeline) {
		if fn != nil {
			p.sleep = fn
		}
	}
}

func WithPipelineLogger(log *zap.Logger) PipelineOption {
	return func(p *Pipeline) {
		if log != nil {
			p.log = log
		}
	}
}

func NewPipeline(enricher BatchEnricher, mapper *Mapper, reducer *Reducer, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		enricher:  enricher,
		mapper:    mapper,
		reducer:   reducer,
		batchSize: DefaultBatchSize,
		pause:     DefaultBatchPause,
		sleep:     sleepContext,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) Run(ctx context.Context, task Task) (Outcome, error) {
	batches := SplitBatches(task.Articles, p.batchSize)
	if len(batches) == 0 {
		return Outcome{}, ErrNoArticles
	}
	log := p.log.With(zap.String("insight_id", task.InsightID))

	results := make([]BatchResult, 0, len(batches))
	offset := 0
	for i, batch := range batches {
		if i > 0 {
			if err := p.sleep(ctx, p.pause); err != nil {
				return Outcome{}, fmt.Errorf("pause before batch %d: %w", i+1, err)
			}
		}
		enrichment := p.enrichBatch(ctx, batch)
		res, err := p.mapper.MapBatch(ctx, batch, enrichment, offset)
		if err != nil {
			return Outcome{}, fmt.Errorf("map batch %d/%d: %w", i+1, len(batches), err)
		}
		log.Info("map batch done",
			zap.Int("batch", i+1),
			zap.Int("batches", len(batches)),
			zap.Int("full_text", len(res.FullTextOrdinals)),
			zap.String("provider", res.ProviderID))
		results = append(results, res)
		offset += len(batch)
	}

	highlights := make([]string, 0, len(results))
	for _, r := range results {
		highlights = append(highlights, r.Highlights)
	}
	report, providerID, err := p.reducer.Reduce(ctx, highlights, task.Query)
	if err != nil {
		return Outcome{}, fmt.Errorf("reduce: %w", err)
	}
	log.Info("reduce done", zap.String("provider", providerID))
	return NewOutcome(results, report, providerID), nil
}

func (p *Pipeline) enrichBatch(ctx context.Context, batch []models.Article) enrich.Enrichment {
	if p.enricher == nil {
		return enrich.Enrichment{}
	}
	return p.enricher.Enrich(ctx, batch)
}

// SplitBatches cuts articles into consecutive groups of at most size.
func SplitBatches(articles []models.Article, size int) [][]models.Article {
	if size <= 0 {
		size = DefaultBatchSize
	}
	out := make([][]models.Article, 0, (len(articles)+size-1)/size)
	for start := 0; start < len(articles); start += size {
		end := min(start+size, len(articles))
		out = append(out, articles[start:end])
	}
	return out
}

// NewOutcome folds the batch results and the report into an Outcome. The
// model recorded is the one that produced the report.
func NewOutcome(results []BatchResult, report, providerID string) Outcome {
	seen := map[int]struct{}{}
	ordinals := make([]int, 0)
	for _, r := range results {
		for _, n := range r.FullTextOrdinals {
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			ordinals = append(ordinals, n)
		}
	}
	sort.Ints(ordinals)
	return Outcome{Summary: report, ModelUsed: providerID, FullTextOrdinals: ordinals}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
