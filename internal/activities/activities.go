package activities

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/temporal"

	"litinsight/internal/enrich"
	"litinsight/internal/insights"
	"litinsight/internal/models"
	"litinsight/internal/storage"
)

// Activities exposes the insight pipeline steps to a Temporal worker.
type Activities struct {
	enricher insights.BatchEnricher
	mapper   *insights.Mapper
	reducer  *insights.Reducer
	orch     *insights.Orchestrator
}

func New(enricher insights.BatchEnricher, mapper *insights.Mapper, reducer *insights.Reducer, orch *insights.Orchestrator) *Activities {
	return &Activities{enricher: enricher, mapper: mapper, reducer: reducer, orch: orch}
}

// MapBatchActivity enriches one batch and runs the extraction call. Provider
// failures are final: the fallback client already retried.
func (a *Activities) MapBatchActivity(ctx context.Context, in MapBatchInput) (MapBatchOutput, error) {
	res, err := a.mapper.MapBatch(ctx, in.Batch, a.enrich(ctx, in.Batch), in.Offset)
	if err != nil {
		return MapBatchOutput{}, finalError(fmt.Errorf("map batch at offset %d: %w", in.Offset, err))
	}
	return MapBatchOutput{Result: res}, nil
}

func (a *Activities) ReduceActivity(ctx context.Context, in ReduceInput) (ReduceOutput, error) {
	report, providerID, err := a.reducer.Reduce(ctx, in.Highlights, in.Query)
	if err != nil {
		return ReduceOutput{}, finalError(fmt.Errorf("reduce: %w", err))
	}
	return ReduceOutput{Report: report, ProviderID: providerID}, nil
}

// CompleteInsightActivity is retried by Temporal on transient store errors.
// A job that is already terminal or gone cannot be completed, so those are
// final.
func (a *Activities) CompleteInsightActivity(ctx context.Context, in CompleteInsightInput) error {
	err := a.orch.Complete(ctx, in.InsightID, in.Outcome)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrInsightTerminal), errors.Is(err, storage.ErrInsightNotFound):
		return finalError(err)
	default:
		return temporal.NewApplicationErrorWithCause(err.Error(), insights.ErrorCategory(err), err)
	}
}

func (a *Activities) FailInsightActivity(ctx context.Context, in FailInsightInput) error {
	a.orch.FailWith(ctx, in.InsightID, in.Category, in.Message)
	return nil
}

func (a *Activities) enrich(ctx context.Context, batch []models.Article) enrich.Enrichment {
	if a.enricher == nil {
		return enrich.Enrichment{}
	}
	return a.enricher.Enrich(ctx, batch)
}

func finalError(err error) error {
	return temporal.NewNonRetryableApplicationError(err.Error(), insights.ErrorCategory(err), err)
}
