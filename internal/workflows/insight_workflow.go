package workflows

import (
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"litinsight/internal/activities"
	"litinsight/internal/insights"
)

const (
	QueryGetInsightProgress = "GetInsightProgress"

	PhaseMapping   = "mapping"
	PhaseReducing  = "reducing"
	PhaseCompleted = "completed"
	PhaseFailed    = "failed"
)

// InsightWorkflow runs the map batches in order, then the reduce, then
// records the outcome. A failed step ends the job in the error state; the
// workflow itself still completes.
func InsightWorkflow(ctx workflow.Context, input InsightWorkflowInput) (string, error) {
	task := input.Task
	batches := insights.SplitBatches(task.Articles, input.BatchSize)
	progress := InsightProgress{InsightID: task.InsightID, Phase: PhaseMapping, TotalBatches: len(batches)}
	if err := workflow.SetQueryHandler(ctx, QueryGetInsightProgress, func() (InsightProgress, error) { return progress, nil }); err != nil {
		return "", err
	}

	llmCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})
	storeCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    3,
		},
	})

	fail := func(cause error) (string, error) {
		progress.Phase = PhaseFailed
		category, message := describeFailure(cause)
		err := workflow.ExecuteActivity(storeCtx, "FailInsightActivity", activities.FailInsightInput{
			InsightID: task.InsightID,
			Category:  category,
			Message:   message,
		}).Get(ctx, nil)
		if err != nil {
			workflow.GetLogger(ctx).Error("record insight failure", "insight_id", task.InsightID, "error", err)
		}
		return "error", nil
	}

	if len(batches) == 0 {
		return fail(insights.ErrNoArticles)
	}

	pause := time.Duration(input.BatchPauseMillis) * time.Millisecond
	results := make([]insights.BatchResult, 0, len(batches))
	offset := 0
	for i, batch := range batches {
		if i > 0 && pause > 0 {
			if err := workflow.Sleep(ctx, pause); err != nil {
				return fail(err)
			}
		}
		var out activities.MapBatchOutput
		err := workflow.ExecuteActivity(llmCtx, "MapBatchActivity", activities.MapBatchInput{
			InsightID: task.InsightID,
			Batch:     batch,
			Offset:    offset,
		}).Get(ctx, &out)
		if err != nil {
			return fail(err)
		}
		results = append(results, out.Result)
		offset += len(batch)
		progress.DoneBatches = i + 1
	}

	progress.Phase = PhaseReducing
	highlights := make([]string, 0, len(results))
	for _, r := range results {
		highlights = append(highlights, r.Highlights)
	}
	var reduced activities.ReduceOutput
	err := workflow.ExecuteActivity(llmCtx, "ReduceActivity", activities.ReduceInput{
		InsightID:  task.InsightID,
		Highlights: highlights,
		Query:      task.Query,
	}).Get(ctx, &reduced)
	if err != nil {
		return fail(err)
	}

	outcome := insights.NewOutcome(results, reduced.Report, reduced.ProviderID)
	err = workflow.ExecuteActivity(storeCtx, "CompleteInsightActivity", activities.CompleteInsightInput{
		InsightID: task.InsightID,
		Outcome:   outcome,
	}).Get(ctx, nil)
	if err != nil {
		return fail(err)
	}
	progress.Phase = PhaseCompleted
	return "completed", nil
}

func describeFailure(err error) (string, string) {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		category := appErr.Type()
		if category == "" {
			category = insights.CategoryGeneric
		}
		return category, appErr.Message()
	}
	var timeoutErr *temporal.TimeoutError
	if errors.As(err, &timeoutErr) {
		return insights.CategoryTimeout, fmt.Sprintf("activity timed out: %v", timeoutErr.TimeoutType())
	}
	return insights.ErrorCategory(err), err.Error()
}
