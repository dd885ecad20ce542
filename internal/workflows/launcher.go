package workflows

import (
	"context"
	"fmt"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"

	"litinsight/internal/insights"
)

// TemporalLauncher hands each insight run to a Temporal worker.
type TemporalLauncher struct {
	client     client.Client
	taskQueue  string
	batchSize  int
	batchPause time.Duration
}

func NewTemporalLauncher(c client.Client, taskQueue string, batchSize int, batchPause time.Duration) *TemporalLauncher {
	return &TemporalLauncher{client: c, taskQueue: taskQueue, batchSize: batchSize, batchPause: batchPause}
}

func WorkflowID(insightID string) string {
	return "insight-" + insightID
}

func (l *TemporalLauncher) Launch(ctx context.Context, task insights.Task) error {
	_, err := l.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                                       WorkflowID(task.InsightID),
		TaskQueue:                                l.taskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, InsightWorkflow, InsightWorkflowInput{
		Task:             task,
		BatchSize:        l.batchSize,
		BatchPauseMillis: int(l.batchPause / time.Millisecond),
	})
	if err != nil {
		return fmt.Errorf("start insight workflow: %w", err)
	}
	return nil
}
