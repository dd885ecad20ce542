package workflows

import "litinsight/internal/insights"

type InsightWorkflowInput struct {
	Task             insights.Task `json:"task"`
	BatchSize        int           `json:"batch_size"`
	BatchPauseMillis int           `json:"batch_pause_millis"`
}

type InsightProgress struct {
	InsightID    string `json:"insight_id"`
	Phase        string `json:"phase"`
	TotalBatches int    `json:"total_batches"`
	DoneBatches  int    `json:"done_batches"`
}
