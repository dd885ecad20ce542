package activities

import (
	"litinsight/internal/insights"
	"litinsight/internal/models"
)

type MapBatchInput struct {
	InsightID string           `json:"insight_id"`
	Batch     []models.Article `json:"batch"`
	Offset    int              `json:"offset"`
}

type MapBatchOutput struct {
	Result insights.BatchResult `json:"result"`
}

type ReduceInput struct {
	InsightID  string   `json:"insight_id"`
	Highlights []string `json:"highlights"`
	Query      string   `json:"query,omitempty"`
}

type ReduceOutput struct {
	Report     string `json:"report"`
	ProviderID string `json:"provider_id"`
}

type CompleteInsightInput struct {
	InsightID string           `json:"insight_id"`
	Outcome   insights.Outcome `json:"outcome"`
}

type FailInsightInput struct {
	InsightID string `json:"insight_id"`
	Category  string `json:"category"`
	Message   string `json:"message"`
}
