package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.MapBatchActivity)
	w.RegisterActivity(a.ReduceActivity)
	w.RegisterActivity(a.CompleteInsightActivity)
	w.RegisterActivity(a.FailInsightActivity)
}
