package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"litinsight/internal/activities"
	"litinsight/internal/bootstrap"
	"litinsight/internal/config"
	"litinsight/internal/logging"
	"litinsight/internal/workflows"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := bootstrap.ValidateWorker(cfg); err != nil {
		log.Fatal("invalid worker config", zap.Error(err))
	}

	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		log.Fatal("dial temporal", zap.Error(err))
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	deps, err := bootstrap.Build(ctx, cfg, log)
	cancel()
	if err != nil {
		log.Fatal("build pipeline", zap.Error(err))
	}
	defer deps.Close()

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.Register(w)
	activities.Register(w, activities.New(deps.Enricher, deps.Mapper, deps.Reducer, deps.NewOrchestrator()))

	log.Info("litinsight worker listening",
		zap.String("temporal", cfg.TemporalAddress),
		zap.String("queue", cfg.TemporalTaskQueue),
		zap.Strings("llm_candidates", deps.Client.Candidates()))
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatal("worker", zap.Error(err))
	}
}
