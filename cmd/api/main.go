package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"litinsight/internal/api"
	"litinsight/internal/bootstrap"
	"litinsight/internal/config"
	"litinsight/internal/insights"
	"litinsight/internal/logging"
	"litinsight/internal/ratelimit"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	deps, err := bootstrap.Build(startCtx, cfg, log)
	if err != nil {
		cancel()
		log.Fatal("build pipeline", zap.Error(err))
	}
	defer deps.Close()

	counter, closeCounter := rateLimitCounter(startCtx, cfg, log)
	defer closeCounter()
	cancel()

	var orchOpts []insights.Option
	if cfg.Launcher == bootstrap.LauncherTemporal {
		tc, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
		if err != nil {
			log.Fatal("dial temporal", zap.Error(err))
		}
		defer tc.Close()
		orchOpts = append(orchOpts, insights.WithLauncher(
			workflows.NewTemporalLauncher(tc, cfg.TemporalTaskQueue, cfg.BatchSize, cfg.BatchPause),
		))
	}
	orch := deps.NewOrchestrator(orchOpts...)

	srv := api.NewServer(orch,
		ratelimit.NewLimiter(counter, "summarize", cfg.RateLimitPerHour),
		api.WithLogger(log.Named("api")),
		api.WithTrustProxyHeaders(cfg.TrustProxyHeaders),
	)
	httpSrv := &http.Server{
		Addr:              cfg.APIAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", zap.Error(err))
		}
	}()

	log.Info("litinsight api listening",
		zap.String("addr", cfg.APIAddr),
		zap.String("store", cfg.StoreBackend),
		zap.String("launcher", cfg.Launcher),
		zap.Strings("llm_candidates", deps.Client.Candidates()),
		zap.String("llm_secondary", cfg.LLMSecondary))
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("http server", zap.Error(err))
	}

	log.Info("waiting for in-flight insights")
	orch.Wait()
}

func rateLimitCounter(ctx context.Context, cfg config.Config, log *zap.Logger) (ratelimit.Counter, func()) {
	if cfg.RedisAddr == "" {
		log.Info("rate limit counter: in-memory")
		return ratelimit.NewMemoryCounter(), func() {}
	}
	rdb, err := ratelimit.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatal("connect redis", zap.Error(err))
	}
	log.Info("rate limit counter: redis", zap.String("addr", cfg.RedisAddr))
	return ratelimit.NewRedisCounter(rdb), func() { _ = rdb.Close() }
}
