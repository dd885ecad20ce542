package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"litinsight/internal/blobstore"
	"litinsight/internal/config"
	"litinsight/internal/enrich"
	"litinsight/internal/insights"
	"litinsight/internal/providers"
	"litinsight/internal/storage"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	LauncherGoroutine = "goroutine"
	LauncherTemporal  = "temporal"
)

// Deps is the pipeline wiring shared by the API and the worker.
type Deps struct {
	Cfg      config.Config
	Log      *zap.Logger
	DB       *storage.DB
	Store    storage.InsightStore
	Enricher *enrich.Enricher
	Client   *providers.FallbackClient
	Mapper   *insights.Mapper
	Reducer  *insights.Reducer
	Pipeline *insights.Pipeline
}

func Validate(cfg config.Config) error {
	switch cfg.StoreBackend {
	case StoreMemory, StorePostgres:
	default:
		return fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	switch cfg.Launcher {
	case LauncherGoroutine:
	case LauncherTemporal:
		if cfg.StoreBackend != StorePostgres {
			return errors.New("temporal launcher requires the postgres store")
		}
	default:
		return fmt.Errorf("unknown launcher %q", cfg.Launcher)
	}
	if cfg.StoreBackend == StorePostgres && strings.TrimSpace(cfg.PostgresURL) == "" {
		return errors.New("postgres store requires LITINSIGHT_POSTGRES_URL")
	}
	return nil
}

// ValidateWorker checks a worker configuration. Activities record job state,
// so the worker must share the API's Postgres store.
func ValidateWorker(cfg config.Config) error {
	if cfg.StoreBackend != StorePostgres {
		return fmt.Errorf("worker requires LITINSIGHT_STORE=%s, got %q", StorePostgres, cfg.StoreBackend)
	}
	return Validate(cfg)
}

// Build connects the store and document sources and assembles the pipeline.
// Close releases what Build opened.
func Build(ctx context.Context, cfg config.Config, log *zap.Logger) (*Deps, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	d := &Deps{Cfg: cfg, Log: log}

	var clientOpts []providers.FallbackOption
	var index enrich.DocumentIndex
	enrichOpts := []enrich.Option{
		enrich.WithLeadingChunks(cfg.LeadingChunks),
		enrich.WithLogger(log.Named("enrich")),
	}

	switch cfg.StoreBackend {
	case StorePostgres:
		db, err := storage.NewDB(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		d.DB = db
		d.Store = storage.NewPostgresInsightStore(db)
		index = storage.NewDocumentRepo(db)
		enrichOpts = append(enrichOpts, enrich.WithChunkSource(storage.NewChunkRepo(db)))
		clientOpts = append(clientOpts, providers.WithAttemptObserver(storage.NewLLMAuditRepo(db).Observer(log)))
	default:
		d.Store = storage.NewMemoryInsightStore()
	}

	if cfg.BlobBucket != "" {
		blobs, err := blobstore.NewS3Store(ctx, blobstore.Config{
			Bucket:          cfg.BlobBucket,
			Endpoint:        cfg.BlobEndpoint,
			Region:          cfg.BlobRegion,
			AccessKeyID:     cfg.BlobAccessKeyID,
			SecretAccessKey: cfg.BlobSecretAccessKey,
		})
		if err != nil {
			d.Close()
			return nil, err
		}
		enrichOpts = append(enrichOpts, enrich.WithBlobStore(blobs))
	}
	if index == nil {
		log.Info("full-text enrichment disabled: no document index")
	}
	d.Enricher = enrich.New(index, enrichOpts...)

	client, err := providers.NewFallbackClientFromConfig(cfg, log.Named("providers"), clientOpts...)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Client = client
	d.Mapper = insights.NewMapper(client, cfg.MapMaxTokens, cfg.MaxExcerptChars)
	d.Reducer = insights.NewReducer(client, cfg.ReduceMaxTokens)
	d.Pipeline = insights.NewPipeline(d.Enricher, d.Mapper, d.Reducer,
		insights.WithBatchSize(cfg.BatchSize),
		insights.WithBatchPause(cfg.BatchPause),
		insights.WithPipelineLogger(log.Named("pipeline")),
	)
	return d, nil
}

// NewOrchestrator builds an orchestrator over the shared store and pipeline.
func (d *Deps) NewOrchestrator(opts ...insights.Option) *insights.Orchestrator {
	base := []insights.Option{
		insights.WithMaxArticles(d.Cfg.MaxArticles),
		insights.WithJobTimeout(d.Cfg.JobTimeout),
		insights.WithLogger(d.Log.Named("orchestrator")),
	}
	return insights.NewOrchestrator(d.Store, d.Pipeline, append(base, opts...)...)
}

func (d *Deps) Close() {
	if d != nil && d.DB != nil {
		d.DB.Close()
	}
}
