package insights

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"go.uber.org/zap"

	"litinsight/internal/metrics"
	"litinsight/internal/models"
	"litinsight/internal/storage"
	"litinsight/internal/util"
)

const (
	DefaultMaxArticles = 30
	maxTitleRunes      = 100
)

type SubmitRequest struct {
	Articles      []models.Article
	Query         string
	FilterSummary string
}

type SubmitResult struct {
	ID     string
	Status models.InsightStatus
}

// Orchestrator owns the job lifecycle: it creates jobs, hands them to a
// Launcher and records the terminal state.
type Orchestrator struct {
	store       storage.InsightStore
	runner      Runner
	launcher    Launcher
	maxArticles int
	jobTimeout  time.Duration
	log         *zap.Logger
}

type Option func(*Orchestrator)

func WithLauncher(l Launcher) Option {
	return func(o *Orchestrator) { o.launcher = l }
}

func WithMaxArticles(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxArticles = n
		}
	}
}

// WithJobTimeout bounds each run started by the default launcher.
func WithJobTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.jobTimeout = d }
}

func WithLogger(log *zap.Logger) Option {
	return func(o *Orchestrator) {
		if log != nil {
			o.log = log
		}
	}
}

// NewOrchestrator defaults to an in-process GoroutineLauncher.
func NewOrchestrator(store storage.InsightStore, runner Runner, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:       store,
		runner:      runner,
		maxArticles: DefaultMaxArticles,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.launcher == nil {
		o.launcher = NewGoroutineLauncher(o, o.jobTimeout)
	}
	return o
}

func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	if len(req.Articles) == 0 {
		return SubmitResult{}, ErrNoArticles
	}
	articles := req.Articles
	if len(articles) > o.maxArticles {
		articles = articles[:o.maxArticles]
	}
	articles = append([]models.Article(nil), articles...)

	job := models.InsightJob{
		ID:               models.NewInsightID(),
		Query:            strings.TrimSpace(req.Query),
		FilterSummary:    req.FilterSummary,
		Status:           models.InsightProcessing,
		ArticleCount:     len(articles),
		AnalyzedArticles: BuildAnalyzedArticles(articles),
		ChatHistory:      []models.ChatMessage{},
	}
	id, err := o.store.Create(ctx, job)
	if err != nil {
		return SubmitResult{}, &storage.PersistenceError{Op: "create insight", Err: err}
	}
	metrics.InsightsSubmitted.Inc()

	task := Task{InsightID: id, Query: job.Query, Articles: articles}
	if err := o.launcher.Launch(ctx, task); err != nil {
		o.Fail(context.WithoutCancel(ctx), id, fmt.Errorf("launch insight: %w", err))
		return SubmitResult{}, fmt.Errorf("launch insight %s: %w", id, err)
	}
	o.log.Info("insight submitted",
		zap.String("insight_id", id),
		zap.Int("articles", len(articles)),
		zap.Int("requested", len(req.Articles)),
		zap.Bool("question_mode", job.Query != ""))
	return SubmitResult{ID: id, Status: models.InsightProcessing}, nil
}

func (o *Orchestrator) GetStatus(ctx context.Context, id string) (models.InsightJob, error) {
	return o.store.Get(ctx, id)
}

// Execute is the failure boundary of a detached run. Nothing escapes it:
// every error or panic ends as an error-state job.
func (o *Orchestrator) Execute(ctx context.Context, task Task) {
	metrics.InsightsActive.Inc()
	defer metrics.InsightsActive.Dec()
	defer func() {
		if r := recover(); r != nil {
			o.Fail(context.WithoutCancel(ctx), task.InsightID, &PanicError{Value: r, Stack: debug.Stack()})
		}
	}()

	outcome, err := o.runner.Run(ctx, task)
	if err != nil {
		o.Fail(context.WithoutCancel(ctx), task.InsightID, err)
		return
	}
	if err := o.Complete(ctx, task.InsightID, outcome); err != nil {
		o.Fail(context.WithoutCancel(ctx), task.InsightID, err)
	}
}

// Complete records a successful run. Errors are returned to the caller.
func (o *Orchestrator) Complete(ctx context.Context, id string, outcome Outcome) error {
	job, err := o.store.Get(ctx, id)
	if err != nil {
		return &storage.PersistenceError{Op: "load insight", Err: err}
	}
	analyzed, fullTextCount := markFullText(job.AnalyzedArticles, outcome.FullTextOrdinals)

	status := models.InsightCompleted
	err = o.store.Update(ctx, id, models.InsightUpdate{
		Status:           &status,
		Summary:          &outcome.Summary,
		ModelUsed:        &outcome.ModelUsed,
		FullTextCount:    &fullTextCount,
		AnalyzedArticles: analyzed,
	})
	if err != nil {
		return &storage.PersistenceError{Op: "complete insight", Err: err}
	}
	metrics.InsightsFinished.WithLabelValues(string(status), "").Inc()
	metrics.InsightDuration.WithLabelValues(string(status)).Observe(time.Since(job.CreatedAt).Seconds())
	o.log.Info("insight completed",
		zap.String("insight_id", id),
		zap.String("model", outcome.ModelUsed),
		zap.Int("full_text", fullTextCount))
	return nil
}

// Fail records a failed run. Store errors are logged and dropped.
func (o *Orchestrator) Fail(ctx context.Context, id string, cause error) {
	if cause == nil {
		return
	}
	o.FailWith(ctx, id, ErrorCategory(cause), cause.Error())
}

func (o *Orchestrator) FailWith(ctx context.Context, id, category, message string) {
	text := ErrorText(category, message)
	status := models.InsightError
	if err := o.store.Update(ctx, id, models.InsightUpdate{Status: &status, Error: &text}); err != nil {
		o.log.Error("could not record insight failure",
			zap.String("insight_id", id),
			zap.String("category", category),
			zap.String("cause", message),
			zap.Error(err))
		return
	}
	metrics.InsightsFinished.WithLabelValues(string(status), category).Inc()
	o.log.Warn("insight failed",
		zap.String("insight_id", id),
		zap.String("category", category),
		zap.String("error", message))
}

// BuildAnalyzedArticles numbers articles from 1 in input order.
func BuildAnalyzedArticles(articles []models.Article) []models.AnalyzedArticle {
	out := make([]models.AnalyzedArticle, 0, len(articles))
	for i, a := range articles {
		out = append(out, models.AnalyzedArticle{
			Ordinal:  i + 1,
			Title:    util.TruncateRunes(oneLine(a.Title), maxTitleRunes),
			Year:     util.YearOf(a.PubDate),
			SourceID: a.SourceID,
		})
	}
	return out
}

func markFullText(analyzed []models.AnalyzedArticle, ordinals []int) ([]models.AnalyzedArticle, int) {
	set := make(map[int]struct{}, len(ordinals))
	for _, n := range ordinals {
		set[n] = struct{}{}
	}
	out := make([]models.AnalyzedArticle, len(analyzed))
	for i, a := range analyzed {
		_, a.HasFullText = set[a.Ordinal]
		out[i] = a
	}
	return out, len(set)
}

// Wait blocks until in-process runs have finished. It is a no-op for
// launchers that hand work to another process.
func (o *Orchestrator) Wait() {
	if w, ok := o.launcher.(interface{ Wait() }); ok {
		w.Wait()
	}
}
