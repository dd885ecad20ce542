package insights

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"litinsight/internal/models"
	"litinsight/internal/providers"
	"litinsight/internal/storage"
)

type runnerFunc func(ctx context.Context, task Task) (Outcome, error)

func (f runnerFunc) Run(ctx context.Context, task Task) (Outcome, error) { return f(ctx, task) }

type mockLauncher struct{ mock.Mock }

func (m *mockLauncher) Launch(ctx context.Context, task Task) error {
	return m.Called(ctx, task).Error(0)
}

func waitForTerminal(t *testing.T, o *Orchestrator, id string) models.InsightJob {
	t.Helper()
	o.Wait()
	job, err := o.GetStatus(context.Background(), id)
	require.NoError(t, err)
	require.True(t, job.Status.Terminal(), "job still %s", job.Status)
	return job
}

func TestSubmitRejectsEmptyArticles(t *testing.T) {
	store := storage.NewMemoryInsightStore()
	launcher := &mockLauncher{}
	o := NewOrchestrator(store, runnerFunc(nil), WithLauncher(launcher))

	_, err := o.Submit(context.Background(), SubmitRequest{})
	require.ErrorIs(t, err, ErrNoArticles)
	launcher.AssertNotCalled(t, "Launch", mock.Anything, mock.Anything)
}

func TestSubmitCapsArticlesAndCreatesProcessingJob(t *testing.T) {
	store := storage.NewMemoryInsightStore()
	launcher := &mockLauncher{}
	launcher.On("Launch", mock.Anything, mock.MatchedBy(func(task Task) bool {
		return len(task.Articles) == 30 && task.Query == "q"
	})).Return(nil).Once()
	o := NewOrchestrator(store, runnerFunc(nil), WithLauncher(launcher), WithLogger(zaptest.NewLogger(t)))

	articles := makeArticles(35)
	articles[0].Title = strings.Repeat("T", 130)
	articles[1].PubDate = ""

	res, err := o.Submit(context.Background(), SubmitRequest{Articles: articles, Query: " q ", FilterSummary: "EGFR / NSCLC"})
	require.NoError(t, err)
	require.Equal(t, models.InsightProcessing, res.Status)
	launcher.AssertExpectations(t)

	job, err := o.GetStatus(context.Background(), res.ID)
	require.NoError(t, err)
	require.Equal(t, models.InsightProcessing, job.Status)
	require.Equal(t, "", job.Summary)
	require.Equal(t, 30, job.ArticleCount)
	require.Equal(t, "q", job.Query)
	require.Equal(t, "EGFR / NSCLC", job.FilterSummary)
	require.Len(t, job.AnalyzedArticles, 30)
	require.Equal(t, 1, job.AnalyzedArticles[0].Ordinal)
	require.Equal(t, 30, job.AnalyzedArticles[29].Ordinal)
	require.Equal(t, strings.Repeat("T", 100)+"...", job.AnalyzedArticles[0].Title)
	require.Equal(t, "Unknown", job.AnalyzedArticles[1].Year)
	require.Equal(t, "2020", job.AnalyzedArticles[2].Year)
	require.Equal(t, "PMC3", job.AnalyzedArticles[2].SourceID)
	require.Empty(t, job.ChatHistory)
}

func TestEndToEndQuestionModeCompletes(t *testing.T) {
	store := storage.NewMemoryInsightStore()
	client := &fakeCompleter{respond: func(n int, prompt string) (string, string, error) {
		if strings.Contains(prompt, "=== Batch ") {
			return "## Answer\nYes [#2] [#12]", "anthropic:claude", nil
		}
		return "- [#x] fact", "openai:gpt", nil
	}}
	p := newTestPipeline(t, client, staticEnricher{"PMC2": "text", "PMC12": "text"}, &sleepLog{})
	o := NewOrchestrator(store, p, WithLogger(zaptest.NewLogger(t)))

	res, err := o.Submit(context.Background(), SubmitRequest{Articles: makeArticles(12), Query: "Does it work?"})
	require.NoError(t, err)

	job := waitForTerminal(t, o, res.ID)
	require.Equal(t, models.InsightCompleted, job.Status)
	require.Equal(t, "## Answer\nYes [#2] [#12]", job.Summary)
	require.Equal(t, "anthropic:claude", job.ModelUsed)
	require.Equal(t, 2, job.FullTextCount)
	require.Nil(t, job.Error)
	require.NotNil(t, job.CompletedAt)
	require.True(t, job.AnalyzedArticles[1].HasFullText)
	require.True(t, job.AnalyzedArticles[11].HasFullText)
	require.False(t, job.AnalyzedArticles[0].HasFullText)
	require.Len(t, client.Calls(), 3)
}

func TestSubmitReturnsBeforeRunFinishes(t *testing.T) {
	store := storage.NewMemoryInsightStore()
	release := make(chan struct{})
	o := NewOrchestrator(store, runnerFunc(func(ctx context.Context, task Task) (Outcome, error) {
		<-release
		return Outcome{Summary: "s", ModelUsed: "m"}, nil
	}))

	res, err := o.Submit(context.Background(), SubmitRequest{Articles: makeArticles(1)})
	require.NoError(t, err)
	job, err := o.GetStatus(context.Background(), res.ID)
	require.NoError(t, err)
	require.Equal(t, models.InsightProcessing, job.Status)

	close(release)
	job = waitForTerminal(t, o, res.ID)
	require.Equal(t, models.InsightCompleted, job.Status)
}

func TestRunSurvivesRequestCancellation(t *testing.T) {
	store := storage.NewMemoryInsightStore()
	started := make(chan struct{})
	proceed := make(chan struct{})
	o := NewOrchestrator(store, runnerFunc(func(ctx context.Context, task Task) (Outcome, error) {
		close(started)
		<-proceed
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}
		return Outcome{Summary: "s", ModelUsed: "m"}, nil
	}))

	reqCtx, cancel := context.WithCancel(context.Background())
	res, err := o.Submit(reqCtx, SubmitRequest{Articles: makeArticles(1)})
	require.NoError(t, err)
	<-started
	cancel()
	close(proceed)

	job := waitForTerminal(t, o, res.ID)
	require.Equal(t, models.InsightCompleted, job.Status)
}

func TestAuthFailureMarksJobError(t *testing.T) {
	store := storage.NewMemoryInsightStore()
	client := &fakeCompleter{respond: func(n int, prompt string) (string, string, error) {
		return "", "", fmt.Errorf("%w: anthropic:claude: invalid x-api-key", providers.ErrProviderAuth)
	}}
	o := NewOrchestrator(store, newTestPipeline(t, client, nil, &sleepLog{}))

	res, err := o.Submit(context.Background(), SubmitRequest{Articles: makeArticles(3)})
	require.NoError(t, err)
	job := waitForTerminal(t, o, res.ID)
	require.Equal(t, models.InsightError, job.Status)
	require.NotNil(t, job.Error)
	require.True(t, strings.HasPrefix(*job.Error, "ProviderAuthError: "), *job.Error)
	require.Equal(t, "", job.Summary)
	require.Len(t, client.Calls(), 1)
}

func TestAllProvidersFailedOnLaterBatch(t *testing.T) {
	store := storage.NewMemoryInsightStore()
	client := &fakeCompleter{respond: func(n int, prompt string) (string, string, error) {
		if n == 1 {
			return "", "", &providers.AllProvidersFailedError{Attempts: []providers.AttemptError{
				{CandidateID: "a", Type: providers.ErrorOverloaded, Err: errors.New("Overloaded")},
			}}
		}
		return "ok", "a", nil
	}}
	o := NewOrchestrator(store, newTestPipeline(t, client, nil, &sleepLog{}))

	res, err := o.Submit(context.Background(), SubmitRequest{Articles: makeArticles(20)})
	require.NoError(t, err)
	job := waitForTerminal(t, o, res.ID)
	require.Equal(t, models.InsightError, job.Status)
	require.True(t, strings.HasPrefix(*job.Error, "AllProvidersFailed: "), *job.Error)
	require.Len(t, client.Calls(), 2)
}

func TestCompletePersistenceFailureFallsBackToFail(t *testing.T) {
	store := &flakyStore{
		MemoryInsightStore: storage.NewMemoryInsightStore(),
		failOn: func(u models.InsightUpdate) error {
			if u.Status != nil && *u.Status == models.InsightCompleted {
				return errors.New("disk full")
			}
			return nil
		},
	}
	o := NewOrchestrator(store, runnerFunc(func(ctx context.Context, task Task) (Outcome, error) {
		return Outcome{Summary: "s", ModelUsed: "m"}, nil
	}))

	res, err := o.Submit(context.Background(), SubmitRequest{Articles: makeArticles(2)})
	require.NoError(t, err)
	job := waitForTerminal(t, o, res.ID)
	require.Equal(t, models.InsightError, job.Status)
	require.Equal(t, "PersistenceError: complete insight: disk full", *job.Error)
}

func TestFailPersistenceFailureIsSwallowed(t *testing.T) {
	store := &flakyStore{
		MemoryInsightStore: storage.NewMemoryInsightStore(),
		failOn: func(u models.InsightUpdate) error { return errors.New("db gone") },
	}
	o := NewOrchestrator(store, runnerFunc(func(ctx context.Context, task Task) (Outcome, error) {
		return Outcome{}, errors.New("boom")
	}), WithLogger(zaptest.NewLogger(t)))

	res, err := o.Submit(context.Background(), SubmitRequest{Articles: makeArticles(1)})
	require.NoError(t, err)
	o.Wait()

	job, err := o.GetStatus(context.Background(), res.ID)
	require.NoError(t, err)
	require.Equal(t, models.InsightProcessing, job.Status)
}

func TestPanicIsRecordedAsError(t *testing.T) {
	store := storage.NewMemoryInsightStore()
	o := NewOrchestrator(store, runnerFunc(func(ctx context.Context, task Task) (Outcome, error) {
		panic("nil map")
	}))

	res, err := o.Submit(context.Background(), SubmitRequest{Articles: makeArticles(1)})
	require.NoError(t, err)
	job := waitForTerminal(t, o, res.ID)
	require.Equal(t, "PanicError: panic: nil map", *job.Error)
}

func TestJobTimeout(t *testing.T) {
	store := storage.NewMemoryInsightStore()
	runner := runnerFunc(func(ctx context.Context, task Task) (Outcome, error) {
		<-ctx.Done()
		return Outcome{}, fmt.Errorf("map batch 1/1: %w", ctx.Err())
	})
	var o *Orchestrator
	o = NewOrchestrator(store, runner, WithLauncher(NewGoroutineLauncher(executorFunc(func(ctx context.Context, task Task) {
		o.Execute(ctx, task)
	}), 20*time.Millisecond)))

	res, err := o.Submit(context.Background(), SubmitRequest{Articles: makeArticles(1)})
	require.NoError(t, err)
	job := waitForTerminal(t, o, res.ID)
	require.True(t, strings.HasPrefix(*job.Error, "Timeout: "), *job.Error)
}

type executorFunc func(ctx context.Context, task Task)

func (f executorFunc) Execute(ctx context.Context, task Task) { f(ctx, task) }

func TestLaunchFailureMarksJobError(t *testing.T) {
	store := storage.NewMemoryInsightStore()
	launcher := &mockLauncher{}
	launcher.On("Launch", mock.Anything, mock.Anything).Return(errors.New("temporal unavailable"))
	o := NewOrchestrator(store, runnerFunc(nil), WithLauncher(launcher))

	_, err := o.Submit(context.Background(), SubmitRequest{Articles: makeArticles(1)})
	require.Error(t, err)

	task := launcher.Calls[0].Arguments.Get(1).(Task)
	job, err := store.Get(context.Background(), task.InsightID)
	require.NoError(t, err)
	require.Equal(t, models.InsightError, job.Status)
	require.Contains(t, *job.Error, "temporal unavailable")
}

func TestTerminalJobIsNotOverwritten(t *testing.T) {
	store := storage.NewMemoryInsightStore()
	o := NewOrchestrator(store, runnerFunc(func(ctx context.Context, task Task) (Outcome, error) {
		return Outcome{Summary: "s", ModelUsed: "m"}, nil
	}))
	res, err := o.Submit(context.Background(), SubmitRequest{Articles: makeArticles(1)})
	require.NoError(t, err)
	waitForTerminal(t, o, res.ID)

	o.Fail(context.Background(), res.ID, errors.New("late"))
	err = o.Complete(context.Background(), res.ID, Outcome{Summary: "other"})
	require.ErrorIs(t, err, storage.ErrInsightTerminal)

	job, err := o.GetStatus(context.Background(), res.ID)
	require.NoError(t, err)
	require.Equal(t, models.InsightCompleted, job.Status)
	require.Equal(t, "s", job.Summary)
	require.Nil(t, job.Error)
}

func TestGetStatusUnknown(t *testing.T) {
	o := NewOrchestrator(storage.NewMemoryInsightStore(), runnerFunc(nil))
	_, err := o.GetStatus(context.Background(), "nope")
	require.ErrorIs(t, err, storage.ErrInsightNotFound)
}

func TestErrorCategory(t *testing.T) {
	require.Equal(t, CategoryProviderAuth, ErrorCategory(fmt.Errorf("x: %w", providers.ErrProviderAuth)))
	require.Equal(t, CategoryAllProvidersFailed, ErrorCategory(&providers.AllProvidersFailedError{}))
	require.Equal(t, CategoryPersistence, ErrorCategory(&storage.PersistenceError{Op: "x", Err: errors.New("y")}))
	require.Equal(t, CategoryTimeout, ErrorCategory(fmt.Errorf("x: %w", context.DeadlineExceeded)))
	require.Equal(t, CategoryPanic, ErrorCategory(&PanicError{Value: 1}))
	require.Equal(t, CategoryGeneric, ErrorCategory(errors.New("plain")))
	require.Equal(t, "Error: plain", ErrorText("", "plain"))
}
