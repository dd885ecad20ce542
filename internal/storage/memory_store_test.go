package storage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"litinsight/internal/models"
)

func TestMemoryInsightStoreCreateGet(t *testing.T) {
	s := NewMemoryInsightStore()
	ctx := context.Background()

	id, err := s.Create(ctx, models.InsightJob{
		ArticleCount:     1,
		AnalyzedArticles: []models.AnalyzedArticle{{Ordinal: 1, Title: "A"}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	job, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, models.InsightProcessing, job.Status)
	require.Equal(t, "", job.Summary)
	require.NotNil(t, job.ChatHistory)
	require.Empty(t, job.ChatHistory)
	require.False(t, job.CreatedAt.IsZero())

	id2, err := s.Create(ctx, models.InsightJob{ID: "fixed"})
	require.NoError(t, err)
	require.Equal(t, "fixed", id2)
	_, err = s.Create(ctx, models.InsightJob{ID: "fixed"})
	require.Error(t, err)
}

func TestMemoryInsightStoreGetUnknown(t *testing.T) {
	_, err := NewMemoryInsightStore().Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrInsightNotFound)

	err = NewMemoryInsightStore().Update(context.Background(), "missing", models.InsightUpdate{})
	require.ErrorIs(t, err, ErrInsightNotFound)
}

func TestMemoryInsightStorePartialMergeAndTerminal(t *testing.T) {
	s := NewMemoryInsightStore()
	ctx := context.Background()
	id, err := s.Create(ctx, models.InsightJob{Query: "q", ArticleCount: 2})
	require.NoError(t, err)

	model := "mock:a"
	require.NoError(t, s.Update(ctx, id, models.InsightUpdate{ModelUsed: &model}))

	summary := "done"
	status := models.InsightCompleted
	require.NoError(t, s.Update(ctx, id, models.InsightUpdate{Summary: &summary, Status: &status}))

	job, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "q", job.Query)
	require.Equal(t, 2, job.ArticleCount)
	require.Equal(t, "mock:a", job.ModelUsed)
	require.Equal(t, "done", job.Summary)
	require.NotNil(t, job.CompletedAt)

	errStatus := models.InsightError
	msg := "late failure"
	err = s.Update(ctx, id, models.InsightUpdate{Status: &errStatus, Error: &msg})
	require.ErrorIs(t, err, ErrInsightTerminal)

	job, err = s.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, models.InsightCompleted, job.Status)
	require.Nil(t, job.Error)
}

func TestMemoryInsightStoreReturnsCopies(t *testing.T) {
	s := NewMemoryInsightStore()
	ctx := context.Background()
	id, err := s.Create(ctx, models.InsightJob{AnalyzedArticles: []models.AnalyzedArticle{{Ordinal: 1}}})
	require.NoError(t, err)

	job, err := s.Get(ctx, id)
	require.NoError(t, err)
	job.AnalyzedArticles[0].Ordinal = 42

	again, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 1, again.AnalyzedArticles[0].Ordinal)
}

func TestMemoryInsightStoreConcurrentJobs(t *testing.T) {
	s := NewMemoryInsightStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]string, 20)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := s.Create(ctx, models.InsightJob{ArticleCount: i})
			if err != nil {
				t.Error(err)
				return
			}
			ids[i] = id
			summary := "s"
			status := models.InsightCompleted
			if err := s.Update(ctx, id, models.InsightUpdate{Summary: &summary, Status: &status}); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	for i, id := range ids {
		job, err := s.Get(ctx, id)
		require.NoError(t, err)
		require.Equal(t, i, job.ArticleCount)
		require.Equal(t, models.InsightCompleted, job.Status)
	}
}

func TestPersistenceErrorUnwraps(t *testing.T) {
	base := errors.New("connection reset")
	err := &PersistenceError{Op: "complete insight", Err: base}
	require.ErrorIs(t, err, base)
	require.Equal(t, "complete insight: connection reset", err.Error())
}
