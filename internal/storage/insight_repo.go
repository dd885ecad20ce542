package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"litinsight/internal/models"
)

// PostgresInsightStore keeps insight jobs in the insights table. Sub-records
// are stored as JSONB.
type PostgresInsightStore struct {
	db *DB
}

func NewPostgresInsightStore(db *DB) *PostgresInsightStore {
	return &PostgresInsightStore{db: db}
}

func (r *PostgresInsightStore) Create(ctx context.Context, job models.InsightJob) (string, error) {
	if job.ID == "" {
		job.ID = models.NewInsightID()
	}
	if job.Status == "" {
		job.Status = models.InsightProcessing
	}
	analyzed, err := marshalJSONList(job.AnalyzedArticles)
	if err != nil {
		return "", fmt.Errorf("encode analyzed articles: %w", err)
	}
	chat, err := marshalJSONList(job.ChatHistory)
	if err != nil {
		return "", fmt.Errorf("encode chat history: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, `
INSERT INTO insights (id, query, filter_summary, status, summary, article_count, analyzed_articles, model_used, full_text_count, error, chat_history)
VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10, $11::jsonb)`,
		job.ID, job.Query, job.FilterSummary, string(job.Status), job.Summary, job.ArticleCount,
		analyzed, job.ModelUsed, job.FullTextCount, job.Error, chat)
	if err != nil {
		return "", fmt.Errorf("create insight: %w", err)
	}
	return job.ID, nil
}

// Update applies u in a single statement guarded by status='processing'.
func (r *PostgresInsightStore) Update(ctx context.Context, id string, u models.InsightUpdate) error {
	var status *string
	if u.Status != nil {
		s := string(*u.Status)
		status = &s
	}
	var analyzed *string
	if u.AnalyzedArticles != nil {
		raw, err := json.Marshal(u.AnalyzedArticles)
		if err != nil {
			return fmt.Errorf("encode analyzed articles: %w", err)
		}
		s := string(raw)
		analyzed = &s
	}
	tag, err := r.db.Pool.Exec(ctx, `
UPDATE insights SET
  status = COALESCE($2::text, status),
  summary = COALESCE($3::text, summary),
  model_used = COALESCE($4::text, model_used),
  full_text_count = COALESCE($5::int, full_text_count),
  analyzed_articles = COALESCE($6::jsonb, analyzed_articles),
  error = COALESCE($7::text, error),
  updated_at = NOW(),
  completed_at = CASE WHEN $2::text IN ('completed', 'error') THEN NOW() ELSE completed_at END
WHERE id = $1 AND status = 'processing'`,
		id, status, u.Summary, u.ModelUsed, u.FullTextCount, analyzed, u.Error)
	if err != nil {
		return fmt.Errorf("update insight: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var current string
	err = r.db.Pool.QueryRow(ctx, `SELECT status FROM insights WHERE id=$1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrInsightNotFound
	}
	if err != nil {
		return fmt.Errorf("check insight status: %w", err)
	}
	return ErrInsightTerminal
}

func (r *PostgresInsightStore) Get(ctx context.Context, id string) (models.InsightJob, error) {
	var (
		job      models.InsightJob
		status   string
		analyzed []byte
		chat     []byte
	)
	err := r.db.Pool.QueryRow(ctx, `
SELECT id, query, filter_summary, status, summary, article_count, analyzed_articles, model_used,
       full_text_count, error, chat_history, created_at, updated_at, completed_at
FROM insights WHERE id=$1`, id).Scan(
		&job.ID, &job.Query, &job.FilterSummary, &status, &job.Summary, &job.ArticleCount, &analyzed,
		&job.ModelUsed, &job.FullTextCount, &job.Error, &chat, &job.CreatedAt, &job.UpdatedAt, &job.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.InsightJob{}, ErrInsightNotFound
	}
	if err != nil {
		return models.InsightJob{}, fmt.Errorf("get insight: %w", err)
	}
	job.Status = models.InsightStatus(status)
	if len(analyzed) > 0 {
		if err := json.Unmarshal(analyzed, &job.AnalyzedArticles); err != nil {
			return models.InsightJob{}, fmt.Errorf("decode analyzed articles: %w", err)
		}
	}
	if len(chat) > 0 {
		if err := json.Unmarshal(chat, &job.ChatHistory); err != nil {
			return models.InsightJob{}, fmt.Errorf("decode chat history: %w", err)
		}
	}
	return job.Clone(), nil
}

func marshalJSONList[T any](items []T) (string, error) {
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
