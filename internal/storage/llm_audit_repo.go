package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"litinsight/internal/providers"
)

type LLMCallRecord struct {
	Candidate  string
	Backend    string
	Model      string
	Secondary  bool
	Retry      bool
	Status     string
	Error      string
	DurationMS int64
}

type LLMAuditRepo struct {
	db *DB
}

func NewLLMAuditRepo(db *DB) *LLMAuditRepo {
	return &LLMAuditRepo{db: db}
}

func (r *LLMAuditRepo) Insert(ctx context.Context, rec LLMCallRecord) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO llm_calls(candidate, backend, model, secondary, retry, status, error_message, duration_ms)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7,''), $8)`,
		rec.Candidate, rec.Backend, rec.Model, rec.Secondary, rec.Retry, rec.Status, rec.Error, rec.DurationMS)
	if err != nil {
		return fmt.Errorf("insert llm call: %w", err)
	}
	return nil
}

// Observer records every fallback attempt. Insert failures are logged only.
func (r *LLMAuditRepo) Observer(log *zap.Logger) providers.AttemptObserver {
	return func(ctx context.Context, a providers.Attempt) {
		rec := LLMCallRecord{
			Candidate:  a.CandidateID,
			Backend:    a.Backend,
			Model:      a.Model,
			Secondary:  a.Secondary,
			Retry:      a.Retry,
			Status:     a.Outcome,
			DurationMS: a.Duration.Milliseconds(),
		}
		if a.Err != nil {
			rec.Error = a.Err.Error()
		}
		if err := r.Insert(context.WithoutCancel(ctx), rec); err != nil {
			log.Warn("llm audit insert failed", zap.String("provider", a.CandidateID), zap.Error(err))
		}
	}
}
