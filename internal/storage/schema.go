package storage

import (
	"context"
	"fmt"
)

// EnsureSchema creates the tables owned by this service. The documents and
// chunks tables belong to the ingestion side and are only read here.
func (d *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS insights (
  id TEXT PRIMARY KEY,
  query TEXT NOT NULL DEFAULT '',
  filter_summary TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'processing',
  summary TEXT NOT NULL DEFAULT '',
  article_count INT NOT NULL DEFAULT 0,
  analyzed_articles JSONB NOT NULL DEFAULT '[]'::jsonb,
  model_used TEXT NOT NULL DEFAULT '',
  full_text_count INT NOT NULL DEFAULT 0,
  error TEXT,
  chat_history JSONB NOT NULL DEFAULT '[]'::jsonb,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  completed_at TIMESTAMPTZ
)`,
		`CREATE INDEX IF NOT EXISTS insights_status_idx ON insights(status)`,
		`CREATE TABLE IF NOT EXISTS llm_calls (
  call_id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
  candidate TEXT NOT NULL,
  backend TEXT NOT NULL DEFAULT '',
  model TEXT NOT NULL DEFAULT '',
  secondary BOOLEAN NOT NULL DEFAULT FALSE,
  retry BOOLEAN NOT NULL DEFAULT FALSE,
  status TEXT NOT NULL,
  error_message TEXT,
  duration_ms BIGINT NOT NULL DEFAULT 0,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	}
	for _, stmt := range stmts {
		if _, err := d.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
