package storage

import (
	"context"
	"fmt"
)

// DocumentRepo reads the full-text document index written by ingestion.
type DocumentRepo struct {
	db *DB
}

func NewDocumentRepo(db *DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// FindReadyDocuments maps each source id to its newest ready document id.
// Source ids without a ready document are absent from the result.
func (r *DocumentRepo) FindReadyDocuments(ctx context.Context, sourceIDs []string) (map[string]string, error) {
	out := map[string]string{}
	if len(sourceIDs) == 0 {
		return out, nil
	}
	rows, err := r.db.Pool.Query(ctx, `
SELECT DISTINCT ON (source_id) source_id, id::text
FROM documents
WHERE status = 'ready' AND source_id = ANY($1)
ORDER BY source_id, created_at DESC`, sourceIDs)
	if err != nil {
		return nil, fmt.Errorf("find ready documents: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sourceID, docID string
		if err := rows.Scan(&sourceID, &docID); err != nil {
			return nil, fmt.Errorf("scan ready document: %w", err)
		}
		out[sourceID] = docID
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ready documents: %w", err)
	}
	return out, nil
}
