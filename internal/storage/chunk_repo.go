package storage

import (
	"context"
	"fmt"

	"litinsight/internal/models"
)

type ChunkRepo struct {
	db *DB
}

func NewChunkRepo(db *DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// ListLeadingChunks returns the chunks of a document with index below limit,
// in index order.
func (r *ChunkRepo) ListLeadingChunks(ctx context.Context, documentID string, limit int) ([]models.DocumentChunk, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT id::text, document_id::text, chunk_index, content
FROM chunks
WHERE document_id::text = $1 AND chunk_index < $2
ORDER BY chunk_index ASC`, documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list leading chunks: %w", err)
	}
	defer rows.Close()
	out := make([]models.DocumentChunk, 0, limit)
	for rows.Next() {
		var c models.DocumentChunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Content); err != nil {
			return nil, fmt.Errorf("scan leading chunk: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leading chunks: %w", err)
	}
	return out, nil
}
