package storage

import (
	"context"
	"errors"
	"fmt"

	"litinsight/internal/models"
)

var (
	ErrInsightNotFound = errors.New("insight not found")
	ErrInsightTerminal = errors.New("insight already in terminal state")
)

// InsightStore persists insight jobs. Update merges only the fields set on
// the update and never moves a job out of a terminal status.
type InsightStore interface {
	Create(ctx context.Context, job models.InsightJob) (string, error)
	Update(ctx context.Context, id string, u models.InsightUpdate) error
	Get(ctx context.Context, id string) (models.InsightJob, error)
}

// PersistenceError wraps a store failure on the job's write path.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
