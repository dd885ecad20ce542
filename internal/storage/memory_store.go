package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"litinsight/internal/models"
)

// MemoryInsightStore keeps jobs in process memory. Records are copied on the
// way in and out so callers never share slices with the store.
type MemoryInsightStore struct {
	mu   sync.RWMutex
	jobs map[string]models.InsightJob
	now  func() time.Time
}

func NewMemoryInsightStore() *MemoryInsightStore {
	return &MemoryInsightStore{
		jobs: map[string]models.InsightJob{},
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryInsightStore) Create(ctx context.Context, job models.InsightJob) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if job.ID == "" {
		job.ID = models.NewInsightID()
	}
	now := s.now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = models.InsightProcessing
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return "", fmt.Errorf("create insight %s: duplicate id", job.ID)
	}
	s.jobs[job.ID] = job.Clone()
	return job.ID, nil
}

func (s *MemoryInsightStore) Update(ctx context.Context, id string, u models.InsightUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return ErrInsightNotFound
	}
	if job.Status.Terminal() {
		return ErrInsightTerminal
	}
	u.Apply(&job, s.now())
	s.jobs[id] = job.Clone()
	return nil
}

func (s *MemoryInsightStore) Get(ctx context.Context, id string) (models.InsightJob, error) {
	if err := ctx.Err(); err != nil {
		return models.InsightJob{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return models.InsightJob{}, ErrInsightNotFound
	}
	return job.Clone(), nil
}
