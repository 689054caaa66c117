package testkit

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"degpredict/domain/core"
	"degpredict/domain/prediction"
	"degpredict/domain/run"
	"degpredict/ports"
)

// InMemoryRunRepository implements ports.RunRepository for tests and the
// demo command.
type InMemoryRunRepository struct {
	mu          sync.RWMutex
	runs        map[core.RunID]run.Manifest
	predictions map[core.RunID][]prediction.Record
}

var _ ports.RunRepository = (*InMemoryRunRepository)(nil)

// NewInMemoryRunRepository creates an empty repository
func NewInMemoryRunRepository() *InMemoryRunRepository {
	return &InMemoryRunRepository{
		runs:        make(map[core.RunID]run.Manifest),
		predictions: make(map[core.RunID][]prediction.Record),
	}
}

// SaveRun stores a copy of the manifest and records.
func (s *InMemoryRunRepository) SaveRun(ctx context.Context, m run.Manifest, records []prediction.Record) error {
	if err := m.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[m.RunID]; exists {
		return fmt.Errorf("run %s already saved", m.RunID)
	}
	s.runs[m.RunID] = m
	s.predictions[m.RunID] = append([]prediction.Record(nil), records...)
	return nil
}

// ListRuns returns the newest runs first.
func (s *InMemoryRunRepository) ListRuns(ctx context.Context, limit int) ([]run.Manifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]run.Manifest, 0, len(s.runs))
	for _, m := range s.runs {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].RunID > out[j].RunID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetRun returns one manifest.
func (s *InMemoryRunRepository) GetRun(ctx context.Context, id core.RunID) (*run.Manifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
	}
	return &m, nil
}

// GetPredictions returns a run's records in saved order.
func (s *InMemoryRunRepository) GetPredictions(ctx context.Context, id core.RunID) ([]prediction.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs, ok := s.predictions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
	}
	return append([]prediction.Record(nil), recs...), nil
}
