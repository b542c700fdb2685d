package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nvandessel/reciprocity/internal/engine"
)

// InMemoryReportStore implements ReportStore for testing and development.
type InMemoryReportStore struct {
	mu     sync.RWMutex
	runs   map[string]RunRecord
	rounds map[string][]RoundRecord
}

// NewInMemoryReportStore creates a new in-memory store.
func NewInMemoryReportStore() *InMemoryReportStore {
	return &InMemoryReportStore{
		runs:   make(map[string]RunRecord),
		rounds: make(map[string][]RoundRecord),
	}
}

// CreateRun records the start of a run.
func (s *InMemoryReportStore) CreateRun(ctx context.Context, info engine.RunInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if info.ID == "" {
		return fmt.Errorf("run ID is required")
	}
	if _, exists := s.runs[info.ID]; exists {
		return fmt.Errorf("run already exists: %s", info.ID)
	}

	s.runs[info.ID] = RunRecord{
		ID:        info.ID,
		CreatedAt: info.StartedAt,
		Seed:      info.Config.Seed,
		Config:    info.Config,
	}
	return nil
}

// SaveRound appends a round report to an existing run.
func (s *InMemoryReportStore) SaveRound(ctx context.Context, r engine.RoundReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[r.RunID]; !exists {
		return fmt.Errorf("%w: %s", ErrRunNotFound, r.RunID)
	}
	for _, existing := range s.rounds[r.RunID] {
		if existing.Summary.Round == r.Summary.Round {
			return fmt.Errorf("round %d of run %s already saved", r.Summary.Round, r.RunID)
		}
	}

	s.rounds[r.RunID] = append(s.rounds[r.RunID], RoundRecord{
		RunID:   r.RunID,
		Summary: r.Summary,
		Stats:   r.Stats,
	})
	return nil
}

// FinishRun stores the final statistics of an existing run.
func (s *InMemoryReportStore) FinishRun(ctx context.Context, r engine.RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.runs[r.RunID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrRunNotFound, r.RunID)
	}
	st := r.Stats
	rec.Stats = &st
	s.runs[r.RunID] = rec
	return nil
}

// GetRun returns a run by id.
func (s *InMemoryReportStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.runs[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return &rec, nil
}

// ListRuns returns runs newest first.
func (s *InMemoryReportStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]RunRecord, 0, len(s.runs))
	for _, rec := range s.runs {
		runs = append(runs, rec)
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].ID < runs[j].ID
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// GetRounds returns a run's rounds in round order.
func (s *InMemoryReportStore) GetRounds(ctx context.Context, runID string) ([]RoundRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rounds := append([]RoundRecord(nil), s.rounds[runID]...)
	sort.Slice(rounds, func(i, j int) bool {
		return rounds[i].Summary.Round < rounds[j].Summary.Round
	})
	return rounds, nil
}

// DeleteRun removes a run and its rounds.
func (s *InMemoryReportStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[id]; !exists {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	delete(s.runs, id)
	delete(s.rounds, id)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryReportStore) Close() error {
	return nil
}
