// Package memory provides an in-memory attendance.Store.
package memory

import (
	"context"
	"sync"

	"github.com/warp/attendance-engine/attendance"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Store struct {
	mu      sync.RWMutex
	records []attendance.Record
	runs    []attendance.EvaluationRun
}

func New() *Store {
	return &Store{}
}

// LoadAll returns a copy of the stored set, sorted by date then employee.
func (s *Store) LoadAll(_ context.Context) ([]attendance.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]attendance.Record, len(s.records))
	for i, r := range s.records {
		out[i] = r.Clone()
	}
	return out, nil
}

// SaveAll swaps in a new set under the write lock. Duplicate keys keep the
// last occurrence.
func (s *Store) SaveAll(_ context.Context, records []attendance.Record) error {
	index := make(map[attendance.Key]int, len(records))
	next := make([]attendance.Record, 0, len(records))
	for _, r := range records {
		if i, ok := index[r.Key()]; ok {
			next[i] = r.Clone()
			continue
		}
		index[r.Key()] = len(next)
		next = append(next, r.Clone())
	}
	attendance.SortByDate(next)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = next
	return nil
}

func (s *Store) RecordRun(_ context.Context, run attendance.EvaluationRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return nil
}

// ListRuns returns the newest runs first.
func (s *Store) ListRuns(_ context.Context, limit int) ([]attendance.EvaluationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]attendance.EvaluationRun, 0, len(s.runs))
	for i := len(s.runs) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, s.runs[i])
	}
	return out, nil
}
