// Package memstore is an in-memory store.CaseStore for tests and
// single-process deployments without persistence.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ausentia/veredicto/pkg/veredicto/internalerr"
	"github.com/ausentia/veredicto/pkg/veredicto/store"
)

// Store is an in-memory implementation of store.CaseStore.
type Store struct {
	mu    sync.RWMutex
	cases map[string]store.Case
	order []string // insertion order of IDs, oldest first
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{cases: make(map[string]store.Case)}
}

// Close implements store.CaseStore.
func (s *Store) Close() error { return nil }

// Append stores a case, replacing any existing case with the same ID.
func (s *Store) Append(ctx context.Context, c store.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		return fmt.Errorf("case id empty: %w", internalerr.ErrInvalidInput)
	}
	if _, exists := s.cases[c.ID]; !exists {
		s.order = append(s.order, c.ID)
	}
	s.cases[c.ID] = copyCase(c)
	return nil
}

// Get returns a case by ID.
func (s *Store) Get(ctx context.Context, id string) (store.Case, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.cases[id]; ok {
		return copyCase(c), true, nil
	}
	return store.Case{}, false, nil
}

// All returns every stored case, most recent first.
func (s *Store) All(ctx context.Context) ([]store.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Case, 0, len(s.cases))
	for _, id := range s.order {
		out = append(out, copyCase(s.cases[id]))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StoredAt.After(out[j].StoredAt)
	})
	return out, nil
}

// UpdateFeedback attaches reviewer feedback to an existing case.
func (s *Store) UpdateFeedback(ctx context.Context, id, feedback string, expertValidation bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cases[id]
	if !ok {
		return fmt.Errorf("case %s: %w", id, internalerr.ErrNotFound)
	}
	c.Feedback = feedback
	c.ExpertValidation = expertValidation
	s.cases[id] = c
	return nil
}

// Count returns the number of stored cases.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cases), nil
}

func copyCase(c store.Case) store.Case {
	out := c
	if c.Facts != nil {
		out.Facts = make(map[string]any, len(c.Facts))
		for k, v := range c.Facts {
			out.Facts[k] = v
		}
	}
	if c.Features != nil {
		out.Features = make(map[string]float64, len(c.Features))
		for k, v := range c.Features {
			out.Features[k] = v
		}
	}
	out.RulesApplied = append([]string(nil), c.RulesApplied...)
	out.ActionsTaken = append([]string(nil), c.ActionsTaken...)
	return out
}
