package plan

import (
	"context"
	"sort"
	"sync"

	"imovan/internal/identity"
	"imovan/pkg/platform/sentinel"
)

// InMemoryStore holds plans in a map, seeded at construction. Plans change
// rarely; the in-memory form is enough for tests and local runs.
type InMemoryStore struct {
	mu    sync.RWMutex
	plans map[string]identity.Plan
}

func NewInMemory(seed ...identity.Plan) *InMemoryStore {
	s := &InMemoryStore{plans: make(map[string]identity.Plan, len(seed))}
	for _, p := range seed {
		s.plans[p.ID] = p
	}
	return s
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (identity.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.plans[id]
	if !ok {
		return identity.Plan{}, sentinel.ErrNotFound
	}
	return p, nil
}

func (s *InMemoryStore) List(_ context.Context) ([]identity.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]identity.Plan, 0, len(s.plans))
	for _, p := range s.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
