package user

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"imovan/internal/identity"
	"imovan/pkg/platform/sentinel"
)

// InMemoryStore keeps profiles in a map. It backs unit tests and local runs
// without Postgres, favoring clarity over performance.
type InMemoryStore struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]identity.User
	byEmail map[string]uuid.UUID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		byID:    make(map[uuid.UUID]identity.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, u identity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := normalizeEmail(u.Email)
	if _, exists := s.byEmail[email]; exists {
		return sentinel.ErrConflict
	}
	s.byID[u.ID] = u
	s.byEmail[email] = u.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return identity.User{}, sentinel.ErrNotFound
	}
	return u, nil
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return identity.User{}, sentinel.ErrNotFound
	}
	return s.byID[id], nil
}

func (s *InMemoryStore) Update(_ context.Context, id uuid.UUID, upd identity.ProfileUpdate) (identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return identity.User{}, sentinel.ErrNotFound
	}
	if upd.FirstName != nil {
		u.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		u.LastName = *upd.LastName
	}
	if upd.PlanID != nil {
		u.PlanID = *upd.PlanID
	}
	s.byID[id] = u
	return u, nil
}

func (s *InMemoryStore) UpdatePlan(_ context.Context, id uuid.UUID, planID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	u.PlanID = planID
	s.byID[id] = u
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
