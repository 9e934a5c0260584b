package store

import (
	"context"
	"sync"

	"imovan/internal/session"
	"imovan/pkg/platform/sentinel"
)

// InMemoryStore keeps both tiers in maps. Records are never aged out here;
// expiry stays lazy in the session manager, which keeps the unit tests for
// the expiry path honest.
type InMemoryStore struct {
	mu        sync.RWMutex
	durable   map[string]session.Record
	ephemeral map[string]session.Record
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		durable:   make(map[string]session.Record),
		ephemeral: make(map[string]session.Record),
	}
}

func (s *InMemoryStore) Write(_ context.Context, key string, tier session.Tier, rec session.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch tier {
	case session.TierDurable:
		s.durable[key] = rec
		delete(s.ephemeral, key)
	case session.TierEphemeral:
		s.ephemeral[key] = rec
		delete(s.durable, key)
	default:
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *InMemoryStore) Read(_ context.Context, key string) (session.Record, session.Tier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rec, ok := s.durable[key]; ok {
		return rec, session.TierDurable, nil
	}
	if rec, ok := s.ephemeral[key]; ok {
		return rec, session.TierEphemeral, nil
	}
	return session.Record{}, "", sentinel.ErrNotFound
}

func (s *InMemoryStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.durable, key)
	delete(s.ephemeral, key)
	return nil
}

// TierLen reports how many records a tier currently holds. Test helper.
func (s *InMemoryStore) TierLen(tier session.Tier) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if tier == session.TierDurable {
		return len(s.durable)
	}
	return len(s.ephemeral)
}
