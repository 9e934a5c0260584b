package store

import (
	"context"

	"imovan/internal/session"
)

// RecordStore persists session records in two identically-keyed tiers.
//
// Discipline: writing a record to one tier clears the other in the same
// operation, so at most one tier holds a live record per key. Read checks the
// durable tier before the ephemeral one. Clear empties both and is
// idempotent. Implementations return sentinel.ErrNotFound when neither tier
// holds a record.
type RecordStore interface {
	Write(ctx context.Context, key string, tier session.Tier, rec session.Record) error
	Read(ctx context.Context, key string) (session.Record, session.Tier, error)
	Clear(ctx context.Context, key string) error
}
