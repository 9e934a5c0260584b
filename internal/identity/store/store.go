package store

import (
	"context"

	"github.com/google/uuid"

	"imovan/internal/identity"
)

// ProfileStore persists user profiles together with their credential hashes.
// Implementations return sentinel errors (pkg/platform/sentinel) for factual
// states: ErrNotFound for missing records, ErrConflict for duplicate emails.
type ProfileStore interface {
	Create(ctx context.Context, user identity.User) error
	FindByID(ctx context.Context, id uuid.UUID) (identity.User, error)
	FindByEmail(ctx context.Context, email string) (identity.User, error)
	Update(ctx context.Context, id uuid.UUID, upd identity.ProfileUpdate) (identity.User, error)
	UpdatePlan(ctx context.Context, id uuid.UUID, planID string) error
}

// PlanStore reads subscription plans. Plans are seeded out of band; the
// service only associates them with profiles.
type PlanStore interface {
	FindByID(ctx context.Context, id string) (identity.Plan, error)
	List(ctx context.Context) ([]identity.Plan, error)
}
