//go:build integration

package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imovan/internal/identity"
	"imovan/internal/identity/store/user"
	"imovan/pkg/platform/sentinel"
	"imovan/pkg/testutil/containers"
)

const userProfilesSchema = `
CREATE TABLE user_profiles (
    id            UUID PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    first_name    TEXT NOT NULL,
    last_name     TEXT NOT NULL DEFAULT '',
    user_type     TEXT NOT NULL,
    plan_id       TEXT NOT NULL DEFAULT '',
    verified      BOOLEAN NOT NULL DEFAULT FALSE,
    password_hash TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

func newProfile(email string) identity.User {
	return identity.User{
		Profile: identity.Profile{
			ID:        uuid.New(),
			Email:     email,
			FirstName: "Ana",
			LastName:  "Lima",
			UserType:  identity.UserTypeClient,
			Verified:  true,
			CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		},
		PasswordHash: "hash",
	}
}

func TestPostgresStore(t *testing.T) {
	pg := containers.NewPostgresContainer(t, userProfilesSchema)
	store := user.NewPostgres(pg.DB)
	ctx := context.Background()

	t.Run("round trips a profile by id and email", func(t *testing.T) {
		u := newProfile("ana@frota.example")
		require.NoError(t, store.Create(ctx, u))

		byID, err := store.FindByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, u.Email, byID.Email)
		assert.Equal(t, u.UserType, byID.UserType)

		byEmail, err := store.FindByEmail(ctx, "ANA@Frota.example")
		require.NoError(t, err)
		assert.Equal(t, u.ID, byEmail.ID)
	})

	t.Run("rejects duplicate emails", func(t *testing.T) {
		u := newProfile("dup@frota.example")
		require.NoError(t, store.Create(ctx, u))

		dup := newProfile("dup@frota.example")
		err := store.Create(ctx, dup)
		assert.ErrorIs(t, err, sentinel.ErrConflict)
	})

	t.Run("partial update touches only the named fields", func(t *testing.T) {
		u := newProfile("upd@frota.example")
		require.NoError(t, store.Create(ctx, u))

		first := "Renamed"
		updated, err := store.Update(ctx, u.ID, identity.ProfileUpdate{FirstName: &first})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.FirstName)
		assert.Equal(t, u.LastName, updated.LastName)
	})

	t.Run("plan association", func(t *testing.T) {
		u := newProfile("plan@frota.example")
		require.NoError(t, store.Create(ctx, u))

		require.NoError(t, store.UpdatePlan(ctx, u.ID, "fleet-basic"))
		got, err := store.FindByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "fleet-basic", got.PlanID)

		assert.ErrorIs(t, store.UpdatePlan(ctx, uuid.New(), "fleet-basic"), sentinel.ErrNotFound)
	})

	t.Run("missing rows map to the not-found sentinel", func(t *testing.T) {
		_, err := store.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}
