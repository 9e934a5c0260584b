package manager_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"imovan/internal/audit"
	"imovan/internal/audit/publisher"
	"imovan/internal/identity"
	planstore "imovan/internal/identity/store/plan"
	userstore "imovan/internal/identity/store/user"
	"imovan/internal/session"
	"imovan/internal/session/manager"
	"imovan/internal/session/metrics"
	sessionstore "imovan/internal/session/store"
	"imovan/internal/session/token"
	dErrors "imovan/pkg/domain-errors"
)

const (
	storageKey   = "device-key-1"
	goodPassword = "correct-horse-battery"
)

type ManagerSuite struct {
	suite.Suite
	ctx       context.Context
	now       time.Time
	users     *userstore.InMemoryStore
	plans     *planstore.InMemoryStore
	records   *sessionstore.InMemoryStore
	publisher *publisher.Memory
	mgr       *manager.Manager
	verified  identity.User
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	s.users = userstore.NewInMemory()
	s.plans = planstore.NewInMemory(
		identity.Plan{ID: "fleet-basic", Name: "Fleet Basic", UserType: identity.UserTypeClient},
	)
	s.records = sessionstore.NewInMemory()
	s.publisher = publisher.NewMemory()

	hash, err := bcrypt.GenerateFromPassword([]byte(goodPassword), bcrypt.MinCost)
	s.Require().NoError(err)

	s.verified = identity.User{
		Profile: identity.Profile{
			ID:        uuid.New(),
			Email:     "ana@frota.example",
			FirstName: "Ana",
			LastName:  "Lima",
			UserType:  identity.UserTypeClient,
			Verified:  true,
			CreatedAt: s.now,
		},
		PasswordHash: string(hash),
	}
	s.Require().NoError(s.users.Create(s.ctx, s.verified))

	pending := identity.User{
		Profile: identity.Profile{
			ID:       uuid.New(),
			Email:    "pending@frota.example",
			UserType: identity.UserTypeProvider,
		},
		PasswordHash: string(hash),
	}
	s.Require().NoError(s.users.Create(s.ctx, pending))

	s.mgr = s.newManager()
}

// newManager builds a manager over the suite's shared stores. Each call gets
// its own empty profile cache.
func (s *ManagerSuite) newManager() *manager.Manager {
	return manager.New(
		s.users,
		s.plans,
		s.records,
		token.NewService("test-signing-key-0123456789abcdef", "imovan", "imovan-app",
			token.WithClock(func() time.Time { return s.now })),
		s.publisher,
		metrics.NewWith(prometheus.NewRegistry()),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		manager.DefaultConfig(),
		manager.WithClock(func() time.Time { return s.now }),
	)
}

func (s *ManagerSuite) login(rememberMe bool) *manager.Snapshot {
	snap, err := s.mgr.Login(s.ctx, storageKey, s.verified.Email, goodPassword, rememberMe)
	s.Require().NoError(err)
	s.Require().True(snap.IsAuthenticated())
	return snap
}

func (s *ManagerSuite) TestLoginSelectsTier() {
	s.Run("remember me writes the durable tier and clears the ephemeral one", func() {
		s.login(false)
		s.Equal(1, s.records.TierLen(session.TierEphemeral))

		snap := s.login(true)

		s.Equal(1, s.records.TierLen(session.TierDurable))
		s.Equal(0, s.records.TierLen(session.TierEphemeral))
		s.True(snap.Session.RememberMe)
		s.Equal(s.now.Add(7*24*time.Hour), snap.Session.ExpiresAt)
	})

	s.Run("default login writes the ephemeral tier and clears the durable one", func() {
		s.login(true)

		snap := s.login(false)

		s.Equal(0, s.records.TierLen(session.TierDurable))
		s.Equal(1, s.records.TierLen(session.TierEphemeral))
		s.False(snap.Session.RememberMe)
		s.Equal(s.now.Add(15*time.Minute), snap.Session.ExpiresAt)
	})

	s.Run("produces a snapshot with role projections", func() {
		snap := s.login(false)

		s.True(snap.IsClient())
		s.False(snap.IsProvider())
		s.False(snap.IsIntegrator())
		s.False(snap.ProfilePending())
		s.NotEmpty(snap.Session.Token)
	})
}

func (s *ManagerSuite) TestLoginRejections() {
	s.Run("unknown email and wrong password are indistinguishable", func() {
		_, errUnknown := s.mgr.Login(s.ctx, storageKey, "nobody@frota.example", goodPassword, false)
		_, errWrong := s.mgr.Login(s.ctx, storageKey, s.verified.Email, "not-the-password", false)

		s.Require().Error(errUnknown)
		s.Require().Error(errWrong)
		s.True(dErrors.HasCode(errUnknown, dErrors.CodeUnauthorized))
		s.True(dErrors.HasCode(errWrong, dErrors.CodeUnauthorized))
		s.Equal(errUnknown.Error(), errWrong.Error())
	})

	s.Run("unconfirmed account is forbidden, not unauthorized", func() {
		_, err := s.mgr.Login(s.ctx, storageKey, "pending@frota.example", goodPassword, false)

		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("failures leave no persisted record and are audited", func() {
		_, _ = s.mgr.Login(s.ctx, storageKey, s.verified.Email, "not-the-password", false)

		s.Equal(0, s.records.TierLen(session.TierDurable))
		s.Equal(0, s.records.TierLen(session.TierEphemeral))

		failed := s.publisher.ByAction(audit.ActionLoginFailed)
		s.Require().NotEmpty(failed)
		s.Equal(s.verified.Email, failed[len(failed)-1].Email)
	})
}

func (s *ManagerSuite) TestRestoreWithinWindow() {
	s.Run("ephemeral session restores just under the fifteen minute window", func() {
		issued := s.login(false)
		s.now = s.now.Add(15*time.Minute - time.Second)

		snap, err := s.mgr.Restore(s.ctx, storageKey)

		s.Require().NoError(err)
		s.Require().True(snap.IsAuthenticated())
		s.Equal(issued.Session.ID, snap.Session.ID)
		s.Equal(s.verified.Email, snap.Profile.Email)
	})

	s.Run("restoring does not renew the validity window", func() {
		s.login(false)
		s.now = s.now.Add(10 * time.Minute)
		_, err := s.mgr.Restore(s.ctx, storageKey)
		s.Require().NoError(err)

		s.now = s.now.Add(6 * time.Minute)
		snap, err := s.mgr.Restore(s.ctx, storageKey)

		s.Require().NoError(err)
		s.False(snap.IsAuthenticated())
	})

	s.Run("durable session restores days later", func() {
		s.login(true)
		s.now = s.now.Add(6 * 24 * time.Hour)

		snap, err := s.mgr.Restore(s.ctx, storageKey)

		s.Require().NoError(err)
		s.True(snap.IsAuthenticated())
	})
}

func (s *ManagerSuite) TestRestoreAfterReload() {
	s.login(true)
	s.now = s.now.Add(3 * 24 * time.Hour)

	// A second manager over the same record store has a cold profile cache,
	// so the restored profile must come from the backing stores.
	reloaded := s.newManager()
	snap, err := reloaded.Restore(s.ctx, storageKey)

	s.Require().NoError(err)
	s.Require().True(snap.IsAuthenticated())
	s.Require().NotNil(snap.Profile)
	s.Equal(s.verified.ID, snap.Profile.ID)
	s.Equal(s.verified.Email, snap.Profile.Email)
	s.False(snap.ProfilePending())
}

func (s *ManagerSuite) TestRestoreTamperedToken() {
	snap := s.login(true)

	forged := *snap.Session
	forged.Token = "not-a-signed-token"
	s.Require().NoError(s.records.Write(s.ctx, storageKey, session.TierDurable, session.NewRecord(forged)))

	restored, err := s.mgr.Restore(s.ctx, storageKey)

	s.Require().NoError(err)
	s.False(restored.IsAuthenticated())
	s.Equal(0, s.records.TierLen(session.TierDurable))
	s.Equal(0, s.records.TierLen(session.TierEphemeral))

	expired := s.publisher.ByAction(audit.ActionSessionExpired)
	s.Require().Len(expired, 1)
	s.Equal("token validation failed", expired[0].Reason)
}

func (s *ManagerSuite) TestRestoreExpired() {
	s.login(false)
	s.now = s.now.Add(16 * time.Minute)

	snap, err := s.mgr.Restore(s.ctx, storageKey)

	s.Require().NoError(err)
	s.False(snap.IsAuthenticated())
	s.Equal(0, s.records.TierLen(session.TierDurable))
	s.Equal(0, s.records.TierLen(session.TierEphemeral))

	expired := s.publisher.ByAction(audit.ActionSessionExpired)
	s.Require().Len(expired, 1)
	s.Equal(s.verified.ID.String(), expired[0].UserID)

	// A second restore finds nothing and stays quiet.
	snap, err = s.mgr.Restore(s.ctx, storageKey)
	s.Require().NoError(err)
	s.False(snap.IsAuthenticated())
	s.Len(s.publisher.ByAction(audit.ActionSessionExpired), 1)
}

func (s *ManagerSuite) TestRestoreUnknownKey() {
	snap, err := s.mgr.Restore(s.ctx, "never-seen")

	s.Require().NoError(err)
	s.False(snap.IsAuthenticated())
	s.False(snap.ProfilePending())
}

func (s *ManagerSuite) TestRegister() {
	input := manager.RegisterInput{
		Email:     "novo@frota.example",
		Password:  "long-enough-secret",
		FirstName: "Bruno",
		LastName:  "Souza",
		UserType:  identity.UserTypeClient,
	}

	s.Run("creates the profile and audits it", func() {
		profile, err := s.mgr.Register(s.ctx, input)

		s.Require().NoError(err)
		s.Equal(input.Email, profile.Email)
		s.False(profile.Verified)
		s.Require().Len(s.publisher.ByAction(audit.ActionUserRegistered), 1)

		stored, err := s.users.FindByEmail(s.ctx, input.Email)
		s.Require().NoError(err)
		s.NoError(bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(input.Password)))
	})

	s.Run("rejects a duplicate email with a conflict", func() {
		_, err := s.mgr.Register(s.ctx, input)

		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("rejects a short password before touching the store", func() {
		bad := input
		bad.Email = "curto@frota.example"
		bad.Password = "short"

		_, err := s.mgr.Register(s.ctx, bad)

		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("registering does not sign the user in", func() {
		s.Equal(0, s.records.TierLen(session.TierDurable))
		s.Equal(0, s.records.TierLen(session.TierEphemeral))
	})
}

func (s *ManagerSuite) TestRegisterPlanAssociation() {
	base := manager.RegisterInput{
		Password:  "long-enough-secret",
		FirstName: "Carla",
		UserType:  identity.UserTypeClient,
	}

	s.Run("associates a known plan in the secondary write", func() {
		in := base
		in.Email = "carla@frota.example"
		in.PlanID = "fleet-basic"

		profile, err := s.mgr.Register(s.ctx, in)

		s.Require().NoError(err)
		s.Equal("fleet-basic", profile.PlanID)
	})

	s.Run("a failed association is audited but does not fail the signup", func() {
		in := base
		in.Email = "diego@frota.example"
		in.PlanID = "does-not-exist"

		profile, err := s.mgr.Register(s.ctx, in)

		s.Require().NoError(err)
		s.Empty(profile.PlanID)
		s.Require().Len(s.publisher.ByAction(audit.ActionPlanAssociationFailed), 1)

		stored, err := s.users.FindByEmail(s.ctx, in.Email)
		s.Require().NoError(err)
		s.Empty(stored.PlanID)
	})
}

func (s *ManagerSuite) TestLogout() {
	s.Run("clears both tiers and audits", func() {
		s.login(true)

		s.Require().NoError(s.mgr.Logout(s.ctx, storageKey))

		s.Equal(0, s.records.TierLen(session.TierDurable))
		s.Equal(0, s.records.TierLen(session.TierEphemeral))
		s.Len(s.publisher.ByAction(audit.ActionLogout), 1)

		snap, err := s.mgr.Restore(s.ctx, storageKey)
		s.Require().NoError(err)
		s.False(snap.IsAuthenticated())
	})

	s.Run("is idempotent without a session", func() {
		s.Require().NoError(s.mgr.Logout(s.ctx, storageKey))
		s.Len(s.publisher.ByAction(audit.ActionLogout), 1)
	})
}

func (s *ManagerSuite) TestUpdateProfile() {
	s.Run("fails loudly without an active session", func() {
		first := "Renamed"
		_, err := s.mgr.UpdateProfile(s.ctx, storageKey, identity.ProfileUpdate{FirstName: &first})

		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("updates partial fields and returns the fresh profile", func() {
		s.login(false)
		first := "Renamed"

		profile, err := s.mgr.UpdateProfile(s.ctx, storageKey, identity.ProfileUpdate{FirstName: &first})

		s.Require().NoError(err)
		s.Equal("Renamed", profile.FirstName)
		s.Equal(s.verified.LastName, profile.LastName)
		s.Len(s.publisher.ByAction(audit.ActionProfileUpdated), 1)

		snap, err := s.mgr.Restore(s.ctx, storageKey)
		s.Require().NoError(err)
		s.Equal("Renamed", snap.Profile.FirstName)
	})

	s.Run("rejects an empty update", func() {
		s.login(false)

		_, err := s.mgr.UpdateProfile(s.ctx, storageKey, identity.ProfileUpdate{})

		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects an unknown plan", func() {
		s.login(false)
		planID := "does-not-exist"

		_, err := s.mgr.UpdateProfile(s.ctx, storageKey, identity.ProfileUpdate{PlanID: &planID})

		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ManagerSuite) TestRefreshProfile() {
	s.Run("requires an active session", func() {
		_, err := s.mgr.RefreshProfile(s.ctx, storageKey)

		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("bypasses the cache and reflects backing-store changes", func() {
		s.login(false)

		last := "Changed-Behind-The-Cache"
		_, err := s.users.Update(s.ctx, s.verified.ID, identity.ProfileUpdate{LastName: &last})
		s.Require().NoError(err)

		profile, err := s.mgr.RefreshProfile(s.ctx, storageKey)

		s.Require().NoError(err)
		s.Equal(last, profile.LastName)
	})
}
