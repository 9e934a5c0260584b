package manager_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"imovan/internal/audit/publisher"
	"imovan/internal/identity"
	"imovan/internal/session"
	"imovan/internal/session/manager"
	"imovan/internal/session/manager/mocks"
	"imovan/internal/session/metrics"
	"imovan/internal/session/token"
	dErrors "imovan/pkg/domain-errors"
	"imovan/pkg/platform/sentinel"
)

type managerMocks struct {
	profiles *mocks.MockProfileStore
	plans    *mocks.MockPlanStore
	records  *mocks.MockRecordStore
	tokens   *mocks.MockTokenService
}

func newMockedManager(t *testing.T, now time.Time) (*manager.Manager, managerMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := managerMocks{
		profiles: mocks.NewMockProfileStore(ctrl),
		plans:    mocks.NewMockPlanStore(ctrl),
		records:  mocks.NewMockRecordStore(ctrl),
		tokens:   mocks.NewMockTokenService(ctrl),
	}
	mgr := manager.New(
		m.profiles,
		m.plans,
		m.records,
		m.tokens,
		publisher.NewMemory(),
		metrics.NewWith(prometheus.NewRegistry()),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		manager.DefaultConfig(),
		manager.WithClock(func() time.Time { return now }),
	)
	return mgr, m
}

func liveRecord(now time.Time) session.Record {
	return session.NewRecord(session.Session{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	})
}

func TestRestoreStoreUnavailable(t *testing.T) {
	now := time.Now()
	mgr, m := newMockedManager(t, now)

	m.records.EXPECT().Read(gomock.Any(), "key").Return(session.Record{}, session.Tier(""), sentinel.ErrUnavailable)

	_, err := mgr.Restore(context.Background(), "key")

	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestRestoreProfileFetchFailureIsPending(t *testing.T) {
	now := time.Now()
	mgr, m := newMockedManager(t, now)
	rec := liveRecord(now)

	m.records.EXPECT().Read(gomock.Any(), "key").Return(rec, session.TierDurable, nil)
	m.tokens.EXPECT().Validate(rec.Session.Token).Return(&token.Claims{}, nil)
	m.profiles.EXPECT().FindByID(gomock.Any(), rec.Session.UserID).Return(identity.User{}, sentinel.ErrUnavailable)

	snap, err := mgr.Restore(context.Background(), "key")

	require.NoError(t, err)
	assert.True(t, snap.IsAuthenticated())
	assert.True(t, snap.ProfilePending())
	assert.False(t, snap.IsClient())
}

func TestLoginRecordWriteFailure(t *testing.T) {
	now := time.Now()
	mgr, m := newMockedManager(t, now)

	hash, err := bcrypt.GenerateFromPassword([]byte("pw-for-tests"), bcrypt.MinCost)
	require.NoError(t, err)
	user := identity.User{
		Profile: identity.Profile{
			ID:       uuid.New(),
			Email:    "ana@frota.example",
			UserType: identity.UserTypeClient,
			Verified: true,
		},
		PasswordHash: string(hash),
	}
	m.profiles.EXPECT().FindByEmail(gomock.Any(), user.Email).Return(user, nil)
	m.tokens.EXPECT().Mint(user.ID, gomock.Any(), string(identity.UserTypeClient), gomock.Any()).Return("signed", nil)
	m.records.EXPECT().Write(gomock.Any(), "key", session.TierEphemeral, gomock.Any()).Return(sentinel.ErrUnavailable)

	_, err = mgr.Login(context.Background(), "key", user.Email, "pw-for-tests", false)

	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestLogoutClearFailure(t *testing.T) {
	now := time.Now()
	mgr, m := newMockedManager(t, now)

	m.records.EXPECT().Read(gomock.Any(), "key").Return(session.Record{}, session.Tier(""), sentinel.ErrNotFound)
	m.records.EXPECT().Clear(gomock.Any(), "key").Return(sentinel.ErrUnavailable)

	err := mgr.Logout(context.Background(), "key")

	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}
