// Package manager owns authentication state. Every session mutation — login,
// logout, restore, registration — funnels through the Manager, which is the
// single writer of the two persistence tiers. Nothing else touches the record
// store, so the tiers cannot disagree about who is signed in.
package manager

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"imovan/internal/audit"
	"imovan/internal/identity"
	"imovan/internal/session"
	"imovan/internal/session/metrics"
	"imovan/internal/session/token"
	dErrors "imovan/pkg/domain-errors"
	"imovan/pkg/platform/sentinel"
	"imovan/pkg/requestcontext"
)

//go:generate mockgen -source=manager.go -destination=mocks/mocks.go -package=mocks

// ProfileStore is the slice of the identity store the manager needs.
type ProfileStore interface {
	Create(ctx context.Context, user identity.User) error
	FindByID(ctx context.Context, id uuid.UUID) (identity.User, error)
	FindByEmail(ctx context.Context, email string) (identity.User, error)
	Update(ctx context.Context, id uuid.UUID, upd identity.ProfileUpdate) (identity.User, error)
	UpdatePlan(ctx context.Context, id uuid.UUID, planID string) error
}

// PlanStore validates plan associations.
type PlanStore interface {
	FindByID(ctx context.Context, id string) (identity.Plan, error)
}

// RecordStore persists session records across the two tiers.
type RecordStore interface {
	Write(ctx context.Context, key string, tier session.Tier, rec session.Record) error
	Read(ctx context.Context, key string) (session.Record, session.Tier, error)
	Clear(ctx context.Context, key string) error
}

// TokenService signs session tokens and verifies them when a persisted
// record is restored.
type TokenService interface {
	Mint(userID, sessionID uuid.UUID, userType string, expiresIn time.Duration) (string, error)
	Validate(tokenString string) (*token.Claims, error)
}

// Clock abstracts time.Now for testability.
type Clock func() time.Time

// Config carries the retention windows for the two tiers.
type Config struct {
	// DurableTTL is the validity window for "remember me" sessions.
	DurableTTL time.Duration
	// EphemeralTTL is the validity window for default sessions.
	EphemeralTTL time.Duration
}

// DefaultConfig matches the product retention policy: seven days durable,
// fifteen minutes ephemeral.
func DefaultConfig() Config {
	return Config{
		DurableTTL:   7 * 24 * time.Hour,
		EphemeralTTL: 15 * time.Minute,
	}
}

// Manager authenticates users, persists and restores session state, and
// mutates the backing profile record.
type Manager struct {
	profiles  ProfileStore
	plans     PlanStore
	records   RecordStore
	tokens    TokenService
	publisher audit.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	cfg       Config
	clock     Clock
	cache     *profileCache
	tracer    trace.Tracer
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the clock used for expiry decisions.
func WithClock(clock Clock) Option {
	return func(m *Manager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

func New(
	profiles ProfileStore,
	plans PlanStore,
	records RecordStore,
	tokens TokenService,
	publisher audit.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
	cfg Config,
	opts ...Option,
) *Manager {
	mgr := &Manager{
		profiles:  profiles,
		plans:     plans,
		records:   records,
		tokens:    tokens,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		cfg:       cfg,
		clock:     time.Now,
		cache:     newProfileCache(),
		tracer:    otel.Tracer("imovan/session/manager"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(mgr)
		}
	}
	return mgr
}

// Snapshot is the manager's view of one client's authentication state at a
// point in time. Role flags are pure projections of the cached profile.
type Snapshot struct {
	Session *session.Session
	Profile *identity.Profile
}

// IsAuthenticated reports whether a live session is present.
func (s *Snapshot) IsAuthenticated() bool {
	return s != nil && s.Session != nil
}

// ProfilePending reports a live session whose profile has not been fetched
// yet. The guard must not make a role decision in this state.
func (s *Snapshot) ProfilePending() bool {
	return s.IsAuthenticated() && s.Profile == nil
}

func (s *Snapshot) IsClient() bool {
	return s.IsAuthenticated() && s.Profile != nil && s.Profile.UserType == identity.UserTypeClient
}

func (s *Snapshot) IsProvider() bool {
	return s.IsAuthenticated() && s.Profile != nil && s.Profile.UserType == identity.UserTypeProvider
}

func (s *Snapshot) IsIntegrator() bool {
	return s.IsAuthenticated() && s.Profile != nil && s.Profile.UserType == identity.UserTypeIntegrator
}

// Restore reads the persisted record for key — durable tier first, then
// ephemeral — and adopts it when still valid. Expired or missing records
// leave the caller unauthenticated with both tiers empty. Reading never
// renews the validity window.
func (m *Manager) Restore(ctx context.Context, key string) (*Snapshot, error) {
	ctx, span := m.tracer.Start(ctx, "session.restore")
	defer span.End()

	rec, _, err := m.records.Read(ctx, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return &Snapshot{}, nil
		}
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read session record")
	}

	now := m.clock()
	if rec.Expired(now) {
		m.expireRecord(ctx, key, rec, "record expired")
		return &Snapshot{}, nil
	}

	// The record's outer expiry is client-writable state; the signed token
	// inside it is not. A record whose token fails verification is
	// discarded the same way an expired one is.
	if _, err := m.tokens.Validate(rec.Session.Token); err != nil {
		m.logger.WarnContext(ctx, "session token failed validation",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		m.expireRecord(ctx, key, rec, "token validation failed")
		return &Snapshot{}, nil
	}

	sess := rec.Session
	snap := &Snapshot{Session: &sess}

	profile, err := m.loadProfile(ctx, sess.UserID)
	if err != nil {
		// Session stands on its own; the guard treats a missing profile as
		// profile-pending rather than unauthenticated.
		m.logger.WarnContext(ctx, "profile fetch failed during restore",
			"user_id", sess.UserID.String(),
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		m.metrics.IncrementSessionsRestored()
		return snap, nil
	}

	snap.Profile = profile
	m.metrics.IncrementSessionsRestored()
	return snap, nil
}

func (m *Manager) expireRecord(ctx context.Context, key string, rec session.Record, reason string) {
	if err := m.records.Clear(ctx, key); err != nil {
		m.logger.WarnContext(ctx, "failed to clear expired session record",
			"error", err.Error(),
		)
	}
	m.cache.invalidate(rec.Session.UserID)
	m.metrics.IncrementSessionsExpired()
	m.publish(ctx, audit.Event{
		Action:    audit.ActionSessionExpired,
		Timestamp: m.clock(),
		UserID:    rec.Session.UserID.String(),
		SessionID: rec.Session.ID.String(),
		Reason:    reason,
	})
}

// Login verifies credentials and persists a fresh session record in the tier
// selected by rememberMe, clearing the other tier. Navigation is the
// caller's concern.
func (m *Manager) Login(ctx context.Context, key, email, password string, rememberMe bool) (*Snapshot, error) {
	ctx, span := m.tracer.Start(ctx, "session.login")
	defer span.End()

	user, err := m.profiles.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, m.loginFailed(ctx, email, "unknown email",
				dErrors.New(dErrors.CodeUnauthorized, "invalid email or password"))
		}
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up account")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, m.loginFailed(ctx, email, "wrong password",
			dErrors.New(dErrors.CodeUnauthorized, "invalid email or password"))
	}

	if !user.Verified {
		return nil, m.loginFailed(ctx, email, "account not confirmed",
			dErrors.New(dErrors.CodeForbidden, "account pending email confirmation"))
	}

	tier := session.TierEphemeral
	ttl := m.cfg.EphemeralTTL
	if rememberMe {
		tier = session.TierDurable
		ttl = m.cfg.DurableTTL
	}

	now := m.clock()
	sess := session.Session{
		ID:          uuid.New(),
		UserID:      user.ID,
		RememberMe:  rememberMe,
		DeviceLabel: requestcontext.DeviceLabel(ctx),
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
		LastSeenAt:  now,
	}

	signed, err := m.tokens.Mint(user.ID, sess.ID, string(user.UserType), ttl)
	if err != nil {
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint session token")
	}
	sess.Token = signed

	if err := m.records.Write(ctx, key, tier, session.NewRecord(sess)); err != nil {
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist session")
	}

	profile := user.Profile
	m.cache.put(profile, sess.ExpiresAt)
	m.metrics.IncrementLogins(string(tier))
	m.publish(ctx, audit.Event{
		Action:      audit.ActionLoginSucceeded,
		Timestamp:   now,
		UserID:      user.ID.String(),
		Email:       user.Email,
		SessionID:   sess.ID.String(),
		RequestID:   requestcontext.RequestID(ctx),
		DeviceLabel: sess.DeviceLabel,
	})

	return &Snapshot{Session: &sess, Profile: &profile}, nil
}

func (m *Manager) loginFailed(ctx context.Context, email, reason string, err error) error {
	m.metrics.IncrementLoginFailures()
	m.publish(ctx, audit.Event{
		Action:    audit.ActionLoginFailed,
		Timestamp: m.clock(),
		Email:     email,
		RequestID: requestcontext.RequestID(ctx),
		Reason:    reason,
	})
	return err
}

// RegisterInput is the validated signup payload.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	UserType  identity.UserType
	PlanID    string
}

// Register creates a profile and, in a second round trip, associates the
// chosen plan. A failed plan association is logged and audited but does not
// fail the registration.
func (m *Manager) Register(ctx context.Context, in RegisterInput) (*identity.Profile, error) {
	ctx, span := m.tracer.Start(ctx, "session.register")
	defer span.End()

	profileInput := identity.NewProfileInput{
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		UserType:  in.UserType,
	}
	if err := profileInput.Validate(); err != nil {
		return nil, err
	}
	if len(in.Password) < 8 {
		return nil, dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	user := identity.User{
		Profile: identity.Profile{
			ID:        uuid.New(),
			Email:     in.Email,
			FirstName: in.FirstName,
			LastName:  in.LastName,
			UserType:  in.UserType,
			CreatedAt: m.clock(),
		},
		PasswordHash: string(hash),
	}

	if err := m.profiles.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "email already registered")
		}
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create account")
	}

	m.metrics.IncrementUsersRegistered()
	m.publish(ctx, audit.Event{
		Action:    audit.ActionUserRegistered,
		Timestamp: m.clock(),
		UserID:    user.ID.String(),
		Email:     user.Email,
		RequestID: requestcontext.RequestID(ctx),
	})

	if in.PlanID != "" {
		m.associatePlan(ctx, &user, in.PlanID)
	}

	profile := user.Profile
	return &profile, nil
}

// associatePlan performs the secondary plan write. Failures are non-fatal.
func (m *Manager) associatePlan(ctx context.Context, user *identity.User, planID string) {
	if _, err := m.plans.FindByID(ctx, planID); err != nil {
		m.planAssociationFailed(ctx, user, planID, err)
		return
	}
	if err := m.profiles.UpdatePlan(ctx, user.ID, planID); err != nil {
		m.planAssociationFailed(ctx, user, planID, err)
		return
	}
	user.PlanID = planID
}

func (m *Manager) planAssociationFailed(ctx context.Context, user *identity.User, planID string, err error) {
	m.logger.WarnContext(ctx, "plan association failed after signup",
		"user_id", user.ID.String(),
		"plan_id", planID,
		"error", err.Error(),
	)
	m.publish(ctx, audit.Event{
		Action:    audit.ActionPlanAssociationFailed,
		Timestamp: m.clock(),
		UserID:    user.ID.String(),
		Reason:    err.Error(),
	})
}

// Logout clears both tiers and drops the cached profile. Idempotent: logging
// out without a session is not an error. All session teardown funnels
// through here.
func (m *Manager) Logout(ctx context.Context, key string) error {
	ctx, span := m.tracer.Start(ctx, "session.logout")
	defer span.End()

	rec, _, err := m.records.Read(ctx, key)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		span.RecordError(err)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read session record")
	}

	if err := m.records.Clear(ctx, key); err != nil {
		span.RecordError(err)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear session")
	}

	if rec.Session.ID != uuid.Nil {
		m.cache.invalidate(rec.Session.UserID)
		m.metrics.IncrementLogouts()
		m.publish(ctx, audit.Event{
			Action:    audit.ActionLogout,
			Timestamp: m.clock(),
			UserID:    rec.Session.UserID.String(),
			SessionID: rec.Session.ID.String(),
			RequestID: requestcontext.RequestID(ctx),
		})
	}
	return nil
}

// RefreshProfile re-fetches the profile behind the active session, bypassing
// and replacing the cache.
func (m *Manager) RefreshProfile(ctx context.Context, key string) (*identity.Profile, error) {
	snap, err := m.Restore(ctx, key)
	if err != nil {
		return nil, err
	}
	if !snap.IsAuthenticated() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "no active session")
	}

	m.cache.invalidate(snap.Session.UserID)
	profile, err := m.loadProfile(ctx, snap.Session.UserID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to refresh profile")
	}
	return profile, nil
}

// UpdateProfile writes partial fields to the profile record. It fails loudly
// when no session is active, then refreshes the cache on success.
func (m *Manager) UpdateProfile(ctx context.Context, key string, upd identity.ProfileUpdate) (*identity.Profile, error) {
	ctx, span := m.tracer.Start(ctx, "session.update_profile")
	defer span.End()

	snap, err := m.Restore(ctx, key)
	if err != nil {
		return nil, err
	}
	if !snap.IsAuthenticated() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "no active session")
	}
	if upd.Empty() {
		return nil, dErrors.New(dErrors.CodeValidation, "no fields to update")
	}

	if upd.PlanID != nil && *upd.PlanID != "" {
		if _, err := m.plans.FindByID(ctx, *upd.PlanID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeValidation, "unknown plan")
			}
			span.RecordError(err)
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to validate plan")
		}
	}

	user, err := m.profiles.Update(ctx, snap.Session.UserID, upd)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "profile not found")
		}
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update profile")
	}

	m.cache.put(user.Profile, snap.Session.ExpiresAt)
	m.metrics.IncrementProfileUpdates()
	m.publish(ctx, audit.Event{
		Action:    audit.ActionProfileUpdated,
		Timestamp: m.clock(),
		UserID:    user.ID.String(),
		RequestID: requestcontext.RequestID(ctx),
	})

	profile := user.Profile
	return &profile, nil
}

func (m *Manager) loadProfile(ctx context.Context, userID uuid.UUID) (*identity.Profile, error) {
	if profile, ok := m.cache.get(userID, m.clock()); ok {
		return profile, nil
	}
	user, err := m.profiles.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	m.cache.put(user.Profile, m.clock().Add(5*time.Minute))
	return &user.Profile, nil
}

// publish sends an audit event best-effort. A failing sink never fails the
// primary operation.
func (m *Manager) publish(ctx context.Context, event audit.Event) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.Publish(ctx, event); err != nil {
		m.logger.WarnContext(ctx, "audit publish failed",
			"action", string(event.Action),
			"error", err.Error(),
		)
	}
}
