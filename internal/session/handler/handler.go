// Package handler exposes the session manager over HTTP: login, register,
// logout, session restore, and profile reads and writes.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"imovan/internal/identity"
	"imovan/internal/platform/middleware"
	pmetrics "imovan/internal/platform/metrics"
	"imovan/internal/routes/guard"
	"imovan/internal/session/manager"
	"imovan/internal/transport/http/shared"
	dErrors "imovan/pkg/domain-errors"
	"imovan/pkg/requestcontext"
)

// Handler is the thin HTTP layer over the session manager. It owns the
// storage-key cookie; everything else is delegated.
type Handler struct {
	manager *manager.Manager
	logger  *slog.Logger
	metrics *pmetrics.Metrics

	// durableTTL bounds the cookie lifetime for remember-me logins. The
	// ephemeral tier rides on a browser-session cookie instead.
	durableTTL time.Duration
}

func New(mgr *manager.Manager, logger *slog.Logger, metrics *pmetrics.Metrics, durableTTL time.Duration) *Handler {
	return &Handler{
		manager:    mgr,
		logger:     logger,
		metrics:    metrics,
		durableTTL: durableTTL,
	}
}

// Register mounts the auth routes with the full middleware chain.
func (h *Handler) Register(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Use(middleware.Recovery(h.logger))
		r.Use(middleware.RequestID)
		r.Use(middleware.Logger(h.logger))
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.Latency(h.metrics))
		r.Use(middleware.Device)

		r.Post("/login", h.handleLogin)
		r.Post("/register", h.handleRegister)
		r.Post("/logout", h.handleLogout)
		r.Get("/session", h.handleSession)
		r.Post("/profile/refresh", h.handleRefreshProfile)
		r.Patch("/profile", h.handleUpdateProfile)
	})
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

type sessionResponse struct {
	Authenticated bool              `json:"authenticated"`
	ExpiresAt     *time.Time        `json:"expires_at,omitempty"`
	Profile       *identity.Profile `json:"profile,omitempty"`
}

func snapshotResponse(snap *manager.Snapshot) sessionResponse {
	resp := sessionResponse{Authenticated: snap.IsAuthenticated()}
	if snap.IsAuthenticated() {
		resp.ExpiresAt = &snap.Session.ExpiresAt
		resp.Profile = snap.Profile
	}
	return resp
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if !govalidator.IsEmail(req.Email) {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid email"))
		return
	}
	if req.Password == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "password is required"))
		return
	}

	key := h.storageKey(r)
	snap, err := h.manager.Login(ctx, key, req.Email, req.Password, req.RememberMe)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) || dErrors.HasCode(err, dErrors.CodeForbidden) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "login failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "login failed"))
		return
	}

	h.setStorageKeyCookie(w, key, req.RememberMe)
	shared.WriteJSON(w, http.StatusOK, snapshotResponse(snap))
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	UserType  string `json:"user_type"`
	PlanID    string `json:"plan_id,omitempty"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if !govalidator.IsEmail(req.Email) {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid email"))
		return
	}

	profile, err := h.manager.Register(ctx, manager.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		UserType:  identity.UserType(req.UserType),
		PlanID:    req.PlanID,
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeValidation) || dErrors.HasCode(err, dErrors.CodeConflict) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "registration failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "registration failed"))
		return
	}

	shared.WriteJSON(w, http.StatusCreated, profile)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if cookie, err := r.Cookie(guard.SessionKeyCookie); err == nil && cookie.Value != "" {
		if err := h.manager.Logout(ctx, cookie.Value); err != nil {
			h.logger.ErrorContext(ctx, "logout failed",
				"request_id", requestcontext.RequestID(ctx),
				"error", err.Error(),
			)
			shared.WriteError(w, err)
			return
		}
	}

	h.clearStorageKeyCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cookie, err := r.Cookie(guard.SessionKeyCookie)
	if err != nil || cookie.Value == "" {
		shared.WriteJSON(w, http.StatusOK, sessionResponse{Authenticated: false})
		return
	}

	snap, err := h.manager.Restore(ctx, cookie.Value)
	if err != nil {
		h.logger.ErrorContext(ctx, "session restore failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, snapshotResponse(snap))
}

func (h *Handler) handleRefreshProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cookie, err := r.Cookie(guard.SessionKeyCookie)
	if err != nil || cookie.Value == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "no active session"))
		return
	}

	profile, err := h.manager.RefreshProfile(ctx, cookie.Value)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cookie, err := r.Cookie(guard.SessionKeyCookie)
	if err != nil || cookie.Value == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "no active session"))
		return
	}

	var upd identity.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	profile, err := h.manager.UpdateProfile(ctx, cookie.Value, upd)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, profile)
}

// storageKey returns the client's existing storage key or mints a new one.
// The key only addresses the persisted record; possession of it without the
// record is worthless.
func (h *Handler) storageKey(r *http.Request) string {
	if cookie, err := r.Cookie(guard.SessionKeyCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return uuid.NewString()
}

// setStorageKeyCookie mirrors the tier choice: remember-me gets a persistent
// cookie bounded by the durable window, the default gets a browser-session
// cookie.
func (h *Handler) setStorageKeyCookie(w http.ResponseWriter, key string, rememberMe bool) {
	cookie := &http.Cookie{
		Name:     guard.SessionKeyCookie,
		Value:    key,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if rememberMe {
		cookie.MaxAge = int(h.durableTTL.Seconds())
	}
	http.SetCookie(w, cookie)
}

func (h *Handler) clearStorageKeyCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     guard.SessionKeyCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
