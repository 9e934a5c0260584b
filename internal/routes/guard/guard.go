// Package guard gates navigation over the route registry. The decision is a
// pure function of the route descriptor and the caller's session snapshot;
// the middleware wraps it with cookie handling, redirects, and audit.
package guard

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"imovan/internal/audit"
	"imovan/internal/identity"
	"imovan/internal/routes"
	"imovan/internal/routes/metrics"
	"imovan/internal/session/manager"
	"imovan/internal/transport/http/shared"
	dErrors "imovan/pkg/domain-errors"
	"imovan/pkg/requestcontext"
)

// SessionKeyCookie names the cookie carrying the client's storage key. The
// key addresses the persisted session record; it is not itself a credential.
const SessionKeyCookie = "imovan_session_key"

// RedirectParam preserves the attempted destination across the login bounce.
const RedirectParam = "redirect_to"

// Verdict is the outcome class of a guard decision.
type Verdict string

const (
	// VerdictGranted renders the protected resource.
	VerdictGranted Verdict = "granted"
	// VerdictRedirectLogin sends an unauthenticated caller to the login
	// route, preserving the attempted destination.
	VerdictRedirectLogin Verdict = "redirect_login"
	// VerdictRedirectLanding sends a wrongly-typed caller to their own
	// role's landing path.
	VerdictRedirectLanding Verdict = "redirect_landing"
	// VerdictWait means a session exists but the profile has not been
	// fetched yet, so no role decision can be made. Callers retry.
	VerdictWait Verdict = "wait"
)

// Decision is the guard's answer for one navigation.
type Decision struct {
	Verdict  Verdict
	Location string
	Reason   string
}

// Decide evaluates one navigation. destination is the URI to return to after
// login; when empty the descriptor's path is used. The function holds the
// whole state machine: every branch below is a terminal state, and it keeps
// no memory of prior decisions.
func Decide(route routes.Descriptor, destination string, snap *manager.Snapshot) Decision {
	if !route.RequiresAuth {
		return Decision{Verdict: VerdictGranted}
	}

	if !snap.IsAuthenticated() {
		if destination == "" {
			destination = route.Path
		}
		loc := routes.PathLogin + "?" + RedirectParam + "=" + url.QueryEscape(destination)
		return Decision{Verdict: VerdictRedirectLogin, Location: loc, Reason: "unauthenticated"}
	}

	required := route.RequiredType()
	if required == "" || required == identity.UserTypeAny {
		return Decision{Verdict: VerdictGranted}
	}

	// A role is required but the profile is not in hand yet. Deciding now
	// would risk bouncing the user off a route they are entitled to.
	if snap.ProfilePending() {
		return Decision{Verdict: VerdictWait, Reason: "profile pending"}
	}

	if snap.Profile.UserType == required {
		return Decision{Verdict: VerdictGranted}
	}

	return Decision{
		Verdict:  VerdictRedirectLanding,
		Location: routes.LandingPath(snap.Profile.UserType),
		Reason:   "role mismatch",
	}
}

// Guard applies Decide to incoming requests.
type Guard struct {
	manager   *manager.Manager
	registry  *routes.Registry
	publisher audit.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func New(
	mgr *manager.Manager,
	registry *routes.Registry,
	publisher audit.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Guard {
	return &Guard{
		manager:   mgr,
		registry:  registry,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// Middleware guards every request whose path is in the registry. Paths the
// registry does not know are passed through untouched; the API surface under
// /auth is registered separately and guards itself.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, ok := g.registry.RouteByPath(r.URL.Path)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		snap := &manager.Snapshot{}
		if cookie, err := r.Cookie(SessionKeyCookie); err == nil && cookie.Value != "" {
			restored, err := g.manager.Restore(ctx, cookie.Value)
			if err != nil {
				g.logger.ErrorContext(ctx, "session restore failed in guard",
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(ctx),
					"error", err.Error(),
				)
				shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "session restore failed"))
				return
			}
			snap = restored
		}

		decision := Decide(route, r.URL.RequestURI(), snap)
		switch decision.Verdict {
		case VerdictGranted:
			g.metrics.IncrementGranted()
			if snap.IsAuthenticated() {
				ctx = requestcontext.WithUserID(ctx, snap.Session.UserID.String())
				ctx = requestcontext.WithSessionID(ctx, snap.Session.ID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))

		case VerdictRedirectLogin:
			g.metrics.IncrementDenied("unauthenticated")
			http.Redirect(w, r, decision.Location, http.StatusSeeOther)

		case VerdictRedirectLanding:
			g.metrics.IncrementDenied("role_mismatch")
			g.auditDenied(r, snap)
			http.Redirect(w, r, decision.Location, http.StatusSeeOther)

		case VerdictWait:
			g.metrics.IncrementDenied("profile_pending")
			w.Header().Set("Retry-After", "1")
			shared.WriteJSON(w, http.StatusServiceUnavailable, shared.ErrorResponse{
				Error: "profile not loaded yet, retry",
			})
		}
	})
}

func (g *Guard) auditDenied(r *http.Request, snap *manager.Snapshot) {
	if g.publisher == nil {
		return
	}
	ctx := r.Context()
	event := audit.Event{
		Action:    audit.ActionAccessDenied,
		Timestamp: time.Now(),
		Path:      r.URL.Path,
		RequestID: requestcontext.RequestID(ctx),
	}
	if snap.IsAuthenticated() {
		event.UserID = snap.Session.UserID.String()
		event.SessionID = snap.Session.ID.String()
	}
	if err := g.publisher.Publish(ctx, event); err != nil {
		g.logger.WarnContext(ctx, "audit publish failed",
			"action", string(event.Action),
			"error", err.Error(),
		)
	}
}
