package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"imovan/internal/audit/publisher"
	"imovan/internal/identity"
	planstore "imovan/internal/identity/store/plan"
	userstore "imovan/internal/identity/store/user"
	"imovan/internal/platform/metrics"
	"imovan/internal/routes"
	"imovan/internal/routes/guard"
	routehandler "imovan/internal/routes/handler"
	routemetrics "imovan/internal/routes/metrics"
	"imovan/internal/session/handler"
	"imovan/internal/session/manager"
	sessionmetrics "imovan/internal/session/metrics"
	sessionstore "imovan/internal/session/store"
	"imovan/internal/session/token"
	"imovan/pkg/testutil"
)

// TestSignInJourney walks a fleet manager through the full navigation loop:
// bounced off a guarded page, signed in, granted, signed out, bounced again.
func TestSignInJourney(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	users := userstore.NewInMemory()
	hash, err := bcrypt.GenerateFromPassword([]byte("pw-for-tests"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	if err := users.Create(context.Background(), identity.User{
		Profile: identity.Profile{
			ID:       uuid.New(),
			Email:    "ana@frota.example",
			UserType: identity.UserTypeClient,
			Verified: true,
		},
		PasswordHash: string(hash),
	}); err != nil {
		t.Fatalf("seeding user: %v", err)
	}

	mgr := manager.New(
		users,
		planstore.NewInMemory(),
		sessionstore.NewInMemory(),
		token.NewService("test-signing-key-0123456789abcdef", "imovan", "imovan-app"),
		publisher.NewMemory(),
		sessionmetrics.NewWith(prometheus.NewRegistry()),
		logger,
		manager.DefaultConfig(),
	)

	registry := routes.Default()
	g := guard.New(mgr, registry, publisher.NewMemory(), routemetrics.NewWith(prometheus.NewRegistry()), logger)

	router := chi.NewRouter()
	handler.New(mgr, logger, metrics.NewWith(prometheus.NewRegistry()), 7*24*time.Hour).Register(router)
	routehandler.New(registry, g, users, logger, metrics.NewWith(prometheus.NewRegistry())).Register(router)

	var key *http.Cookie

	testutil.Given(t, "a fleet manager who has not signed in", func(t *testing.T) {
		testutil.When(t, "visiting the fleet dashboard", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, routes.PathFleetDashboard, nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			testutil.Then(t, "it should bounce to login preserving the destination", func(t *testing.T) {
				if rec.Code != http.StatusSeeOther {
					t.Fatalf("expected status %d, got %d", http.StatusSeeOther, rec.Code)
				}
				want := routes.PathLogin + "?" + guard.RedirectParam + "=" + url.QueryEscape(routes.PathFleetDashboard)
				if loc := rec.Header().Get("Location"); loc != want {
					t.Fatalf("expected redirect to %q, got %q", want, loc)
				}
			})
		})

		testutil.When(t, "signing in with valid credentials", func(t *testing.T) {
			body := `{"email":"ana@frota.example","password":"pw-for-tests","remember_me":true}`
			req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			testutil.Then(t, "it should set the storage-key cookie", func(t *testing.T) {
				if rec.Code != http.StatusOK {
					t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
				}
				for _, c := range rec.Result().Cookies() {
					if c.Name == guard.SessionKeyCookie && c.Value != "" {
						key = c
					}
				}
				if key == nil {
					t.Fatalf("expected a %s cookie in the login response", guard.SessionKeyCookie)
				}
			})
		})
	})

	testutil.Given(t, "a signed-in fleet manager", func(t *testing.T) {
		testutil.When(t, "revisiting the fleet dashboard", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, routes.PathFleetDashboard, nil)
			req.AddCookie(key)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			testutil.Then(t, "it should be granted", func(t *testing.T) {
				if rec.Code != http.StatusOK {
					t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
				}
			})
		})

		testutil.When(t, "signing out", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
			req.AddCookie(key)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			testutil.Then(t, "it should clear the cookie and the dashboard should bounce again", func(t *testing.T) {
				if rec.Code != http.StatusNoContent {
					t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
				}

				again := httptest.NewRequest(http.MethodGet, routes.PathFleetDashboard, nil)
				again.AddCookie(key)
				dash := httptest.NewRecorder()

				router.ServeHTTP(dash, again)

				if dash.Code != http.StatusSeeOther {
					t.Fatalf("expected status %d after logout, got %d", http.StatusSeeOther, dash.Code)
				}
			})
		})
	})
}
