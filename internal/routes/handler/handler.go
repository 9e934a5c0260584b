// Package handler serves the navigable pages and the site map. Every path in
// the route registry gets an endpoint behind the guard; the page payload is
// the descriptor itself, which is all a JSON client needs to render a shell.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"imovan/internal/identity"
	"imovan/internal/platform/middleware"
	pmetrics "imovan/internal/platform/metrics"
	"imovan/internal/routes"
	"imovan/internal/routes/guard"
	"imovan/internal/transport/http/shared"
	dErrors "imovan/pkg/domain-errors"
	"imovan/pkg/requestcontext"
)

// ProfileReader loads the profile for the profile page.
type ProfileReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (identity.User, error)
}

type Handler struct {
	registry *routes.Registry
	guard    *guard.Guard
	profiles ProfileReader
	logger   *slog.Logger
	metrics  *pmetrics.Metrics
}

func New(registry *routes.Registry, g *guard.Guard, profiles ProfileReader, logger *slog.Logger, metrics *pmetrics.Metrics) *Handler {
	return &Handler{
		registry: registry,
		guard:    g,
		profiles: profiles,
		logger:   logger,
		metrics:  metrics,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/routes", func(r chi.Router) {
		r.Use(middleware.Recovery(h.logger))
		r.Use(middleware.RequestID)
		r.Use(middleware.Logger(h.logger))
		r.Use(middleware.Timeout(15 * time.Second))
		r.Use(middleware.Latency(h.metrics))

		r.Get("/sitemap", h.handleSiteMap)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Recovery(h.logger))
		r.Use(middleware.RequestID)
		r.Use(middleware.Logger(h.logger))
		r.Use(middleware.Timeout(15 * time.Second))
		r.Use(middleware.Latency(h.metrics))
		r.Use(h.guard.Middleware)

		for _, d := range h.registry.AllRoutes() {
			if d.Path == routes.PathProfile {
				r.Get(d.Path, h.handleProfilePage)
				continue
			}
			r.Get(d.Path, h.pageHandler(d))
		}
	})
}

// handleSiteMap returns the grouped registry for navigation UIs.
func (h *Handler) handleSiteMap(w http.ResponseWriter, _ *http.Request) {
	shared.WriteJSON(w, http.StatusOK, h.registry.Groups())
}

func (h *Handler) pageHandler(d routes.Descriptor) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		shared.WriteJSON(w, http.StatusOK, d)
	}
}

// handleProfilePage serves the caller's own profile. The guard has already
// granted the navigation and put the user ID in context.
func (h *Handler) handleProfilePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(requestcontext.UserID(ctx))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "malformed user id in context"))
		return
	}

	user, err := h.profiles.FindByID(ctx, id)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load profile for page",
			"user_id", id.String(),
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to load profile"))
		return
	}

	shared.WriteJSON(w, http.StatusOK, user.Profile)
}
