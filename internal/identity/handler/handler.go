// Package handler exposes the identity read surface: the public plan
// catalogue consumed by the signup and plans pages.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"imovan/internal/identity"
	"imovan/internal/platform/middleware"
	pmetrics "imovan/internal/platform/metrics"
	"imovan/internal/transport/http/shared"
	dErrors "imovan/pkg/domain-errors"
	"imovan/pkg/requestcontext"
)

// PlanLister lists the plan catalogue.
type PlanLister interface {
	List(ctx context.Context) ([]identity.Plan, error)
}

type Handler struct {
	plans   PlanLister
	logger  *slog.Logger
	metrics *pmetrics.Metrics
}

func New(plans PlanLister, logger *slog.Logger, metrics *pmetrics.Metrics) *Handler {
	return &Handler{
		plans:   plans,
		logger:  logger,
		metrics: metrics,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/catalogue", func(r chi.Router) {
		r.Use(middleware.Recovery(h.logger))
		r.Use(middleware.RequestID)
		r.Use(middleware.Logger(h.logger))
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(middleware.Latency(h.metrics))

		r.Get("/plans", h.handleListPlans)
	})
}

func (h *Handler) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.plans.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list plans",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to list plans"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, plans)
}
