// main wires the session manager, the route guard, and the HTTP surface.
// Business logic lives in the internal packages; this file only chooses
// backends from configuration and runs the server lifecycle.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"imovan/internal/audit"
	"imovan/internal/audit/publisher"
	"imovan/internal/identity"
	identityhandler "imovan/internal/identity/handler"
	identitystore "imovan/internal/identity/store"
	planstore "imovan/internal/identity/store/plan"
	userstore "imovan/internal/identity/store/user"
	"imovan/internal/platform/config"
	"imovan/internal/platform/httpserver"
	"imovan/internal/platform/logger"
	pmetrics "imovan/internal/platform/metrics"
	"imovan/internal/platform/postgres"
	platformredis "imovan/internal/platform/redis"
	"imovan/internal/routes"
	"imovan/internal/routes/guard"
	routehandler "imovan/internal/routes/handler"
	routemetrics "imovan/internal/routes/metrics"
	sessionhandler "imovan/internal/session/handler"
	"imovan/internal/session/manager"
	sessionmetrics "imovan/internal/session/metrics"
	sessionstore "imovan/internal/session/store"
	"imovan/internal/session/token"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	var (
		profiles identitystore.ProfileStore
		plans    identitystore.PlanStore
	)
	if cfg.PostgresDSN != "" {
		db, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			log.Error("failed to connect to postgres", "error", err.Error())
			os.Exit(1)
		}
		defer db.Close()
		profiles = userstore.NewPostgres(db)
		plans = planstore.NewPostgres(db)
	} else {
		log.Warn("no postgres DSN configured, using in-memory stores")
		profiles = userstore.NewInMemory()
		plans = planstore.NewInMemory(devPlans()...)
	}

	var records manager.RecordStore
	if cfg.RedisURL != "" {
		client, err := platformredis.New(cfg.RedisURL)
		if err != nil {
			log.Error("failed to connect to redis", "error", err.Error())
			os.Exit(1)
		}
		defer client.Close()
		records = sessionstore.NewRedis(client.Client)
	} else {
		log.Warn("no redis URL configured, session records are in-memory")
		records = sessionstore.NewInMemory()
	}

	var sink audit.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := publisher.NewKafka(ctx, cfg.KafkaBrokers, cfg.AuditTopic, log)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err.Error())
			os.Exit(1)
		}
		defer func() {
			if err := kafka.Close(context.Background()); err != nil {
				log.Warn("failed to flush audit publisher", "error", err.Error())
			}
		}()
		sink = kafka
	} else {
		log.Warn("no kafka brokers configured, audit events stay in-memory")
		sink = publisher.NewMemory()
	}

	mgr := manager.New(
		profiles,
		plans,
		records,
		token.NewService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience),
		sink,
		sessionmetrics.New(),
		log,
		manager.Config{DurableTTL: cfg.DurableTTL, EphemeralTTL: cfg.EphemeralTTL},
	)

	registry := routes.Default()
	g := guard.New(mgr, registry, sink, routemetrics.New(), log)
	httpMetrics := pmetrics.New()

	r := chi.NewRouter()
	sessionhandler.New(mgr, log, httpMetrics, cfg.DurableTTL).Register(r)
	identityhandler.New(plans, log, httpMetrics).Register(r)
	routehandler.New(registry, g, profiles, log, httpMetrics).Register(r)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := httpserver.New(cfg.Addr, r)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		log.Info("starting imovan server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", "error", err.Error())
		os.Exit(1)
	}
	log.Info("server stopped")
}

// devPlans seeds the in-memory plan store for local runs.
func devPlans() []identity.Plan {
	return []identity.Plan{
		{ID: "fleet-basic", Name: "Fleet Basic", UserType: identity.UserTypeClient},
		{ID: "fleet-pro", Name: "Fleet Pro", UserType: identity.UserTypeClient},
		{ID: "provider-standard", Name: "Provider Standard", UserType: identity.UserTypeProvider},
	}
}
