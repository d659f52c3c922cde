package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"lessonmanager/internal/domain/account"
	"lessonmanager/internal/platform/config"
	"lessonmanager/internal/platform/db"
	"lessonmanager/internal/platform/identity"
	"lessonmanager/internal/platform/jobs"
	"lessonmanager/internal/platform/metrics"
	"lessonmanager/internal/platform/recordstore"
	"lessonmanager/internal/platform/report"
	"lessonmanager/internal/platform/retry"
	accounthandler "lessonmanager/internal/transport/http/handlers/account"
	authhandler "lessonmanager/internal/transport/http/handlers/auth"
	"lessonmanager/internal/transport/http/middleware"
)

func Run() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, "migrations"); err != nil {
			log.Fatalf("migrations failed: %v", err)
		}
	}

	store := recordstore.NewPostgres(pool)
	provider := identity.NewPostgres(pool)
	policy := retry.Fixed(cfg.RetryAttempts, cfg.RetryDelay)

	scheduler := account.NewScheduler(store, policy)
	pipeline := account.NewPipeline(store, policy)
	guard := account.NewGuard(provider)
	certs := report.NewWriter(cfg.CertificateDir)
	executor := account.NewExecutor(scheduler, pipeline, guard, provider, policy, certs)

	jobsSvc := jobs.New(store, scheduler, executor, cfg.DeletionSweepInterval)
	jobsSvc.Start(ctx)

	collector := metrics.New()

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(collector))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := writeMetrics(w, collector); err != nil {
			http.Error(w, "metrics unavailable", http.StatusInternalServerError)
		}
	})

	router.Route("/api/v1", func(r chi.Router) {
		authHandler := authhandler.NewHandler(provider, store, cfg.JWTSecret, cfg.AllowRegistration)
		authHandler.RegisterRoutes(r)

		accountHandler := accounthandler.NewHandler(scheduler, executor, provider, jobsSvc, cfg.DeletionGraceDays)
		accountHandler.RegisterRoutes(r)
	})

	log.Printf("lesson manager server listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, router); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
