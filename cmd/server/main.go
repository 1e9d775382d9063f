package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sony/gobreaker"

	"github.com/Simplici0/landedcost/internal/cache"
	"github.com/Simplici0/landedcost/internal/calculation"
	"github.com/Simplici0/landedcost/internal/config"
	"github.com/Simplici0/landedcost/internal/db"
	"github.com/Simplici0/landedcost/internal/logging"
	"github.com/Simplici0/landedcost/internal/metrics"
	"github.com/Simplici0/landedcost/internal/migrations"
	"github.com/Simplici0/landedcost/internal/pricing"
	"github.com/Simplici0/landedcost/internal/seed"
	"github.com/Simplici0/landedcost/internal/store"
)

const serviceName = "landedcost"

type server struct {
	svc    *calculation.Service
	db     *sql.DB
	redis  *cache.Redis
	logger *slog.Logger
}

func main() {
	cfg := config.Load()
	logger := logging.New(os.Stdout, cfg.LogLevel, serviceName, cfg.AppEnv)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	if cfg.IsDev() {
		if err := migrations.Up(database); err != nil {
			log.Fatalf("failed to run database migrations: %v", err)
		}
		stats, err := seed.Run(ctx, database, seed.DefaultCategories())
		if err != nil {
			log.Fatalf("failed to seed categories: %v", err)
		}
		logger.Info("categories seeded", "inserted", stats.Inserts, "skipped", stats.Skipped)
	}

	version, err := migrations.Version(database)
	if err != nil {
		log.Fatalf("failed to read schema version: %v", err)
	}
	logger.Info("database ready", "path", cfg.DBPath, "schema_version", version)

	m := metrics.New()

	srv := &server{db: database, logger: logger}
	var backend cache.Backend = cache.NewMemory()
	if cfg.RedisAddr != "" {
		srv.redis = cache.NewRedis(cache.RedisConfig{
			Addr: cfg.RedisAddr,
			OnStateChange: func(name string, from, to gobreaker.State) {
				m.SetBreakerState(name, from, to)
			},
		}, logger)
		defer srv.redis.Close()
		backend = srv.redis
	}

	srv.svc = calculation.NewService(
		pricing.NewEngine(cfg.Pricing()),
		store.New(database),
		logger,
		calculation.WithCache(cache.NewCategories(backend, cfg.CategoryCacheTTL, logger)),
		calculation.WithMetrics(m),
	)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(m),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	log.Printf("listening on %s", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server stopped: %v", err)
	}
}

func (s *server) routes(m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if m != nil {
		r.Use(m.Middleware)
		r.Handle("/metrics", m.Handler())
	}

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/calculations/start", s.handleStart)
		r.Post("/calculations/validate", s.handleValidate)
		r.Post("/calculations", s.handleExecute)
		r.Get("/calculations/{id}", s.handleGetCalculation)
		r.Patch("/calculations/{id}", s.handleUpdate)
		r.Get("/positions/{positionID}/calculations", s.handleHistory)

		r.Get("/categories", s.handleListCategories)
		r.Post("/categories", s.handleCreateCategory)
		r.Put("/categories/{id}", s.handleUpdateCategory)
	})
	return r
}
