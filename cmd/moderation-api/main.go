// Package main is the entry point for the moderation API server.
// It accepts HMAC-signed job submissions, serves status reads, and hands
// the actual classification work to moderation-worker over the broker.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/vietcms/moderation/internal/broker"
	"github.com/vietcms/moderation/internal/cache"
	"github.com/vietcms/moderation/internal/config"
	"github.com/vietcms/moderation/internal/database"
	"github.com/vietcms/moderation/internal/http/handlers"
	"github.com/vietcms/moderation/internal/http/mw"
	"github.com/vietcms/moderation/internal/logging"
	"github.com/vietcms/moderation/internal/repository"
	"github.com/vietcms/moderation/internal/service"
	"github.com/vietcms/moderation/internal/version"
)

func main() {
	// Initialize logger with TTY detection, source paths, and format control
	logger := logging.SetDefault()

	v := version.Get()
	logger.Info("starting moderation-api",
		"version", v.Version,
		"commit", v.Commit,
		"built", v.Date,
		"go_version", v.GoVersion,
	)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.DatabaseDSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := database.MigrateWithLogger(db, logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	repos := repository.NewRepositories(db)

	mq, err := broker.Connect(cfg.BrokerURL(), logger)
	if err != nil {
		logger.Error("failed to connect to message broker", "error", err)
		os.Exit(1)
	}
	defer func() { _ = mq.Close() }()

	// Optional read-through cache for terminal job status
	var statusCache *cache.StatusCache
	if cfg.CacheEnabled() {
		statusCache, err = cache.New(context.Background(), cfg.RedisAddr(), cfg.RedisDB, logger)
		if err != nil {
			logger.Warn("status cache unavailable, continuing without it", "error", err)
			statusCache = nil
		} else {
			defer func() { _ = statusCache.Close() }()
		}
	}

	services := service.NewServices(cfg, repos, mq, statusCache, logger)
	h := handlers.New(services, logger)
	healthHandler := handlers.NewHealthHandler(db, mq)

	router := chi.NewRouter()

	// Global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   cfg.CORSMethods,
		AllowedHeaders:   cfg.CORSHeaders,
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           cfg.CORSMaxAge,
	}))

	// Request size limit (1MB) - prevent large payload attacks
	router.Use(middleware.RequestSize(1 * 1024 * 1024))

	// Global rate limit by IP (fallback for unauthenticated requests)
	router.Use(httprate.LimitByIP(100, time.Minute))

	humaConfig := huma.DefaultConfig("Moderation API", v.Version)
	humaConfig.Info.Description = "Multi-tenant Vietnamese content moderation with async processing and webhook delivery."

	// Config for routes behind chi auth groups (docs are served by the main API)
	protectedConfig := huma.DefaultConfig("Moderation API", v.Version)
	protectedConfig.DocsPath = ""
	protectedConfig.OpenAPIPath = ""
	protectedConfig.SchemasPath = ""

	api := humachi.New(router, humaConfig)

	// Public routes
	huma.Get(api, "/api/v1/health", healthHandler.Health)
	huma.Post(api, "/api/v1/register", h.Register)
	huma.Post(api, "/api/v1/client/login", h.Login)

	// API-key routes
	router.Group(func(r chi.Router) {
		r.Use(mw.APIKeyAuth(services.Client))

		// Submit requires a valid body signature on top of the API key
		r.Group(func(r chi.Router) {
			r.Use(mw.VerifySignature())
			r.Use(mw.RateLimitPerClient(cfg.SubmitRateLimit))

			submitAPI := humachi.New(r, protectedConfig)
			huma.Post(submitAPI, "/api/v1/submit", h.Submit)
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.RateLimitPerClient(cfg.StatusRateLimit))

			statusAPI := humachi.New(r, protectedConfig)
			huma.Get(statusAPI, "/api/v1/status/{job_id}", h.Status)
			huma.Get(statusAPI, "/api/v1/status/{job_id}/attempts", h.ListAttempts)
			huma.Get(statusAPI, "/api/v1/jobs", h.ListJobs)
			huma.Put(statusAPI, "/api/v1/webhook", h.UpdateWebhook)
		})
	})

	// Client portal routes (bearer token from /client/login)
	router.Group(func(r chi.Router) {
		r.Use(mw.JWTAuth(services.Client))

		portalAPI := humachi.New(r, protectedConfig)
		huma.Put(portalAPI, "/api/v1/client/webhook", h.UpdateWebhook)
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		<-sigChan

		logger.Info("shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}()

	logger.Info("starting server", "port", cfg.Port, "base_url", cfg.BaseURL)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
