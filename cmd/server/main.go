// Package main is the entrypoint for the council API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/councilhq/council/internal/api"
	"github.com/councilhq/council/internal/api/handler"
	mw "github.com/councilhq/council/internal/api/middleware"
	"github.com/councilhq/council/internal/api/response"
	"github.com/councilhq/council/internal/cache"
	"github.com/councilhq/council/internal/config"
	"github.com/councilhq/council/internal/council"
	"github.com/councilhq/council/internal/crypto"
	"github.com/councilhq/council/internal/keys"
	"github.com/councilhq/council/internal/pipeline"
	"github.com/councilhq/council/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded",
		"env", cfg.Server.Env,
		"system_key_providers", len(cfg.SystemKeys),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Build the key-resolution and orchestration core
	cipher, err := crypto.NewAEADCipher(cfg.Encryption.Key)
	if err != nil {
		return fmt.Errorf("create cipher: %w", err)
	}

	pgStore := store.NewPostgresStore(pool)
	resolver := keys.NewResolver(pgStore, cipher, cfg.SystemKeys)
	keySvc := keys.NewService(pgStore, cipher)
	ledger := council.NewLedger(pgStore)

	engine := pipeline.NewHTTPClient(cfg.Pipeline.BaseURL, cfg.Pipeline.Timeout)
	bridge := council.NewBridge(resolver, ledger, engine, pgStore, redisCache, cfg.Pipeline.Timeout)
	slog.Info("orchestration bridge initialized", "pipeline_url", cfg.Pipeline.BaseURL)

	// 6. Build router with dependencies
	auth := mw.NewAuth(pgStore)
	rateLimit := mw.NewRateLimit(redisCache, 60)

	deps := api.Dependencies{
		Auth:      auth,
		RateLimit: rateLimit,

		HealthHandler: healthHandler(pgStore, redisCache, engine),

		SubmitHandler:     handler.NewSubmitHandler(bridge),
		GetRequestHandler: handler.NewGetRequestHandler(pgStore, redisCache),
		ListRequests:      handler.NewListRequestsHandler(pgStore),
		ListProviders:     handler.NewListProvidersHandler(keySvc, cfg.SystemKeys),

		SaveKeyHandler:     handler.NewSaveKeyHandler(keySvc),
		UpdateKeyHandler:   handler.NewUpdateKeyHandler(keySvc),
		ListKeysHandler:    handler.NewListKeysHandler(keySvc),
		TestKeyHandler:     handler.NewTestKeyHandler(keySvc),
		ActivateKeyHandler: handler.NewActivateKeyHandler(keySvc),
		DeleteKeyHandler:   handler.NewDeleteKeyHandler(keySvc),

		CreateAccessKey: handler.NewCreateAccessKeyHandler(pgStore),
		ListAccessKeys:  handler.NewListAccessKeysHandler(pgStore),
		RevokeAccessKey: handler.NewRevokeAccessKeyHandler(pgStore),
	}

	router := api.NewRouter(deps)

	// 7. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Pipeline.Timeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// healthHandler checks database, cache, and pipeline connectivity.
func healthHandler(s store.Store, c cache.Cache, p interface {
	Ready(ctx context.Context) error
}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
			"pipeline": "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}
		if err := p.Ready(r.Context()); err != nil {
			checks["pipeline"] = "degraded"
		}

		degraded := false
		for _, v := range checks {
			if v != "ok" {
				degraded = true
			}
		}
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
