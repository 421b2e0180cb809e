// Package main is the entrypoint for the tenantgate API server.
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

	"github.com/tenantgate/tenantgate/internal/api"
	"github.com/tenantgate/tenantgate/internal/api/handler"
	mw "github.com/tenantgate/tenantgate/internal/api/middleware"
	"github.com/tenantgate/tenantgate/internal/api/response"
	"github.com/tenantgate/tenantgate/internal/cache"
	"github.com/tenantgate/tenantgate/internal/config"
	"github.com/tenantgate/tenantgate/internal/credentials"
	"github.com/tenantgate/tenantgate/internal/identity"
	"github.com/tenantgate/tenantgate/internal/onboarding"
	"github.com/tenantgate/tenantgate/internal/store"
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
	// 1. Load config, fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "issuer", cfg.Identity.Issuer)

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
	if err := store.RunMigrations(cfg.Database.URL(), "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	if err := store.VerifyTenantColumn(ctx, pool, cfg.Tenancy.TenantColumn); err != nil {
		return err
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache. Optional: without it onboarding is unthrottled.
	var redisCache cache.Cache
	if cfg.Redis.URL != "" {
		rc, err := cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("create redis cache: %w", err)
		}
		defer rc.Close()

		if err := rc.Ping(ctx); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		redisCache = rc
		slog.Info("redis connected")
	} else {
		slog.Warn("REDIS_URL not set, onboarding rate limiting disabled")
	}

	// 5. Service-account credentials for the identity admin API
	creds, err := credentials.FromConfig(cfg.Credentials, cfg.Server.ProjectName)
	if err != nil {
		return fmt.Errorf("create credentials provider: %w", err)
	}
	slog.Info("credentials provider initialized", "source", cfg.Credentials.Source)

	// 6. Token verifier and identity admin client
	verifier, err := identity.NewJWTVerifier(ctx, cfg.Identity)
	if err != nil {
		return fmt.Errorf("create token verifier: %w", err)
	}
	adminClient := identity.NewAdminClient(cfg.Identity, creds)

	// 7. Tenant-scoped store and services
	sessions := store.NewSessions(pool, cfg.Tenancy.SettingName)
	companies := store.NewCompanyService(sessions)
	orchestrator := onboarding.NewOrchestrator(adminClient, companies, slog.Default())

	// 8. Build router with dependencies
	deps := api.Dependencies{
		Auth:      mw.NewAuth(verifier, nil),
		RateLimit: mw.RateLimit(redisCache, cfg.RateLimit.OnboardingPerMin),
		CORS:      mw.CORS(cfg.CORS.AllowedOrigins),

		RootHandler:       rootHandler(cfg.Server.ProjectName),
		HealthHandler:     healthHandler(sessions, redisCache),
		OnboardingHandler: handler.NewOnboardingHandler(orchestrator),
		MyCompanyHandler:  handler.NewMyCompanyHandler(companies),
	}

	router := api.NewRouter(deps)

	// 9. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
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

// rootHandler reports the service banner.
func rootHandler(project string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, map[string]string{
			"service": project,
			"status":  "running",
		})
	}
}

// healthHandler checks database and, when configured, cache connectivity.
func healthHandler(sessions *store.Sessions, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
		}

		if err := sessions.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if c != nil {
			checks["cache"] = "ok"
			if err := c.Ping(r.Context()); err != nil {
				checks["cache"] = "degraded"
			}
		}

		for _, status := range checks {
			if status != "ok" {
				response.Error(w, http.StatusServiceUnavailable, "One or more services degraded")
				return
			}
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
