// Package main is the entrypoint for the storefront API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mbertozzi/storefront/internal/api"
	"github.com/mbertozzi/storefront/internal/api/handler"
	mw "github.com/mbertozzi/storefront/internal/api/middleware"
	"github.com/mbertozzi/storefront/internal/api/response"
	"github.com/mbertozzi/storefront/internal/auth"
	"github.com/mbertozzi/storefront/internal/cache"
	"github.com/mbertozzi/storefront/internal/config"
	"github.com/mbertozzi/storefront/internal/events"
	"github.com/mbertozzi/storefront/internal/metrics"
	"github.com/mbertozzi/storefront/internal/notify"
	"github.com/mbertozzi/storefront/internal/search"
	"github.com/mbertozzi/storefront/internal/store"
	"github.com/mbertozzi/storefront/internal/tenancy"
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
	slog.Info("config loaded", "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run registry migrations; tenant schemas migrate at provision time
	if err := store.RunMigrations(cfg.Database.URL, filepath.Join("migrations", "registry")); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("registry migrations applied")

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

	// 5. Metrics
	m := metrics.New(prometheus.DefaultRegisterer)

	// 6. Storage, search, and tenant plumbing
	pgStore := store.NewPostgresStore(pool)
	provisioner := store.NewProvisioner(pool, cfg.Database.URL, filepath.Join("migrations", "tenant"))
	resolver := tenancy.NewResolver(pgStore)
	catalog := cache.NewCatalog(redisCache, cfg.Redis.Timeout, m)
	index := search.NewElasticIndex(cfg.Search.URL, cfg.Search.IndexPrefix, cfg.Search.Timeout)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSigningKey, cfg.Auth.TokenTTL)

	// 7. Notification hub and consistency pipeline
	hub := notify.NewHub(m)
	pipeline := events.NewPipeline(m)
	events.RegisterProductReactions(pipeline, catalog, index, pgStore, hub)

	// 8. Build router with dependencies
	deps := api.Dependencies{
		Tenant:     mw.NewTenant(resolver),
		Auth:       mw.NewAuth(tokens),
		AdminToken: cfg.Auth.AdminToken,

		HealthHandler:  healthHandler(pgStore, redisCache),
		MetricsHandler: promhttp.Handler(),

		LoginHandler: handler.NewLoginHandler(pgStore, tokens),

		ListProducts:   handler.NewListProductsHandler(pgStore, catalog),
		GetProduct:     handler.NewGetProductHandler(pgStore, catalog),
		CreateProduct:  handler.NewCreateProductHandler(pgStore, pipeline),
		UpdateProduct:  handler.NewUpdateProductHandler(pgStore, pipeline),
		DeleteProduct:  handler.NewDeleteProductHandler(pgStore, pipeline),
		SearchProducts: handler.NewSearchProductsHandler(pgStore, catalog, index),

		ListNotifications: handler.NewListNotificationsHandler(pgStore),
		WebsocketHandler:  notify.NewWSHandler(hub, tokens),

		CreateTenant:     handler.NewCreateTenantHandler(pgStore, provisioner),
		ListTenants:      handler.NewListTenantsHandler(pgStore),
		DeactivateTenant: handler.NewDeactivateTenantHandler(pgStore),
		CreateDomain:     handler.NewCreateDomainHandler(pgStore),
		CreateUser:       handler.NewCreateUserHandler(pgStore, pgStore),
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

// healthHandler checks database and cache connectivity.
func healthHandler(s store.Registry, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		degraded := checks["database"] != "ok" || checks["cache"] != "ok"
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
