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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/BradenHooton/deptaccess/internal/app"
	"github.com/BradenHooton/deptaccess/internal/background"
	"github.com/BradenHooton/deptaccess/internal/config"
	"github.com/BradenHooton/deptaccess/internal/metrics"
	middlewareCustom "github.com/BradenHooton/deptaccess/internal/middleware"
	"github.com/BradenHooton/deptaccess/internal/routes"
	pkghttp "github.com/BradenHooton/deptaccess/pkg/http"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger = app.NewLogger(os.Stdout, cfg.Server.LogLevel)
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("store_backend", cfg.Token.StoreBackend),
		slog.Duration("token_ttl", cfg.Token.TTL),
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container := app.NewContainer(cfg, logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := container.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to release resources", slog.Any("error", err))
		}
	}()

	startupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	service, err := container.TokenService(startupCtx)
	cancel()
	if err != nil {
		return err
	}

	metricsProvider, err := container.MetricsProvider()
	if err != nil {
		return err
	}

	ipConfig, err := pkghttp.NewIPConfig(cfg.Server.TrustedProxies)
	if err != nil {
		return fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.ClientIP(ipConfig))
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger))
	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.Metrics.Namespace))
	}
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(cfg.Server.WriteTimeout))

	routes.RegisterRoutes(router, service, routes.Config{
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
		IPConfig:           ipConfig,
		AdminKeyHash:       cfg.Admin.APIKeyHash,
		StoreBackend:       cfg.Token.StoreBackend,
	}, logger, container.AuditLogger())

	if cfg.Admin.APIKeyHash == "" {
		logger.Warn("ADMIN_API_KEY_HASH is not set; admin routes are unauthenticated")
	}

	servers := []*http.Server{{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}}

	if metricsProvider != nil {
		metricsRouter := chi.NewRouter()
		metricsRouter.Handle("/metrics", metricsProvider.Handler())
		servers = append(servers, &http.Server{
			Addr:              ":" + cfg.Metrics.Port,
			Handler:           metricsRouter,
			ReadHeaderTimeout: 5 * time.Second,
		})
	}

	cleanupManager := background.NewCleanupManager(service, logger, container.AuditLogger(), cfg.Token.CleanupInterval)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		cleanupManager.Start(gctx)
		return nil
	})

	for _, server := range servers {
		g.Go(func() error {
			logger.Info("starting server", slog.String("addr", server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server %s: %w", server.Addr, err)
			}
			return nil
		})
	}

	// Graceful shutdown once a signal arrives or any server fails
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		cleanupManager.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var shutdownErrors []error
		for _, server := range servers {
			if err := server.Shutdown(shutdownCtx); err != nil {
				shutdownErrors = append(shutdownErrors, fmt.Errorf("server %s shutdown: %w", server.Addr, err))
			}
		}
		return errors.Join(shutdownErrors...)
	})

	return g.Wait()
}
