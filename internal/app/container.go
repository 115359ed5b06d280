// Package app assembles the token store, service and metrics from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/BradenHooton/deptaccess/internal/auth"
	"github.com/BradenHooton/deptaccess/internal/config"
	"github.com/BradenHooton/deptaccess/internal/database"
	"github.com/BradenHooton/deptaccess/internal/metrics"
	"github.com/BradenHooton/deptaccess/internal/repositories"
	"github.com/BradenHooton/deptaccess/internal/services"
	pkglogger "github.com/BradenHooton/deptaccess/pkg/logger"
)

// Container holds lazily built dependencies. It is not safe for concurrent use
// and is expected to be wired once at startup.
type Container struct {
	cfg    *config.Config
	logger *slog.Logger

	auditLogger     *pkglogger.AuditLogger
	redisClient     *redis.Client
	db              *database.DB
	repo            repositories.TokenRepository
	service         services.TokenOperations
	metricsProvider *metrics.Provider
}

// NewContainer creates a container for cfg
func NewContainer(cfg *config.Config, logger *slog.Logger) *Container {
	return &Container{
		cfg:    cfg,
		logger: logger,
	}
}

// NewLogger builds the JSON logger used by every entry point
func NewLogger(w io.Writer, level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// AuditLogger returns the shared audit logger
func (c *Container) AuditLogger() *pkglogger.AuditLogger {
	if c.auditLogger == nil {
		c.auditLogger = pkglogger.NewAuditLogger(c.logger)
	}
	return c.auditLogger
}

// DB opens the PostgreSQL pool on first use
func (c *Container) DB(ctx context.Context) (*database.DB, error) {
	if c.db != nil {
		return c.db, nil
	}

	db, err := database.NewConnection(ctx, &c.cfg.Database, c.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	c.db = db
	return db, nil
}

// RedisClient opens the Redis client on first use
func (c *Container) RedisClient() (*redis.Client, error) {
	if c.redisClient != nil {
		return c.redisClient, nil
	}

	client, err := database.NewRedisClient(&c.cfg.Redis, c.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	c.redisClient = client
	return client, nil
}

// TokenRepository returns the store selected by STORE_BACKEND. The postgres
// schema is migrated before the repository is handed out.
func (c *Container) TokenRepository(ctx context.Context) (repositories.TokenRepository, error) {
	if c.repo != nil {
		return c.repo, nil
	}

	prefix := c.cfg.Token.KeyPrefix

	switch c.cfg.Token.StoreBackend {
	case config.BackendRedis:
		client, err := c.RedisClient()
		if err != nil {
			return nil, err
		}
		c.repo = repositories.NewRedisTokenRepository(client, prefix)
	case config.BackendPostgres:
		db, err := c.DB(ctx)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			return nil, err
		}
		c.repo = repositories.NewPostgresTokenRepository(db, prefix)
	case config.BackendMemory:
		c.logger.Warn("using in-memory token store; tokens are lost on restart and not shared between instances")
		c.repo = repositories.NewMemoryTokenRepository(prefix)
	default:
		return nil, fmt.Errorf("unknown store backend %q", c.cfg.Token.StoreBackend)
	}

	c.logger.Info("token store ready",
		slog.String("backend", c.cfg.Token.StoreBackend),
		slog.String("key_prefix", prefix),
	)
	return c.repo, nil
}

// MetricsProvider returns the Prometheus-backed meter provider, or nil when metrics are disabled
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	if !c.cfg.Metrics.Enabled {
		return nil, nil
	}
	if c.metricsProvider != nil {
		return c.metricsProvider, nil
	}

	provider, err := metrics.NewProvider()
	if err != nil {
		return nil, err
	}
	c.metricsProvider = provider
	return provider, nil
}

// TokenService returns the token service, decorated with metrics when enabled
func (c *Container) TokenService(ctx context.Context) (services.TokenOperations, error) {
	if c.service != nil {
		return c.service, nil
	}

	repo, err := c.TokenRepository(ctx)
	if err != nil {
		return nil, err
	}

	tm := auth.NewTokenManager(c.cfg.Token.JWTSecret, c.cfg.Token.TTL)
	var svc services.TokenOperations = services.NewTokenService(
		repo,
		tm,
		c.logger,
		c.AuditLogger(),
		c.cfg.Token.StoreTimeout,
	)

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}
	if provider != nil {
		tokenMetrics, err := metrics.NewTokenMetrics(provider.MeterProvider(), c.cfg.Metrics.Namespace)
		if err != nil {
			return nil, fmt.Errorf("failed to create token metrics: %w", err)
		}
		svc = services.NewTokenServiceWithMetrics(svc, tokenMetrics)
	}

	c.service = svc
	return svc, nil
}

// Shutdown releases every resource the container opened
func (c *Container) Shutdown(ctx context.Context) error {
	var shutdownErrors []error

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("redis close: %w", err))
		}
	}

	if c.db != nil {
		c.db.Close()
	}

	return errors.Join(shutdownErrors...)
}
