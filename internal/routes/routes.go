package routes

import (
	"log/slog"

	"github.com/BradenHooton/deptaccess/internal/auth"
	"github.com/BradenHooton/deptaccess/internal/handlers"
	"github.com/BradenHooton/deptaccess/internal/middleware"
	"github.com/BradenHooton/deptaccess/internal/services"
	pkghttp "github.com/BradenHooton/deptaccess/pkg/http"
	pkglogger "github.com/BradenHooton/deptaccess/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// Config carries the settings the route table depends on
type Config struct {
	RateLimitPerMinute int
	IPConfig           *pkghttp.IPConfig
	AdminKeyHash       string
	StoreBackend       string
}

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	service services.TokenOperations,
	cfg Config,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) {
	tokenHandler := handlers.NewTokenHandler(service, logger)
	adminHandler := handlers.NewAdminHandler(service, logger, auditLogger)

	router.Get("/health", handlers.HealthHandler(service, cfg.StoreBackend))

	// Token endpoints called by the ERP, limited per client IP
	router.Route("/api/auth", func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(middleware.RateLimitConfig{
			RequestsPerMinute: cfg.RateLimitPerMinute,
			IPConfig:          cfg.IPConfig,
		}))

		r.Post("/generate-token", tokenHandler.GenerateToken)
		r.Post("/verify-token", tokenHandler.VerifyToken)
		r.Post("/check-token", tokenHandler.CheckToken)
	})

	// Admin endpoints
	router.Route("/api/admin", func(r chi.Router) {
		r.Use(auth.AdminKeyMiddleware(cfg.AdminKeyHash, logger))

		r.Post("/revoke-token", adminHandler.RevokeToken)
		r.Get("/tokens", adminHandler.ListTokens)
		r.Delete("/tokens", adminHandler.CleanupTokens)
	})
}
