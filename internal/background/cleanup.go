package background

import (
	"context"
	"log/slog"
	"sync"
	"time"

	pkglogger "github.com/BradenHooton/deptaccess/pkg/logger"
)

// ExpiredTokenCleaner removes token records past their expiry
type ExpiredTokenCleaner interface {
	CleanupExpired(ctx context.Context) (int, error)
}

// CleanupManager periodically sweeps expired token records. The store's own
// TTL is the primary reclaim path; this catches anything it left behind.
type CleanupManager struct {
	cleaner     ExpiredTokenCleaner
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	interval    time.Duration
	runTimeout  time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	cleaner ExpiredTokenCleaner,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
	interval time.Duration,
) *CleanupManager {
	return &CleanupManager{
		cleaner:     cleaner,
		logger:      logger,
		auditLogger: auditLogger,
		interval:    interval,
		runTimeout:  30 * time.Second,
		stopCh:      make(chan struct{}),
	}
}

// Start runs a sweep immediately and then on every tick until Stop or ctx cancellation
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, cm.runTimeout)
	defer cancel()

	deleted, err := cm.cleaner.CleanupExpired(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to cleanup expired tokens", slog.Any("error", err))
		return
	}

	if deleted > 0 {
		cm.auditLogger.LogCleanup(ctx, "scheduler", deleted)
	}
}

// Stop signals the cleanup manager to stop. Safe to call more than once.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() {
		close(cm.stopCh)
	})
}
