package commands

import (
	"context"
	"fmt"
	"io"

	pkglogger "github.com/BradenHooton/deptaccess/pkg/logger"
)

// TokenCleaner removes expired token records
type TokenCleaner interface {
	CleanupExpired(ctx context.Context) (int, error)
}

// RunCleanup deletes expired token records once and reports how many were removed
func RunCleanup(ctx context.Context, cleaner TokenCleaner, auditLogger *pkglogger.AuditLogger, out io.Writer, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	count, err := cleaner.CleanupExpired(ctx)
	if err != nil {
		return fmt.Errorf("failed to cleanup expired tokens: %w", err)
	}

	auditLogger.LogCleanup(ctx, "cli", count)

	if format == FormatJSON {
		return writeJSON(out, map[string]interface{}{
			"success":      true,
			"cleanedCount": count,
		})
	}

	_, err = fmt.Fprintf(out, "Cleaned up %d expired tokens\n", count)
	return err
}
