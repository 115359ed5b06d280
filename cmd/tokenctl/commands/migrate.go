package commands

import (
	"context"
	"fmt"
	"log/slog"
)

// Migrator applies pending schema migrations
type Migrator interface {
	Migrate(ctx context.Context) error
}

// RunMigrations brings the PostgreSQL token schema up to date
func RunMigrations(ctx context.Context, migrator Migrator, logger *slog.Logger) error {
	logger.Info("running database migrations")

	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("migrations completed successfully")
	return nil
}
