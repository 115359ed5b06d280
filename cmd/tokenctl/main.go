// Package main provides tokenctl, the operator CLI for the department token store.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/BradenHooton/deptaccess/cmd/tokenctl/commands"
	"github.com/BradenHooton/deptaccess/internal/app"
	"github.com/BradenHooton/deptaccess/internal/config"
)

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   commands.FormatText,
		Usage:   "Output format: 'text' or 'json'",
	}
}

// withContainer loads configuration and hands a container to fn, releasing it afterwards.
// Logs go to stderr so command output on stdout stays parseable.
func withContainer(ctx context.Context, fn func(*app.Container) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.Metrics.Enabled = false

	logger := app.NewLogger(os.Stderr, cfg.Server.LogLevel)
	container := app.NewContainer(cfg, logger)
	defer func() {
		if err := container.Shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown container", slog.Any("error", err))
		}
	}()

	return fn(container)
}

func main() {
	cmd := &cli.Command{
		Name:    "tokenctl",
		Usage:   "Manage one-time department access tokens",
		Version: "1.0.0",
		Commands: []*cli.Command{
			{
				Name:  "cleanup",
				Usage: "Delete expired token records",
				Flags: []cli.Flag{formatFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withContainer(ctx, func(c *app.Container) error {
						svc, err := c.TokenService(ctx)
						if err != nil {
							return err
						}
						return commands.RunCleanup(ctx, svc, c.AuditLogger(), os.Stdout, cmd.String("format"))
					})
				},
			},
			{
				Name:  "list",
				Usage: "List stored token records with the signed token hidden",
				Flags: []cli.Flag{formatFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withContainer(ctx, func(c *app.Container) error {
						svc, err := c.TokenService(ctx)
						if err != nil {
							return err
						}
						return commands.RunList(ctx, svc, os.Stdout, cmd.String("format"))
					})
				},
			},
			{
				Name:  "revoke",
				Usage: "Revoke an unused token so it can no longer grant access",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "token-id",
						Aliases:  []string{"t"},
						Required: true,
						Usage:    "Token ID, e.g. 42_1700000000000_a1b2c3d4e",
					},
					formatFlag(),
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withContainer(ctx, func(c *app.Container) error {
						svc, err := c.TokenService(ctx)
						if err != nil {
							return err
						}
						return commands.RunRevoke(ctx, svc, os.Stdout, cmd.String("token-id"), cmd.String("format"))
					})
				},
			},
			{
				Name:  "migrate",
				Usage: "Run PostgreSQL token store migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withContainer(ctx, func(c *app.Container) error {
						db, err := c.DB(ctx)
						if err != nil {
							return err
						}
						return commands.RunMigrations(ctx, db, c.Logger())
					})
				},
			},
			{
				Name:  "gensecret",
				Usage: "Generate a JWT secret and an admin API key with its bcrypt hash",
				Flags: []cli.Flag{formatFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunGenSecret(os.Stdout, cmd.String("format"))
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
