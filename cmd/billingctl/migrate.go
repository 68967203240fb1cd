package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/hostelkit/internal/app"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the inventory schema migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			if err := a.Migrate(ctx); err != nil {
				return err
			}
			logFor(a, "migrate").InfoContext(ctx, "migrations applied")
			return nil
		})
	},
}
