package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/hostelkit/internal/app"
	"github.com/dmitrymomot/hostelkit/pkg/config"
	"github.com/dmitrymomot/hostelkit/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "billingctl",
	Short: "Operate the hostel billing core",
	Long: `Maintenance commands for the billing service.

Configuration is read from the environment and an optional .env file,
the same way billingd reads it.

Examples:
  billingctl migrate
  billingctl seed plans.yaml
  billingctl sweep all`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(migrateCmd, seedCmd, sweepCmd)
}

// withApp loads configuration, connects the application and closes it after
// fn returns.
func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	var cfg app.Config
	if err := config.Load(&cfg); err != nil {
		return err
	}
	log := logger.New(logger.WithEnvironment(cfg.Env, cfg.Name+"-ctl"))

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))
	return fn(ctx, a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func logFor(a *app.App, cmd string) *slog.Logger {
	return a.Log.With(logger.Component("billingctl." + cmd))
}
