package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/hostelkit/internal/app"
	"github.com/dmitrymomot/hostelkit/pkg/logger"
	"github.com/dmitrymomot/hostelkit/svc/subscription"
)

type sweep struct {
	name string
	fn   func(*subscription.Engine, context.Context) (subscription.SweepReport, error)
}

// sweeps in the order "all" runs them. Trials end before reminders go out.
var sweeps = []sweep{
	{"trials", (*subscription.Engine).CheckAndHandleTrialExpirations},
	{"trial-reminders", (*subscription.Engine).NotifyExpiringTrials},
	{"renewals", (*subscription.Engine).RenewDue},
	{"expirations", (*subscription.Engine).ExpireDue},
}

var sweepCmd = &cobra.Command{
	Use:       "sweep <trials|trial-reminders|renewals|expirations|all>",
	Short:     "Run a subscription sweep once",
	ValidArgs: []string{"trials", "trial-reminders", "renewals", "expirations", "all"},
	Long: `Run one of the periodic subscription sweeps and print its report.

Each sweep is safe to repeat: subscriptions already handled are skipped.
Schedule "billingctl sweep all" from cron or a Kubernetes CronJob.

Examples:
  billingctl sweep trials
  billingctl sweep all`,
	Args: cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: runSweep,
}

func runSweep(cmd *cobra.Command, args []string) error {
	selected := sweeps
	if args[0] != "all" {
		i := slices.IndexFunc(sweeps, func(s sweep) bool { return s.name == args[0] })
		selected = sweeps[i : i+1]
	}

	return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
		log := logFor(a, "sweep")
		var failed []string
		for _, s := range selected {
			report, err := s.fn(a.Engine, ctx)
			if err != nil {
				return fmt.Errorf("sweep %s: %w", s.name, err)
			}
			log.InfoContext(ctx, "sweep finished",
				logger.Event(s.name),
				logger.Count("processed", len(report.Processed)),
				logger.Count("skipped", len(report.Skipped)),
				logger.Count("failed", len(report.Failed)),
			)
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if len(report.Failed) > 0 {
				failed = append(failed, s.name)
			}
		}
		if len(failed) > 0 {
			return errors.New("sweeps with failures: " + strings.Join(failed, ", "))
		}
		return nil
	})
}
