package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/hostelkit/internal/app"
	"github.com/dmitrymomot/hostelkit/svc/plan"
)

var seedCmd = &cobra.Command{
	Use:   "seed <plans.yaml>",
	Short: "Create or update plans from a YAML file",
	Long: `Upsert the plans defined in a YAML file, matched by name.

Plans missing from the file are left untouched. The report lists the
names of created and updated plans.

Examples:
  billingctl seed plans.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	plans, err := plan.LoadYAMLFile(args[0])
	if err != nil {
		return err
	}
	return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
		report, err := a.Catalog.Seed(ctx, plans)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), report)
	})
}
