// Package plan is the plan catalog of the billing core.
//
// A Plan bundles an included bed count, optional bed top-ups up to a cap,
// branch allowances, a module permission grid and feature flags. The Catalog
// stores plans, prices them with CalculateCost, decides which plans a viewer
// may pick and handles capacity upgrade requests for custom plans.
//
// Two plans have system roles: the trial plan (Kind trial) every new owner
// starts on, and the limited plan (Kind limited) users fall back to when a
// trial ends unpaid. Both are provisioned from the seed file:
//
//	plans, err := plan.LoadYAMLFile("plans.yaml")
//	if err != nil {
//		return err
//	}
//	report, err := catalog.Seed(ctx, plans)
//
// Prices are integers in the currency minor unit. For annual plans the
// discount is applied to the monthly figure first and the annual total is
// twelve discounted months, so what is displayed is exactly what is charged.
package plan
