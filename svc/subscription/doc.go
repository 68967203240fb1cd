// Package subscription runs the subscription lifecycle of the billing core.
//
// A Subscription is one period of a user's relationship with a plan. At most
// one record per user is live (trial or active); subscribing, changing plans
// or a trial running out closes the live record and opens a new one linked
// through PreviousSubscriptionID, so history is never rewritten. Status
// changes follow the Lifecycle table:
//
//	trial  -> active | expired | cancelled
//	active -> expired | cancelled | upgraded | downgraded
//
// The Engine serializes every mutation for a user with a lock.Locker and runs
// it in one billing.Transactor transaction, so plan subscriber counters move
// together with the records. Periodic work (renewals, expiry, trial fallback
// and reminders) is exposed as sweeps an external scheduler calls:
//
//	report, err := engine.RenewDue(ctx)
//	if err != nil {
//		return err
//	}
//	for _, f := range report.Failed {
//		log.Warn("renewal failed", "subscription_id", f.SubscriptionID, "error", f.Error)
//	}
//
// ApplyPayment applies a captured gateway payment exactly once per
// (order id, payment id) pair.
package subscription
