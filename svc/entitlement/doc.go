// Package entitlement decides what an owner may do under their current plan.
//
// Ceilings come from the owner's live subscription (contracted beds and
// branches, the rooms module usage limit) and usage is counted live from
// the inventory, never from the cached counters on the subscription. A
// refusal is a Verdict with Allowed false and RequiresUpgrade set so callers
// can offer an upgrade; errors are reserved for failures, and storage
// failures wrap ErrUsageUnavailable so they are never shown as a denial.
package entitlement
