// Package quota enforces plan ceilings on inventory writes.
//
// The Gate is the only path that creates properties and rooms. It takes the
// owner's inventory lock, evaluates the request against the live
// subscription through the entitlement resolver, and writes within the same
// transaction, so two concurrent uploads cannot overrun one ceiling.
//
// Bulk uploads are all-or-nothing with respect to quota: the beds of every
// valid row are checked as one request. Per-row problems such as an invalid
// bed count or a room number that already exists only affect their own row
// and are reported in BulkResult.
//
// A refusal is returned as *DeniedError, which matches ErrQuotaExceeded and
// carries the verdict for the upgrade prompt.
package quota
