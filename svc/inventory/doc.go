// Package inventory stores the properties, rooms and beds an owner manages.
//
// Usage is always counted live from these rows; the cached counters on a
// subscription are only a copy. Writes that must agree with a quota check
// run through Store.Locked, which holds a per-owner lock for the whole
// count-and-insert sequence. On PostgreSQL that is a transaction-scoped
// advisory lock and every room insert runs in its own savepoint, so one bad
// row in a bulk upload does not abort the others.
package inventory
