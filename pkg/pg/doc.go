// Package pg manages the PostgreSQL pool backing the room and bed inventory.
//
// Connect builds a pgxpool with retries, Migrate applies goose migrations from
// an fs.FS, and WithTx runs a callback in a transaction at the requested
// isolation level, retrying serialization failures. AdvisoryXactLock takes a
// transaction-scoped advisory lock derived from a string key, which the
// inventory store uses to serialize count-and-insert per owner.
package pg
