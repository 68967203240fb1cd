// Package cache provides a small generic LRU cache with optional entry TTL.
//
// The plan catalog keeps recently read plans here so entitlement checks do not
// hit the database on every request. A TTL bounds how stale an entry may get
// when another instance updates the plan.
package cache
