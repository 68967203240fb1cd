// Package redis connects the go-redis client used for distributed locks and
// cross-instance notification fan-out.
package redis
