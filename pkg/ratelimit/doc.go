// Package ratelimit throttles inbound requests per key.
//
// RedisLimiter counts requests in fixed windows shared by every replica.
// TokenBucket keeps state in process memory and suits a single instance
// and tests. Middleware applies either to an http.Handler and fails open
// when the limiter errors.
package ratelimit
