// Package lock provides keyed mutual exclusion across goroutines and across
// service instances.
//
// MemoryLocker serializes callers inside one process. RedisLocker uses
// SET NX PX with a random token and a compare-and-delete release script, so a
// holder whose TTL lapsed can never release somebody else's lock.
//
//	err := lock.WithLock(ctx, locker, "subscription:"+userID, 30*time.Second, func(ctx context.Context) error {
//		return engine.apply(ctx, userID)
//	})
package lock
