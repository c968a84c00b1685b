// Package ratelimiter provides a token bucket limiter for the write side of
// the notification API.
//
// A Bucket is a policy over a Store. MemoryStore keeps state in process and
// suits a single instance or tests; RedisStore keeps it in Redis so several
// API instances share one budget per key.
//
//	store := ratelimiter.NewRedisStore(client)
//	bucket, err := ratelimiter.NewBucket(store, ratelimiter.Config{
//		Capacity:       20,
//		RefillRate:     20,
//		RefillInterval: time.Minute,
//	})
//	res, err := bucket.Allow(ctx, "create:"+userID)
//	if !res.Allowed() {
//		// reject, retry after res.RetryAfter()
//	}
//
// Denied calls do not consume tokens.
package ratelimiter
