// Package redis connects to Redis with retries and exposes a readiness check.
// The notification service uses it as the backing store of the preference cache.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
package redis
