// Package redis opens go-redis clients from a [Config] with startup retries,
// and provides a readiness probe and shutdown hook for them.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
package redis
