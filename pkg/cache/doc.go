// Package cache derives cache keys and stores responses in Redis.
//
// # Keys
//
// Without Vary handling every request maps to
//
//	{method}_{scheme}://{host}[:{port}]{path+query}{Accept-Language}
//
// With Vary handling the Accept-Language suffix is replaced by the values of
// the headers named in the Vary value registered for the path, ordered by
// lower-cased header name:
//
//	vary := "Accept-Encoding, X-Tenant"
//	key := cache.VaryKey(vary, outbound)
//
// VaryKey (live request) and VaryKeyFromSnapshot (message.Request) share one
// builder and yield identical keys for the same request.
//
// The Vary value itself is stored under VaryRegistrationKey(path), the
// lower-cased request path.
//
// # Store
//
//	client, err := cache.NewRedisClient(cache.RedisOptions{
//		URL:      "redis://127.0.0.1:6379/",
//		PoolSize: 500,
//	})
//	store := cache.NewStore(client, "")
//
//	conn, err := store.Acquire(ctx)
//	defer conn.Close()
//
//	body, found, err := conn.Get(ctx, key.String())
//	if !found {
//		// miss
//	}
//
// Set and Expire are separate commands; entries written by Set have no
// expiry until Expire succeeds.
//
// # Metrics
//
//   - cacher_store_operations_total{operation,result}
package cache
