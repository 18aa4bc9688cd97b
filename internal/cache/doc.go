// Package cache provides a tiered read-through/write-through cache that
// fronts the authoritative feed store.
//
// The cache is composed of two tiers consulted in order:
//
// 1. Remote tier - Redis via go-redis, shared across instances
//   - JSON serialization at the adapter boundary
//   - Bounded per-operation timeouts
//   - Guarded by a circuit breaker
//
// 2. Local tier - bounded in-process LRU via hashicorp/golang-lru
//   - Per-entry TTL, checked lazily on read
//   - Optional periodic expiry sweep
//   - Always written on Set, so values are visible even when Redis is down
//
// The defining contract of TieredCache is that operational failures of the
// backing store never surface to callers of Get/Set/InvalidatePrefix: they
// degrade to a cache miss or a local-tier answer and are observable only
// through Stats(). Only invalid arguments (empty key, non-positive TTL)
// produce errors.
//
// Usage:
//
//	remote, err := cache.DialRemote(&cache.RemoteConfig{Address: "localhost:6379"})
//	if err != nil {
//		log.Fatal(err) // configuration error, fail fast at boot
//	}
//	local, _ := cache.NewLocalStore(10000, time.Minute)
//	tiered, _ := cache.New(cache.Options{Local: local, Remote: remote})
//
//	tiered.Set(ctx, "feed:global:skip=0:limit=20", page, 30*time.Second)
//	value, ok, _ := tiered.Get(ctx, "feed:global:skip=0:limit=20")
//	removed, _ := tiered.InvalidatePrefix(ctx, "feed:global")
package cache
