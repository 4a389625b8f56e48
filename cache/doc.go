// Package cache defines the key/value contract behind the query client.
//
// Two pieces live here:
//
//   - CacheService: storage for fetched results, keyed by serialized strings
//   - KeySerializer: turns a scope name plus key parts into a stable string
//
// The default service is backed by sturdyc (see NewCacheService). Keys are
// built as scope::part::part so every key of a scope shares ScopePrefix(scope):
//
//	serializer := cache.NewDefaultKeySerializer()
//	key := serializer.SerializeKey("get-program", userID, int64(12))
//	// get-program::<userID>::12
//
// Values that never need invalidation can use the typed read-through helper:
//
//	muscles, err := cache.GetOrFetch(ctx, svc, key, func(ctx context.Context) ([]model.Muscle, error) {
//		return remote.Muscles().Select(ctx)
//	})
//
// Fetch errors are never stored; the next read calls the source again.
package cache
