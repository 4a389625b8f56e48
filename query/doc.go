// Package query is a keyed read cache for remote data.
//
// A Key is a scope plus ordered parts. Fetch serves a key from the cache or
// calls the supplied function, sharing one call among concurrent readers of
// the same key. A Registry groups scopes under a Kind; Invalidate(kind) drops
// every live key in those scopes and refetches the ones that are watched.
//
//	reg := query.NewRegistry().
//		Register("program", "get-programs", "get-program")
//	client := query.NewClient(svc, reg)
//
//	list, err := query.Fetch(ctx, client, query.NewKey("get-programs", "get-program", userID), loadPrograms)
//	...
//	err = client.Invalidate(ctx, "program")
//
// A read that is still in flight when its scope is invalidated returns its
// result to its callers but does not store it.
package query
