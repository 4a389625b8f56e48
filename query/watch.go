package query

import (
	"context"
	"sync"

	"github.com/goliatone/go-workout-tracker/cache"
)

type watchSet struct {
	mu    sync.Mutex
	scope string
	fetch func(context.Context) (any, error)
	next  uint64
	subs  map[uint64]func(any, error)
}

func (w *watchSet) snapshot() (func(context.Context) (any, error), []func(any, error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	subs := make([]func(any, error), 0, len(w.subs))
	for _, fn := range w.subs {
		subs = append(subs, fn)
	}
	return w.fetch, subs
}

// Watch reads key like Fetch and delivers the result to onChange, then keeps
// delivering fresh results every time an invalidation drops key. The returned
// cancel func stops delivery; it is safe to call more than once.
//
// The initial delivery happens before Watch returns.
func Watch[T any](ctx context.Context, c *Client, key Key, fn cache.FetchFn[T], onChange func(T, error)) (cancel func()) {
	k := c.KeyString(key)
	deliver := func(v any, err error) {
		if err != nil {
			var zero T
			onChange(zero, err)
			return
		}
		typed, convErr := cache.As[T](v)
		onChange(typed, convErr)
	}

	var id uint64
	c.watchers.Compute(k, func(ws *watchSet, loaded bool) (*watchSet, bool) {
		if !loaded {
			ws = &watchSet{scope: key.Scope, subs: make(map[uint64]func(any, error))}
		}
		ws.mu.Lock()
		ws.fetch = func(ctx context.Context) (any, error) { return fn(ctx) }
		id = ws.next
		ws.next++
		ws.subs[id] = deliver
		ws.mu.Unlock()
		return ws, false
	})

	v, err := Fetch(ctx, c, key, fn)
	onChange(v, err)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.watchers.Compute(k, func(current *watchSet, loaded bool) (*watchSet, bool) {
				if !loaded {
					return current, true
				}
				current.mu.Lock()
				delete(current.subs, id)
				empty := len(current.subs) == 0
				current.mu.Unlock()
				return current, empty
			})
		})
	}
}

// refetchWatched refetches every dropped key that has watchers and delivers the
// results. It returns once all deliveries are done.
func (c *Client) refetchWatched(ctx context.Context, keys []string) {
	var wg sync.WaitGroup
	for _, k := range keys {
		ws, ok := c.watchers.Load(k)
		if !ok {
			continue
		}
		fetch, subs := ws.snapshot()
		if fetch == nil || len(subs) == 0 {
			continue
		}

		wg.Add(1)
		go func(k, scope string) {
			defer wg.Done()
			v, err := c.fetch(ctx, scope, k, fetch)
			if err != nil {
				c.logger.Warn("refetch after invalidation failed", "key", k, "error", err)
			}
			for _, sub := range subs {
				sub(v, err)
			}
		}(k, ws.scope)
	}
	wg.Wait()
}
