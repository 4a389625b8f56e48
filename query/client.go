package query

import (
	"context"
	"log/slog"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-workout-tracker/cache"
	"github.com/puzpuzpuz/xsync/v3"
)

// Key identifies a cached read: a scope name followed by ordered parts.
type Key struct {
	Scope string
	Parts []any
}

// NewKey builds a Key.
func NewKey(scope string, parts ...any) Key {
	return Key{Scope: scope, Parts: parts}
}

// scopeState indexes the live keys of one scope. gen is bumped on every
// invalidation; a fetch that started under an older gen never stores its result.
type scopeState struct {
	mu   sync.RWMutex
	gen  uint64
	keys map[string]struct{}
}

type call struct {
	done chan struct{}
	val  any
	err  error
}

func (c *call) wait(ctx context.Context) (any, error) {
	select {
	case <-c.done:
		return c.val, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Client caches keyed reads, coalesces concurrent identical reads and drops
// cached entries by Kind.
type Client struct {
	cache      cache.CacheService
	serializer cache.KeySerializer
	registry   *Registry
	logger     *slog.Logger

	scopes   *xsync.MapOf[string, *scopeState]
	inflight *xsync.MapOf[string, *call]
	watchers *xsync.MapOf[string, *watchSet]
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithKeySerializer replaces the default key serializer.
func WithKeySerializer(s cache.KeySerializer) Option {
	return func(c *Client) {
		if s != nil {
			c.serializer = s
		}
	}
}

// NewClient builds a Client over svc. registry decides which scopes each Kind
// invalidates.
func NewClient(svc cache.CacheService, registry *Registry, opts ...Option) *Client {
	if registry == nil {
		registry = NewRegistry()
	}
	c := &Client{
		cache:      svc,
		serializer: cache.NewDefaultKeySerializer(),
		registry:   registry,
		logger:     slog.Default(),
		scopes:     xsync.NewMapOf[string, *scopeState](),
		inflight:   xsync.NewMapOf[string, *call](),
		watchers:   xsync.NewMapOf[string, *watchSet](),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "query")
	return c
}

// Registry returns the kind registry the client invalidates by.
func (c *Client) Registry() *Registry { return c.registry }

// KeyString returns the serialized form of key.
func (c *Client) KeyString(key Key) string {
	return c.serializer.SerializeKey(key.Scope, key.Parts...)
}

// Fetch returns the cached value for key or calls fn.
//
// Concurrent calls for the same key share a single fn call. Errors are returned
// to every waiter and never cached. Keys in scopes no Kind owns are read
// through the cache backend directly since nothing can invalidate them.
func Fetch[T any](ctx context.Context, c *Client, key Key, fn cache.FetchFn[T]) (T, error) {
	k := c.KeyString(key)
	if !c.registry.Owns(key.Scope) {
		return cache.GetOrFetch(ctx, c.cache, k, fn)
	}

	v, err := c.fetch(ctx, key.Scope, k, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return cache.As[T](v)
}

func (c *Client) state(scope string) *scopeState {
	st, _ := c.scopes.LoadOrCompute(scope, func() *scopeState {
		return &scopeState{keys: make(map[string]struct{})}
	})
	return st
}

func (c *Client) fetch(ctx context.Context, scope, k string, fn func(context.Context) (any, error)) (any, error) {
	st := c.state(scope)
	st.mu.Lock()
	st.keys[k] = struct{}{}
	gen := st.gen
	st.mu.Unlock()

	if v, ok := c.cache.Get(ctx, k); ok {
		return v, nil
	}

	cl, loaded := c.inflight.LoadOrCompute(k, func() *call {
		return &call{done: make(chan struct{})}
	})
	if loaded {
		return cl.wait(ctx)
	}

	defer func() {
		c.inflight.Compute(k, func(current *call, ok bool) (*call, bool) {
			return current, !ok || current == cl
		})
		close(cl.done)
	}()

	// another leader may have stored the value between the miss and LoadOrCompute
	if v, ok := c.cache.Get(ctx, k); ok {
		cl.val = v
		return v, nil
	}

	cl.val, cl.err = fn(ctx)
	if cl.err != nil {
		return cl.val, cl.err
	}

	st.mu.RLock()
	defer st.mu.RUnlock()
	if st.gen != gen {
		c.logger.Debug("discarding result invalidated in flight", "key", k)
		return cl.val, nil
	}
	if err := c.cache.Set(ctx, k, cl.val); err != nil {
		c.logger.Warn("cache set failed", "key", k, "error", err)
	}
	return cl.val, nil
}

// Invalidate drops every cached entry in the scopes owned by kinds. Keys with
// live watchers are refetched before Invalidate returns.
func (c *Client) Invalidate(ctx context.Context, kinds ...Kind) error {
	var dropped []string
	for _, scope := range c.registry.Scopes(kinds...) {
		st, ok := c.scopes.Load(scope)
		if !ok {
			continue
		}
		st.mu.Lock()
		st.gen++
		for k := range st.keys {
			dropped = append(dropped, k)
		}
		st.keys = make(map[string]struct{})
		st.mu.Unlock()
	}

	if len(dropped) == 0 {
		return nil
	}

	for _, k := range dropped {
		c.inflight.Delete(k)
	}
	if err := c.cache.InvalidateKeys(ctx, dropped); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "invalidate cached keys").
			WithMetadata(map[string]any{"kinds": kinds})
	}
	c.logger.Debug("invalidated", "kinds", kinds, "keys", len(dropped))

	c.refetchWatched(ctx, dropped)
	return nil
}

// Reset drops every cached entry of every owned scope, including entries this
// client did not index. Watchers are not refetched.
func (c *Client) Reset(ctx context.Context) error {
	for _, scope := range c.registry.Scopes(c.registry.Kinds()...) {
		if st, ok := c.scopes.Load(scope); ok {
			st.mu.Lock()
			st.gen++
			st.keys = make(map[string]struct{})
			st.mu.Unlock()
		}
		if err := c.cache.Delete(ctx, scope); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "reset cache scope")
		}
		if err := c.cache.DeleteByPrefix(ctx, cache.ScopePrefix(scope)); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "reset cache scope")
		}
	}
	c.inflight.Clear()
	return nil
}

// Keys returns the live indexed keys of scope.
func (c *Client) Keys(scope string) []string {
	st, ok := c.scopes.Load(scope)
	if !ok {
		return nil
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]string, 0, len(st.keys))
	for k := range st.keys {
		out = append(out, k)
	}
	return out
}
