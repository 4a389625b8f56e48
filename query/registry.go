package query

import "slices"

// Kind names an entity family whose cached reads invalidate together.
type Kind string

// Registry maps each Kind to the key scopes it owns. Build it once at startup
// and share it read-only.
type Registry struct {
	kinds  map[Kind][]string
	owners map[string][]Kind
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		kinds:  make(map[Kind][]string),
		owners: make(map[string][]Kind),
	}
}

// Register declares that kind owns scopes. Calls accumulate.
func (r *Registry) Register(kind Kind, scopes ...string) *Registry {
	for _, scope := range scopes {
		if slices.Contains(r.kinds[kind], scope) {
			continue
		}
		r.kinds[kind] = append(r.kinds[kind], scope)
		r.owners[scope] = append(r.owners[scope], kind)
	}
	return r
}

// Scopes returns the scopes owned by the given kinds, deduplicated and sorted.
func (r *Registry) Scopes(kinds ...Kind) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, kind := range kinds {
		for _, scope := range r.kinds[kind] {
			if _, ok := seen[scope]; ok {
				continue
			}
			seen[scope] = struct{}{}
			out = append(out, scope)
		}
	}
	slices.Sort(out)
	return out
}

// Owns reports whether any kind owns scope. Unowned scopes are never invalidated.
func (r *Registry) Owns(scope string) bool {
	return len(r.owners[scope]) > 0
}

// Kinds returns every registered kind, sorted.
func (r *Registry) Kinds() []Kind {
	out := make([]Kind, 0, len(r.kinds))
	for kind := range r.kinds {
		out = append(out, kind)
	}
	slices.Sort(out)
	return out
}
