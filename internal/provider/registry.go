package provider

import "sort"

// Registry holds the ordered provider chain of every configured platform.
type Registry struct {
	chains map[string][]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{chains: make(map[string][]Provider)}
}

// Register sets the chain for a platform. Order is the fallback order.
// A platform registered with no providers is configured but unsupported.
func (r *Registry) Register(platform string, providers ...Provider) {
	r.chains[platform] = append([]Provider(nil), providers...)
}

// Chain returns the providers of a platform in fallback order.
func (r *Registry) Chain(platform string) ([]Provider, bool) {
	chain, ok := r.chains[platform]
	if !ok {
		return nil, false
	}
	return append([]Provider(nil), chain...), true
}

// Configured returns the set of registered platform names.
func (r *Registry) Configured() map[string]bool {
	out := make(map[string]bool, len(r.chains))
	for name := range r.chains {
		out[name] = true
	}
	return out
}

// Platforms returns registered platform names, sorted.
func (r *Registry) Platforms() []string {
	names := make([]string, 0, len(r.chains))
	for name := range r.chains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
