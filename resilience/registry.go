package resilience

import "sync"

// RegistryConfig declares the named rate limiter profiles an application
// uses, typically one per downstream service class. The registry is built
// once at startup and passed to every consumer by injection; there is no
// process-wide mutable registry to couple callers through.
type RegistryConfig struct {
	// Limiters maps a profile name to its limiter configuration.
	Limiters map[string]RateLimiterConfig
}

// Registry holds pre-configured rate limiters by name. Limiters are
// created lazily on first use and shared by all callers asking for the
// same name.
type Registry struct {
	config RegistryConfig

	mu       sync.Mutex
	limiters map[string]*RateLimiter
}

// NewRegistry creates a registry from its configuration.
func NewRegistry(config RegistryConfig) *Registry {
	return &Registry{
		config:   config,
		limiters: make(map[string]*RateLimiter),
	}
}

// Limiter returns the shared rate limiter for name. Names without a
// configured profile get a limiter with default configuration.
func (r *Registry) Limiter(name string) *RateLimiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rl, ok := r.limiters[name]; ok {
		return rl
	}
	rl := NewRateLimiter(r.config.Limiters[name])
	r.limiters[name] = rl
	return rl
}

// Names returns the configured profile names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.config.Limiters))
	for name := range r.config.Limiters {
		names = append(names, name)
	}
	return names
}
