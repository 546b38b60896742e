package transport

import (
	"fmt"
	"sync"

	"github.com/riftcore/coreserver/core/factory"
	"github.com/riftcore/coreserver/core/reactor"
	"github.com/riftcore/coreserver/core/router"
)

// Transports is the generalized, multi-scheme version of the teacher's
// single hardcoded core.Engine: a named registry of ServerTransport
// instances, each constructed by core/factory from a type-keyed
// Config and independently enabled/disabled against one Reactor.
type Transports struct {
	ctors *factory.Registry[ServerTransport]
	r     *reactor.Reactor

	mu    sync.RWMutex
	named map[string]ServerTransport
}

// NewTransports creates an empty registry driven by r, pre-registering
// "http" (HTTPServerTransport). Callers needing an additional type
// reach for RegisterType.
func NewTransports(r *reactor.Reactor) *Transports {
	t := &Transports{
		ctors: factory.NewRegistry[ServerTransport](),
		r:     r,
		named: make(map[string]ServerTransport),
	}
	t.ctors.Register("http", func(cfg any) (ServerTransport, error) {
		c, ok := cfg.(Config)
		if !ok {
			return nil, fmt.Errorf("transport: http constructor expects transport.Config, got %T", cfg)
		}
		return NewHTTPServerTransport(c), nil
	})
	return t
}

// RegisterType adds a constructor for a transport type beyond the
// built-in "http", per the write-once-per-key discipline of
// core/factory.Registry.
func (t *Transports) RegisterType(typ string, ctor factory.Constructor[ServerTransport]) error {
	return t.ctors.Register(typ, ctor)
}

// Add constructs a named transport via the factory keyed by cfg.Type,
// binds its configured URI prefixes with handler, enables it against
// the reactor, and registers it under cfg.Name for later lookup.
func (t *Transports) Add(cfg Config, handler router.HandlerFunc) (ServerTransport, error) {
	st, err := t.ctors.Create(cfg.Type, cfg)
	if err != nil {
		return nil, err
	}

	for _, uri := range cfg.Bindings {
		st.BindHandler(uri, handler)
	}

	if err := st.Enable(t.r); err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.named[cfg.Name] = st
	t.mu.Unlock()

	return st, nil
}

// Get returns the named transport, if registered.
func (t *Transports) Get(name string) (ServerTransport, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st, ok := t.named[name]
	return st, ok
}

// Disable takes the named transport out of the reactor without
// removing it from the registry, so it can be re-enabled later.
func (t *Transports) Disable(name string) {
	t.mu.RLock()
	st, ok := t.named[name]
	t.mu.RUnlock()
	if ok {
		st.Disable()
	}
}

// Enable re-enables a previously disabled named transport.
func (t *Transports) Enable(name string) error {
	t.mu.RLock()
	st, ok := t.named[name]
	t.mu.RUnlock()
	if !ok {
		return fmt.Errorf("transport: no transport named %q", name)
	}
	return st.Enable(t.r)
}

// ForEach calls fn for every registered transport, for introspection
// (e.g. the /status endpoint listing active transports).
func (t *Transports) ForEach(fn func(name string, st ServerTransport)) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for name, st := range t.named {
		fn(name, st)
	}
}
