package dbpool

import (
	"errors"
	"sync"

	"github.com/riftcore/coreserver/core/factory"
)

var errBadConfig = errors.New("dbpool: cfg is not a dbpool.Config")

// Pools is the named registry of DB pools, the same generalized
// write-once-construct/read-heavy-lookup shape core/transport.Transports
// uses for server transports: one core/factory.Registry keyed by
// Config.Type backing name-keyed construction.
type Pools struct {
	ctors *factory.Registry[*Pool]

	mu    sync.RWMutex
	named map[string]*Pool
}

// NewPools creates a registry pre-registering the "postgres" pool type
// backed by Open.
func NewPools() *Pools {
	p := &Pools{
		ctors: factory.NewRegistry[*Pool](),
		named: make(map[string]*Pool),
	}
	p.ctors.Register("postgres", func(cfg any) (*Pool, error) {
		c, ok := cfg.(Config)
		if !ok {
			return nil, errBadConfig
		}
		return Open(c)
	})
	return p
}

// RegisterType adds a pool constructor under typ, for a pool backend
// other than the pre-registered "postgres" one.
func (p *Pools) RegisterType(typ string, ctor factory.Constructor[*Pool]) error {
	return p.ctors.Register(typ, ctor)
}

// Add constructs a pool of cfg.Type ("postgres" if empty) and
// registers it under cfg.Name.
func (p *Pools) Add(cfg Config) (*Pool, error) {
	typ := cfg.Type
	if typ == "" {
		typ = "postgres"
	}

	pool, err := p.ctors.Create(typ, cfg)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.named[cfg.Name] = pool
	p.mu.Unlock()

	return pool, nil
}

// Get returns the pool registered under name.
func (p *Pools) Get(name string) (*Pool, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pool, ok := p.named[name]
	return pool, ok
}

// CloseAll closes every registered pool, collecting the first error
// encountered (if any) while still attempting to close the rest.
func (p *Pools) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var first error
	for name, pool := range p.named {
		if err := pool.Close(); err != nil && first == nil {
			first = err
		}
		delete(p.named, name)
	}
	return first
}
