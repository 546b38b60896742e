package session

import "sync"

// CounterConfig is the immutable, process-global definition of one
// counter kind.
type CounterConfig struct {
	ID      string
	Initial int64
	Max     int64 // 0 means unbounded
}

// CounterManager holds the write-once-then-read-heavy map of
// CounterConfig keyed by ID, grounded on the teacher's
// rpc/registry.ServiceRegistry write-once pattern.
type CounterManager struct {
	mu      sync.RWMutex
	configs map[string]CounterConfig
}

// NewCounterManager creates an empty CounterManager.
func NewCounterManager() *CounterManager {
	return &CounterManager{configs: make(map[string]CounterConfig)}
}

// Register adds cfg under cfg.ID. Intended to be called during static
// init only; safe but not intended to be called once the server is
// handling traffic.
func (m *CounterManager) Register(cfg CounterConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs[cfg.ID] = cfg
}

func (m *CounterManager) config(id string) (CounterConfig, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.configs[id]
	return c, ok
}

// counterInstance is one live, per-session counter value with a dirty
// flag for change tracking.
type counterInstance struct {
	value int64
	dirty bool
}

// CounterContainer holds a session's live counter instances, created
// lazily from CounterManager's immutable configs.
type CounterContainer struct {
	mgr *CounterManager

	mu        sync.Mutex
	instances map[string]*counterInstance
}

func newCounterContainer(mgr *CounterManager) *CounterContainer {
	return &CounterContainer{mgr: mgr, instances: make(map[string]*counterInstance)}
}

func (c *CounterContainer) get(id string) *counterInstance {
	if inst, ok := c.instances[id]; ok {
		return inst
	}
	cfg, _ := c.mgr.config(id)
	inst := &counterInstance{value: cfg.Initial}
	c.instances[id] = inst
	return inst
}

// Get returns id's current value, initializing it from its Config if
// this session has not touched it yet.
func (c *CounterContainer) Get(id string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.get(id).value
}

// Add increments id's value by delta, clamping to Max if configured,
// and marks it dirty. Returns the resulting value.
func (c *CounterContainer) Add(id string, delta int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	inst := c.get(id)
	inst.value += delta
	if cfg, ok := c.mgr.config(id); ok && cfg.Max > 0 && inst.value > cfg.Max {
		inst.value = cfg.Max
	}
	inst.dirty = true
	return inst.value
}

// Dirty returns the IDs of counters changed since the last ClearDirty.
func (c *CounterContainer) Dirty() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var ids []string
	for id, inst := range c.instances {
		if inst.dirty {
			ids = append(ids, id)
		}
	}
	return ids
}

// ClearDirty resets every instance's dirty flag, typically called
// after a successful persistence save.
func (c *CounterContainer) ClearDirty() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, inst := range c.instances {
		inst.dirty = false
	}
}
