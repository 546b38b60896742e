package session

import "sync"

// Manager indexes live Sessions by HID and by SID behind two separate
// mutexes, acquired in a fixed order — byHID then bySID — everywhere both are needed, per
// spec.md §5's deadlock-avoidance rule.
type Manager struct {
	hidMu sync.RWMutex
	byHID map[HID]*Session

	sidMu sync.RWMutex
	bySID map[SID]*Session

	counters   *CounterManager
	limits     *LimitManager
	generators *GeneratorManager
}

// NewManager creates an empty SessionManager backed by the given
// game-state config managers (themselves write-once-then-read-heavy,
// grounded on the teacher's rpc/registry.ServiceRegistry pattern).
func NewManager(counters *CounterManager, limits *LimitManager, generators *GeneratorManager) *Manager {
	return &Manager{
		byHID:      make(map[HID]*Session),
		bySID:      make(map[SID]*Session),
		counters:   counters,
		limits:     limits,
		generators: generators,
	}
}

// Create registers a new Session under hid and sid. It is an error at
// the caller level to reuse an already-registered identity; Create
// overwrites silently, matching the original's register-replaces
// semantics for reconnect-with-same-identity flows.
func (m *Manager) Create(hid HID, sid SID) *Session {
	s := newSession(m, hid, sid)

	m.hidMu.Lock()
	m.byHID[hid] = s
	m.hidMu.Unlock()

	m.sidMu.Lock()
	m.bySID[sid] = s
	m.sidMu.Unlock()

	return s
}

// ByHID looks up a Session by its numeric identity.
func (m *Manager) ByHID(hid HID) (*Session, bool) {
	m.hidMu.RLock()
	defer m.hidMu.RUnlock()
	s, ok := m.byHID[hid]
	return s, ok
}

// BySID looks up a Session by its opaque string identity.
func (m *Manager) BySID(sid SID) (*Session, bool) {
	m.sidMu.RLock()
	defer m.sidMu.RUnlock()
	s, ok := m.bySID[sid]
	return s, ok
}

// Count returns the number of currently registered sessions.
func (m *Manager) Count() int {
	m.hidMu.RLock()
	defer m.hidMu.RUnlock()
	return len(m.byHID)
}

// unregister removes s from both indexes; called from Session.Close.
func (m *Manager) unregister(s *Session) {
	m.hidMu.Lock()
	delete(m.byHID, s.hid)
	m.hidMu.Unlock()

	m.sidMu.Lock()
	delete(m.bySID, s.sid)
	m.sidMu.Unlock()
}
