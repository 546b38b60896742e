// Package session implements Session/SessionManager and the
// Counter/Limit/Generator game-state containers that hang off a
// Session.
package session

import (
	"sync"
	"time"
)

// HID is the numeric identity of a Session; SID is its opaque string
// identity. A Session is registered under both.
type HID uint64
type SID string

// CloseReason names why a Session was closed, passed to close(reason)
// and to any registered close observer.
type CloseReason int

const (
	CloseUnloadTimeout CloseReason = iota
	CloseExplicit
	CloseError
)

// Session owns a recursive-mutex-guarded ready flag plus two debounce
// timers: delayBeforeSaving arms on changed(), delayBeforeUnload arms
// on touch(). Go has no built-in recursive mutex; this package avoids
// needing one by never calling back into a Session method while
// already holding its own lock (the discipline spec.md §5 requires —
// "never call user callbacks under a lock" — made the recursive mutex
// unnecessary rather than worked around).
type Session struct {
	mgr *Manager

	hid HID
	sid SID

	mu    sync.Mutex
	ready bool

	delayBeforeSaving time.Duration
	delayBeforeUnload time.Duration

	saveTimer   *time.Timer
	unloadTimer *time.Timer

	onSave  func(*Session)
	onClose func(*Session, CloseReason)

	Counters   *CounterContainer
	Limits     *LimitContainer
	Generators *GeneratorContainer
}

func newSession(mgr *Manager, hid HID, sid SID) *Session {
	s := &Session{
		mgr:               mgr,
		hid:               hid,
		sid:               sid,
		delayBeforeSaving: 5 * time.Second,
		delayBeforeUnload: 30 * time.Second,
	}
	s.Counters = newCounterContainer(mgr.counters)
	s.Limits = newLimitContainer(mgr.limits)
	s.Generators = newGeneratorContainer(mgr.generators)
	return s
}

// HID returns the session's numeric identity.
func (s *Session) HID() HID { return s.hid }

// SID returns the session's opaque string identity.
func (s *Session) SID() SID { return s.sid }

// Ready reports whether the session has completed its load sequence.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// SetReady marks the session as having completed loading.
func (s *Session) SetReady(ready bool) {
	s.mu.Lock()
	s.ready = ready
	s.mu.Unlock()
}

// SetSaveHook and SetCloseHook register the callbacks touch()/changed()
// arm their timers to eventually invoke; either may be nil.
func (s *Session) SetSaveHook(fn func(*Session))              { s.onSave = fn }
func (s *Session) SetCloseHook(fn func(*Session, CloseReason)) { s.onClose = fn }

// Touch arms the unload-debounce timer, postponing close() by
// delayBeforeUnload from now.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unloadTimer != nil {
		s.unloadTimer.Stop()
	}
	s.unloadTimer = time.AfterFunc(s.delayBeforeUnload, func() {
		s.Close(CloseUnloadTimeout)
	})
}

// Changed arms the save-debounce timer; onSave fires once it elapses
// without another Changed() resetting it, mirroring write-coalescing
// debounce semantics.
func (s *Session) Changed() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saveTimer != nil {
		s.saveTimer.Stop()
	}
	s.saveTimer = time.AfterFunc(s.delayBeforeSaving, func() {
		if s.onSave != nil {
			s.onSave(s)
		}
	})
}

// Close unregisters the session from its Manager and stops its
// timers. It is safe to call more than once.
func (s *Session) Close(reason CloseReason) {
	s.mu.Lock()
	if s.saveTimer != nil {
		s.saveTimer.Stop()
	}
	if s.unloadTimer != nil {
		s.unloadTimer.Stop()
	}
	onClose := s.onClose
	s.mu.Unlock()

	s.mgr.unregister(s)
	if onClose != nil {
		onClose(s, reason)
	}
}

// Load is the persistence-load hook a backing store wires in. This
// package never picks a store; spec.md's Non-goals exclude a
// persistence-backend choice, so Load/Save are no-ops here that report
// false (nothing loaded or saved); an embedding application saves via
// SetSaveHook and loads with its own loader.
func (s *Session) Load() (bool, error) { return false, nil }

// Save is the persistence-save counterpart of Load; see Load.
func (s *Session) Save() (bool, error) { return false, nil }
