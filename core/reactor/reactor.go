// Package reactor is the process-wide single event loop: it owns the
// watched set of connections plus an earliest-deadline-first timer
// set, and handles each readiness event inline on the Run goroutine
// (read, Feed, Processing, flush); no task.Pool is involved.
package reactor

import (
	"container/heap"
	"log"
	"sync"
	"syscall"
	"time"

	"github.com/riftcore/coreserver/core/conn"
	"github.com/riftcore/coreserver/core/poller"
)

// HighWaterMark and LowWaterMark govern the backpressure rule: once a
// connection's queued output exceeds HighWaterMark, its read interest
// is disabled; it is restored once output drains below LowWaterMark.
const (
	HighWaterMark = 1 << 20 // 1 MiB
	LowWaterMark  = 256 << 10
)

// Watched bundles the reactor's bookkeeping for one connection: the
// Connection itself, the raw fd read/write loop, and callbacks invoked
// on a complete message / fatal error.
type Watched struct {
	Conn *conn.Connection

	// OnMessage is invoked once per framed message Processing yields.
	OnMessage func(c *conn.Connection, msg []byte)
	// OnError is invoked once, before the connection is removed and
	// closed, for any fatal read/write/decode error (including peer
	// close).
	OnError func(c *conn.Connection, err error)

	deadline time.Time
	heapIdx  int
}

// NewWatched builds a Watched entry not currently in the timer heap.
// Callers must use this rather than a bare struct literal so heapIdx
// starts at the heap's "not present" sentinel instead of 0 (a valid
// heap index), which Add/Remove/Touch rely on to know whether to call
// heap.Remove.
func NewWatched(c *conn.Connection, onMessage func(*conn.Connection, []byte), onError func(*conn.Connection, error)) *Watched {
	return &Watched{Conn: c, OnMessage: onMessage, OnError: onError, heapIdx: -1}
}

// ConnectionManager owns the watched set behind one mutex, matching
// the teacher's Engine.connMu pattern but promoted to its own type so
// Acceptors, Connectors and plain Connections all share one registry.
type ConnectionManager struct {
	mu      sync.RWMutex
	watched map[int]*Watched
	timers  timerHeap
}

func newConnectionManager() *ConnectionManager {
	return &ConnectionManager{watched: make(map[int]*Watched, 1024)}
}

// Get returns the Watched entry for fd, if any.
func (m *ConnectionManager) Get(fd int) (*Watched, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.watched[fd]
	return w, ok
}

// SyscallTracer receives raw fd read/write accounting from the
// reactor's dispatch/flush loop. core/observability.EBPFTracer
// implements this without any changes on its side — TraceNetwork
// already takes exactly this shape — so wiring one in here gives that
// subsystem real kernel-adjacent data instead of sitting unexercised
// behind its own package.
type SyscallTracer interface {
	TraceNetwork(protocol string, bytesSent, bytesRecv uint64, isNewConn bool)
}

// Reactor is the single epoll/kqueue event loop. Exactly one Reactor
// runs per process; everything else (acceptors, connectors, plain
// connections) registers with it.
type Reactor struct {
	poller poller.Poller
	mgr    *ConnectionManager
	tracer SyscallTracer

	onAccept map[int]func() // listening fd -> accept-drain callback

	stopCh chan struct{}
	wakeCh chan struct{}
}

// SetTracer installs t to observe every raw read/write this reactor
// performs. Passing nil disables tracing; the zero-value Reactor
// already behaves this way.
func (r *Reactor) SetTracer(t SyscallTracer) {
	r.tracer = t
}

// New creates a Reactor backed by a fresh OS-native poller.
func New() (*Reactor, error) {
	p, err := poller.NewPoller()
	if err != nil {
		return nil, err
	}
	return &Reactor{
		poller:   p,
		mgr:      newConnectionManager(),
		onAccept: make(map[int]func()),
		stopCh:   make(chan struct{}),
		wakeCh:   make(chan struct{}, 1),
	}, nil
}

// Manager returns the reactor's ConnectionManager.
func (r *Reactor) Manager() *ConnectionManager {
	return r.mgr
}

// AddListener registers a listening fd; onReadable is invoked whenever
// the reactor observes it ready for accept.
func (r *Reactor) AddListener(fd int, onReadable func()) error {
	r.onAccept[fd] = onReadable
	return r.poller.Add(fd)
}

// Add registers w's connection with the reactor. ttl == 0 means no
// deadline (kept alive until explicitly closed or removed).
func (r *Reactor) Add(w *Watched, ttl time.Duration) error {
	r.mgr.mu.Lock()
	r.mgr.watched[w.Conn.FD()] = w
	if ttl > 0 {
		w.deadline = time.Now().Add(ttl)
		heap.Push(&r.mgr.timers, w)
	}
	r.mgr.mu.Unlock()

	return r.poller.Add(w.Conn.FD())
}

// Remove drops all interest in fd and marks its connection closed.
// It is idempotent.
func (r *Reactor) Remove(fd int) {
	r.mgr.mu.Lock()
	w, ok := r.mgr.watched[fd]
	if ok {
		delete(r.mgr.watched, fd)
		if w.heapIdx >= 0 {
			heap.Remove(&r.mgr.timers, w.heapIdx)
		}
	}
	r.mgr.mu.Unlock()

	if ok {
		w.Conn.SetState(conn.StateClosed)
		w.Conn.Release()
		r.poller.Remove(fd)
		syscall.Close(fd)
	}
}

// Touch resets fd's TTL deadline to now+ttl, re-homing it in the timer
// heap. Used to implement idle-timeout keepalive the way the teacher's
// Connection.lastActive tracking does.
func (r *Reactor) Touch(fd int, ttl time.Duration) {
	r.mgr.mu.Lock()
	defer r.mgr.mu.Unlock()
	w, ok := r.mgr.watched[fd]
	if !ok {
		return
	}
	if w.heapIdx >= 0 {
		heap.Remove(&r.mgr.timers, w.heapIdx)
	}
	w.deadline = time.Now().Add(ttl)
	heap.Push(&r.mgr.timers, w)
}

// Wakeup posts a token on wakeCh without blocking; a token already
// pending is not doubled. Run does not read wakeCh, so Wakeup does not
// interrupt a poller.Wait that is in progress.
func (r *Reactor) Wakeup() {
	select {
	case r.wakeCh <- struct{}{}:
	default:
	}
}

// Stop terminates Run.
func (r *Reactor) Stop() {
	close(r.stopCh)
}

// Run is the reactor's single-threaded dispatch loop: block until an fd
// is ready, the nearest timer is due, or pollTimeoutMS elapses, then
// act. Wakeup does not end the wait.
func (r *Reactor) Run(pollTimeoutMS int) {
	for {
		select {
		case <-r.stopCh:
			r.poller.Close()
			return
		default:
		}

		r.fireExpiredTimers()

		timeout := pollTimeoutMS
		r.mgr.mu.RLock()
		if r.mgr.timers.Len() > 0 {
			ms := int((time.Until(r.mgr.timers[0].deadline) + time.Millisecond - 1) / time.Millisecond)
			if ms < 0 {
				ms = 0
			}
			if timeout < 0 || ms < timeout {
				timeout = ms
			}
		}
		r.mgr.mu.RUnlock()

		fds, err := r.poller.Wait(timeout)
		if err != nil {
			log.Printf("reactor: poll error: %v", err)
			continue
		}

		for _, fd := range fds {
			if cb, ok := r.onAccept[fd]; ok {
				cb()
				continue
			}
			r.dispatch(fd)
		}
	}
}

func (r *Reactor) dispatch(fd int) {
	w, ok := r.mgr.Get(fd)
	if !ok {
		return
	}

	buf := make([]byte, 64*1024)
	n, err := syscall.Read(fd, buf)
	if err != nil {
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK || err == syscall.EINTR {
			return
		}
		r.fail(w, err)
		return
	}
	if n == 0 {
		r.fail(w, errPeerClosed)
		return
	}
	if r.tracer != nil {
		r.tracer.TraceNetwork("tcp", 0, uint64(n), false)
	}

	if err := w.Conn.Feed(buf[:n]); err != nil {
		r.fail(w, err)
		return
	}

	_, err = w.Conn.Processing(func(msg []byte) {
		w.OnMessage(w.Conn, msg)
	})
	if err != nil {
		r.fail(w, err)
		return
	}

	r.flush(w)
}

// flush writes as much of the pending output buffer as the socket will
// currently accept, applying the high/low watermark backpressure rule
// to read interest. A full, production reactor would re-arm EPOLLOUT
// on partial writes instead of leaving remaining bytes queued for the
// next readiness event; this loop relies on the next read-triggered
// dispatch (or an explicit Touch/Wakeup) to retry draining.
func (r *Reactor) flush(w *Watched) {
	pending := w.Conn.PendingOutput()
	if len(pending) == 0 {
		return
	}

	n, err := syscall.Write(w.Conn.FD(), pending)
	if err != nil {
		if err != syscall.EAGAIN && err != syscall.EWOULDBLOCK {
			r.fail(w, err)
		}
		return
	}
	if n > 0 {
		w.Conn.Wrote(n)
		if r.tracer != nil {
			r.tracer.TraceNetwork("tcp", uint64(n), 0, false)
		}
	}

	if len(w.Conn.PendingOutput()) > HighWaterMark {
		w.Conn.SetState(conn.StateNoRead)
	} else if len(w.Conn.PendingOutput()) < LowWaterMark {
		w.Conn.ClearState(conn.StateNoRead)
	}
}

func (r *Reactor) fail(w *Watched, err error) {
	if w.OnError != nil {
		w.OnError(w.Conn, err)
	}
	r.Remove(w.Conn.FD())
}

func (r *Reactor) fireExpiredTimers() {
	r.mgr.mu.Lock()
	now := time.Now()
	var expired []*Watched
	for r.mgr.timers.Len() > 0 && !r.mgr.timers[0].deadline.After(now) {
		w := heap.Pop(&r.mgr.timers).(*Watched)
		expired = append(expired, w)
	}
	r.mgr.mu.Unlock()

	for _, w := range expired {
		r.fail(w, errIdleTimeout)
	}
}

var (
	errPeerClosed  = &reactorError{"reactor: peer closed connection"}
	errIdleTimeout = &reactorError{"reactor: connection idle timeout"}
)

type reactorError struct{ s string }

func (e *reactorError) Error() string { return e.s }
