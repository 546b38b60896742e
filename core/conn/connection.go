// Package conn implements the connection layer sitting directly on top
// of core/poller: Connection (buffered, non-blocking read/write over a
// raw fd or crypto/tls.Conn), Acceptor (listening-socket admission) and
// Connector (outbound dial state machine). core/reactor owns the event
// loop that drives these; this package only owns per-connection state.
package conn

import (
	"sync"
	"sync/atomic"

	"github.com/riftcore/coreserver/core/pools"
)

// State is a bitmask of per-connection flags. A plain four-state int
// (as the teacher's core.Connection uses) cannot express the
// independent closed/noRead/noWrite/waitForRead/waitForWrite/postponed
// axes the reactor needs, so this is promoted to a bitfield.
type State uint16

const (
	StateClosed State = 1 << iota
	StateNoRead
	StateNoWrite
	StateWaitForRead
	StateWaitForWrite
	StatePostponed
)

// MaxBufferedInput is the default cap on unread, buffered input bytes
// per connection before Processing reports an error; a connection that
// never frames a complete message within this budget is almost
// certainly a bad client or protocol mismatch.
const MaxBufferedInput = 4 << 20 // 4 MiB

// Decoder is implemented by a transport-specific codec: given the
// currently buffered bytes, it reports whether a complete message was
// consumed (and how many bytes), or that more data is needed.
type Decoder interface {
	// Decode attempts to consume one complete message from buf.
	// consumed is always <= len(buf). err == ErrNeedMore means buf does
	// not yet hold a complete message; any other non-nil err is fatal
	// to the connection.
	Decode(buf []byte) (consumed int, err error)
}

// Connection wraps one accepted or dialed file descriptor with a
// growable input buffer capped at maxBuffered bytes and an output
// buffer the reactor drains on writability.
type Connection struct {
	fd int

	mu    sync.Mutex
	state atomic.Uint32 // State, accessed atomically outside mu for fast reads

	in          []byte
	maxBuffered int

	out []byte

	decoder Decoder
}

// New wraps fd with a fresh Connection using decoder to frame incoming
// bytes. maxBuffered <= 0 uses MaxBufferedInput.
func New(fd int, decoder Decoder, maxBuffered int) *Connection {
	if maxBuffered <= 0 {
		maxBuffered = MaxBufferedInput
	}
	c := &Connection{
		fd:          fd,
		maxBuffered: maxBuffered,
		decoder:     decoder,
		in:          pools.GetBytes(4096)[:0],
	}
	return c
}

// Release returns c's input buffer to the shared byte pool. Called once
// by the reactor when fd is removed; c must not be used afterward. A
// buffer that outgrew its pooled tier via append is silently dropped by
// pools.PutBytes rather than returned, which is fine: it just means one
// fewer reusable buffer, not a leak.
func (c *Connection) Release() {
	c.mu.Lock()
	buf := c.in
	c.in = nil
	c.mu.Unlock()
	if buf != nil {
		pools.PutBytes(buf)
	}
}

// FD returns the underlying file descriptor, for poller registration.
func (c *Connection) FD() int {
	return c.fd
}

// State returns the current flag bitmask.
func (c *Connection) State() State {
	return State(c.state.Load())
}

// SetState ORs flags into the bitmask.
func (c *Connection) SetState(flags State) {
	for {
		old := c.state.Load()
		if !c.state.CompareAndSwap(old, old|uint32(flags)) {
			continue
		}
		return
	}
}

// ClearState clears flags from the bitmask.
func (c *Connection) ClearState(flags State) {
	for {
		old := c.state.Load()
		if !c.state.CompareAndSwap(old, old&^uint32(flags)) {
			continue
		}
		return
	}
}

// IsClosed reports whether StateClosed is set.
func (c *Connection) IsClosed() bool {
	return c.State()&StateClosed != 0
}

// Feed appends newly read bytes to the input buffer, capping total
// buffered input at maxBuffered.
func (c *Connection) Feed(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.in)+len(data) > c.maxBuffered {
		return ErrBufferOverflow
	}
	c.in = append(c.in, data...)
	return nil
}

// Processing drains as many complete messages as the decoder can frame
// out of the current buffer, invoking onMessage for each with the
// exact bytes of that one message. more reports whether a further call
// might still find additional already-buffered messages (always false
// unless onMessage itself re-feeds data, which it must not).
func (c *Connection) Processing(onMessage func(msg []byte)) (more bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for len(c.in) > 0 {
		consumed, derr := c.decoder.Decode(c.in)
		if derr == ErrNeedMore {
			return false, nil
		}
		if derr != nil {
			return false, derr
		}
		if consumed == 0 {
			return false, nil
		}
		msg := append([]byte(nil), c.in[:consumed]...)
		c.in = c.in[consumed:]
		onMessage(msg)
	}
	return len(c.in) > 0, nil
}

// QueueWrite appends data to the pending output buffer. The reactor is
// responsible for flushing it on writability.
func (c *Connection) QueueWrite(data []byte) {
	c.mu.Lock()
	c.out = append(c.out, data...)
	c.mu.Unlock()
}

// PendingOutput returns the currently queued, unwritten output bytes.
func (c *Connection) PendingOutput() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out
}

// Wrote removes n bytes from the front of the pending output buffer
// after a successful partial or full write.
func (c *Connection) Wrote(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.out = c.out[n:]
}
