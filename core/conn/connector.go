package conn

import (
	"context"
	"net"
	"sync"
	"syscall"
)

// ConnectorState mirrors the original's RESOLVING -> CONNECTING ->
// CONNECTED | ERROR outbound-dial state machine.
type ConnectorState int

const (
	ConnectorResolving ConnectorState = iota
	ConnectorConnecting
	ConnectorConnected
	ConnectorError
)

// Connector drives an outbound TCP dial through resolution and
// connection, rotating across every address net.Resolver returns
// before giving up. There is no non-blocking connect(2) state machine
// here: net.DialContext already does resolve+connect on its own
// goroutine and honors ctx cancellation/deadlines, which matches the
// original's RESOLVING/CONNECTING states without hand-rolled socket
// polling — once connected, the *net.TCPConn's fd is extracted and
// handed to a Connection for the reactor to own from then on.
type Connector struct {
	mu       sync.Mutex
	state    ConnectorState
	resolver *net.Resolver
	lastErr  error
}

// NewConnector creates a Connector using the stdlib default resolver.
func NewConnector() *Connector {
	return &Connector{resolver: net.DefaultResolver}
}

// State returns the connector's current state.
func (c *Connector) State() ConnectorState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the error from the most recent failed Dial, if any.
func (c *Connector) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Dial resolves host:port and connects to the first reachable address,
// returning the connected fd set non-blocking (ready to be wrapped in
// a Connection and handed to a reactor), or an error after exhausting
// every resolved address.
func (c *Connector) Dial(ctx context.Context, network, addr string) (int, error) {
	c.setState(ConnectorResolving)

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		c.fail(err)
		return -1, err
	}

	ips, err := c.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		c.fail(err)
		return -1, err
	}

	c.setState(ConnectorConnecting)

	var lastErr error
	dialer := &net.Dialer{}
	for _, ip := range ips {
		conn, derr := dialer.DialContext(ctx, network, net.JoinHostPort(ip.IP.String(), port))
		if derr != nil {
			lastErr = derr
			continue
		}

		tcpConn, ok := conn.(*net.TCPConn)
		if !ok {
			conn.Close()
			lastErr = errNotTCP
			continue
		}

		fd, ferr := fdFromTCPConn(tcpConn)
		conn.Close()
		if ferr != nil {
			lastErr = ferr
			continue
		}

		c.setState(ConnectorConnected)
		return fd, nil
	}

	c.fail(lastErr)
	return -1, lastErr
}

func (c *Connector) setState(s ConnectorState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Connector) fail(err error) {
	c.mu.Lock()
	c.state = ConnectorError
	c.lastErr = err
	c.mu.Unlock()
}

func fdFromTCPConn(tcpConn *net.TCPConn) (int, error) {
	sc, err := tcpConn.SyscallConn()
	if err != nil {
		return -1, err
	}

	var fd int
	var dupErr error
	err = sc.Control(func(rawFD uintptr) {
		fd, dupErr = syscall.Dup(int(rawFD))
	})
	if err != nil {
		return -1, err
	}
	if dupErr != nil {
		return -1, dupErr
	}

	// The duplicate is ours to own independent of the source
	// *net.TCPConn's lifetime; put it in non-blocking mode for the
	// reactor.
	if err := syscall.SetNonblock(fd, true); err != nil {
		syscall.Close(fd)
		return -1, err
	}
	return fd, nil
}

var errNotTCP = &connError{"conn: dialed connection is not TCP"}

type connError struct{ s string }

func (e *connError) Error() string { return e.s }
