package conn

import "syscall"

// Acceptor wraps a non-blocking listening socket fd. The reactor polls
// its fd for readability and calls AcceptAll on each readiness event.
type Acceptor struct {
	fd int
}

// NewAcceptor wraps an already-bound, already-listening, non-blocking
// fd (e.g. from net.ListenTCP followed by File()+SetNonblock, as the
// teacher's Engine.Run does it).
func NewAcceptor(fd int) *Acceptor {
	return &Acceptor{fd: fd}
}

// FD returns the listening socket's file descriptor.
func (a *Acceptor) FD() int {
	return a.fd
}

// AcceptAll drains all pending connections from the listening socket,
// invoking onAccept for each newly accepted, non-blocking fd. It
// returns once accept(2) reports EAGAIN.
func (a *Acceptor) AcceptAll(onAccept func(fd int)) error {
	for {
		nfd, _, err := syscall.Accept(a.fd)
		if err != nil {
			if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
				return nil
			}
			return err
		}

		if err := syscall.SetNonblock(nfd, true); err != nil {
			syscall.Close(nfd)
			continue
		}
		syscall.SetsockoptInt(nfd, syscall.IPPROTO_TCP, syscall.TCP_NODELAY, 1)
		syscall.SetsockoptInt(nfd, syscall.SOL_SOCKET, syscall.SO_KEEPALIVE, 1)

		onAccept(nfd)
	}
}

// Close closes the listening socket.
func (a *Acceptor) Close() error {
	return syscall.Close(a.fd)
}
