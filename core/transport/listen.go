package transport

import (
	"fmt"
	"net"
	"syscall"
)

// listenTCP opens a non-blocking listening socket on host:port and
// returns its raw fd, ready to hand to conn.NewAcceptor. Uses
// net.ListenTCP then extracts the fd via (*os.File).Fd rather than
// hand-rolling the socket()/bind()/listen() syscall sequence, matching
// the teacher's own core.Engine.Run listener setup.
func listenTCP(host string, port int) (int, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	laddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return -1, err
	}

	ln, err := net.ListenTCP("tcp", laddr)
	if err != nil {
		return -1, err
	}

	lnFile, err := ln.File()
	if err != nil {
		ln.Close()
		return -1, err
	}

	// lnFile.Fd() is a dup of the listener's socket still owned by
	// lnFile; dup it again so closing lnFile (required to avoid leaking
	// it to a GC finalizer) doesn't take our fd down with it, the same
	// take-ownership-then-close-the-source discipline conn.Connector
	// uses when extracting a raw fd from a net.TCPConn.
	ownedFd, dupErr := syscall.Dup(int(lnFile.Fd()))
	lnFile.Close()
	ln.Close()
	if dupErr != nil {
		return -1, dupErr
	}

	if err := syscall.SetNonblock(ownedFd, true); err != nil {
		syscall.Close(ownedFd)
		return -1, err
	}
	return ownedFd, nil
}
