package conn

import "errors"

var (
	// ErrNeedMore is returned by a Decoder when the buffered bytes do
	// not yet contain one complete message.
	ErrNeedMore = errors.New("conn: need more data")

	// ErrBufferOverflow is returned by Feed when accepting more bytes
	// would exceed the connection's buffered-input cap.
	ErrBufferOverflow = errors.New("conn: input buffer overflow")

	// ErrClosed is returned by operations attempted on a Connection
	// after it has been closed.
	ErrClosed = errors.New("conn: connection closed")
)
