package httpcodec

import "errors"

// Sentinel errors surfaced by the codec. ErrNeedMore is not a protocol
// violation: it tells the caller to wait for more bytes from the socket
// before retrying Parse.
var (
	ErrNeedMore       = errors.New("httpcodec: need more data")
	ErrInvalidRequest = errors.New("httpcodec: invalid request")
	ErrInvalidResponse = errors.New("httpcodec: invalid response")
	ErrHeaderTooLarge = errors.New("httpcodec: header section exceeds cap")
	ErrChunkTooLarge  = errors.New("httpcodec: chunk size exceeds cap")
	ErrBadChunkCRLF   = errors.New("httpcodec: malformed chunk terminator")
	ErrUnsupportedMethod = errors.New("httpcodec: unsupported method")
)

// MaxHeaderSize is the hard cap on the request/status-line-plus-headers
// section, matching the 4 KiB ceiling in the spec (413 over this).
const MaxHeaderSize = 4 * 1024

// MaxChunkSize bounds a single dechunked chunk (4 MiB, matching the
// per-chunk cap used for Content-Length bodies too).
const MaxChunkSize = 4 * 1024 * 1024

// MaxBodySize is the hard cap applied to a Content-Length body.
const MaxBodySize = 4 * 1024 * 1024
