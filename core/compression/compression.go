// Package compression implements the one-byte prefix framing used to
// carry optionally-compressed payloads (SObj trees, RPC frame bodies):
// a leading flag byte of FlagStored or FlagDeflate, followed by a
// little-endian uint32 original length only when deflated, followed by
// the payload.
package compression

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"io"
)

// Flag tags how the payload following it is framed.
type Flag byte

const (
	// FlagStored means the payload is carried verbatim, uncompressed.
	FlagStored Flag = 0
	// FlagDeflate means the payload is zlib-deflated and prefixed with
	// its original length. Named for the actual algorithm
	// (compress/zlib) rather than "gzip" — the original's own
	// implementation calls zlib's compress/uncompress, not the
	// gzip container format, despite its "Gzip" naming.
	FlagDeflate Flag = 1
)

// MinCompressSize is the smallest payload Compress will actually
// deflate; anything at or under this size is stored verbatim, since
// zlib's own framing overhead outweighs the savings below this size.
const MinCompressSize = 1024

var (
	ErrShortInput  = errors.New("compression: input too short to carry a flag byte")
	ErrBadLength   = errors.New("compression: truncated length prefix")
	ErrUnknownFlag = errors.New("compression: unknown flag byte")
)

// Compress frames in, deflating it when it is larger than
// MinCompressSize. Small inputs are always stored, matching the
// original's skip-compression-below-threshold rule.
func Compress(in []byte) []byte {
	if len(in) <= MinCompressSize {
		return storeFrame(in)
	}

	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(in); err != nil {
		return storeFrame(in)
	}
	if err := w.Close(); err != nil {
		return storeFrame(in)
	}

	out := make([]byte, 0, 1+4+buf.Len())
	out = append(out, byte(FlagDeflate))
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(in)))
	out = append(out, lenBuf[:]...)
	out = append(out, buf.Bytes()...)
	return out
}

func storeFrame(in []byte) []byte {
	out := make([]byte, 0, 1+len(in))
	out = append(out, byte(FlagStored))
	out = append(out, in...)
	return out
}

// Decompress reverses Compress, inflating the payload when its flag
// byte is FlagDeflate.
func Decompress(in []byte) ([]byte, error) {
	if len(in) < 1 {
		return nil, ErrShortInput
	}

	switch Flag(in[0]) {
	case FlagStored:
		out := make([]byte, len(in)-1)
		copy(out, in[1:])
		return out, nil

	case FlagDeflate:
		if len(in) < 1+4 {
			return nil, ErrBadLength
		}
		origLen := binary.LittleEndian.Uint32(in[1:5])

		r, err := zlib.NewReader(bytes.NewReader(in[5:]))
		if err != nil {
			return nil, err
		}
		defer r.Close()

		out := make([]byte, origLen)
		if _, err := io.ReadFull(r, out); err != nil {
			return nil, err
		}
		return out, nil

	default:
		return nil, ErrUnknownFlag
	}
}
