package httpcodec

import "strconv"

// DecodeChunked dechunks a complete chunked-transfer body (the trailing
// "0\r\n\r\n" must already be present in data). It returns the
// concatenated chunk payloads and the number of bytes of data consumed,
// or ErrNeedMore if the terminating chunk has not arrived yet.
func DecodeChunked(data []byte) (body []byte, consumed int, err error) {
	pos := 0
	for {
		lineEnd := indexByte(data[pos:], '\n')
		if lineEnd < 0 {
			return nil, 0, ErrNeedMore
		}
		lineEnd += pos

		sizeLine := data[pos:lineEnd]
		if len(sizeLine) > 0 && sizeLine[len(sizeLine)-1] == '\r' {
			sizeLine = sizeLine[:len(sizeLine)-1]
		}
		// strip chunk extensions (";name=value")
		if semi := indexByte(sizeLine, ';'); semi >= 0 {
			sizeLine = sizeLine[:semi]
		}

		size, convErr := strconv.ParseInt(string(sizeLine), 16, 64)
		if convErr != nil || size < 0 {
			return nil, 0, ErrInvalidRequest
		}
		if size > MaxChunkSize {
			return nil, 0, ErrChunkTooLarge
		}

		chunkStart := lineEnd + 1
		chunkEnd := chunkStart + int(size)
		if chunkEnd+2 > len(data) {
			return nil, 0, ErrNeedMore
		}

		if data[chunkEnd] != '\r' || data[chunkEnd+1] != '\n' {
			return nil, 0, ErrBadChunkCRLF
		}

		if size == 0 {
			// trailer section: read until blank line
			trailerEnd := indexString(data[chunkEnd+2:], "\r\n\r\n")
			if trailerEnd < 0 {
				// Accept bare CRLF with no trailers.
				return body, chunkEnd + 2, nil
			}
			return body, chunkEnd + 2 + trailerEnd + 4, nil
		}

		body = append(body, data[chunkStart:chunkEnd]...)
		pos = chunkEnd + 2
	}
}

// EncodeChunked frames body as a single chunk followed by the
// terminating zero-length chunk, producing output a conformant decoder
// round-trips back to body exactly.
func EncodeChunked(body []byte) []byte {
	if len(body) == 0 {
		return []byte("0\r\n\r\n")
	}
	out := make([]byte, 0, len(body)+32)
	out = append(out, []byte(strconv.FormatInt(int64(len(body)), 16))...)
	out = append(out, '\r', '\n')
	out = append(out, body...)
	out = append(out, '\r', '\n')
	out = append(out, '0', '\r', '\n', '\r', '\n')
	return out
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

func indexString(b []byte, s string) int {
	n := len(s)
	if n == 0 {
		return 0
	}
	for i := 0; i+n <= len(b); i++ {
		if string(b[i:i+n]) == s {
			return i
		}
	}
	return -1
}
