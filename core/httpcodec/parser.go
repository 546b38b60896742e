package httpcodec

import (
	"bytes"
	"unsafe"

	"golang.org/x/net/http/httpguts"
)

// unsafeString views b as a string without copying. The result must not
// outlive b (or any reuse of b's backing array).
func unsafeString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return *(*string)(unsafe.Pointer(&b))
}

var allowedMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

// ParseRequest parses a single HTTP/1.1 request out of the front of data.
// It returns ErrNeedMore when the header section has not fully arrived
// and ErrHeaderTooLarge when the header section would exceed maxHeader
// before terminating. On success it returns the parsed Request and the
// number of bytes of data consumed (so the caller can slide its read
// buffer).
func ParseRequest(data []byte, maxHeader int) (*Request, int, error) {
	if maxHeader <= 0 {
		maxHeader = MaxHeaderSize
	}

	headerEnd := bytes.Index(data, []byte("\r\n\r\n"))
	if headerEnd < 0 {
		if len(data) > maxHeader {
			return nil, 0, ErrHeaderTooLarge
		}
		return nil, 0, ErrNeedMore
	}
	if headerEnd > maxHeader {
		return nil, 0, ErrHeaderTooLarge
	}

	head := data[:headerEnd]
	lineEnd := bytes.IndexByte(head, '\n')
	if lineEnd < 0 {
		return nil, 0, ErrInvalidRequest
	}
	line := head[:lineEnd]
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}

	sp1 := bytes.IndexByte(line, ' ')
	if sp1 <= 0 {
		return nil, 0, ErrInvalidRequest
	}
	sp2 := bytes.IndexByte(line[sp1+1:], ' ')
	if sp2 < 0 {
		return nil, 0, ErrInvalidRequest
	}
	sp2 += sp1 + 1

	req := AcquireRequest()
	req.Method = unsafeString(line[:sp1])
	if !allowedMethods[req.Method] {
		ReleaseRequest(req)
		return nil, 0, ErrUnsupportedMethod
	}

	target := unsafeString(line[sp1+1 : sp2])
	req.Proto = unsafeString(line[sp2+1:])
	if req.Proto != "HTTP/1.0" && req.Proto != "HTTP/1.1" {
		ReleaseRequest(req)
		return nil, 0, ErrInvalidRequest
	}

	if qIdx := bytes.IndexByte([]byte(target), '?'); qIdx >= 0 {
		req.Path = target[:qIdx]
		req.Query = target[qIdx+1:]
		req.QueryParams = QueryParams(req.Query)
	} else {
		req.Path = target
	}

	if err := parseHeaders(req, head[lineEnd+1:]); err != nil {
		ReleaseRequest(req)
		return nil, 0, err
	}

	bodyStart := headerEnd + 4
	body := data[bodyStart:]

	switch {
	case req.Flags&FlagChunked != 0:
		decoded, consumed, err := DecodeChunked(body)
		if err != nil {
			if err == ErrNeedMore {
				return nil, 0, ErrNeedMore
			}
			ReleaseRequest(req)
			return nil, 0, err
		}
		req.Body = append(req.Body[:0], decoded...)
		return req, bodyStart + consumed, nil

	case req.Flags&FlagContentLength != 0:
		length, ok := parseContentLength(req.ContentLength)
		if !ok {
			ReleaseRequest(req)
			return nil, 0, ErrInvalidRequest
		}
		if length > MaxBodySize {
			ReleaseRequest(req)
			return nil, 0, ErrHeaderTooLarge
		}
		if len(body) < length {
			ReleaseRequest(req)
			return nil, 0, ErrNeedMore
		}
		req.Body = append(req.Body[:0], body[:length]...)
		return req, bodyStart + length, nil

	default:
		return req, bodyStart, nil
	}
}

// parseHeaders parses the CRLF-delimited header block in data, joining
// obs-fold continuation lines (leading SP/HT) onto the previous header.
// Each field name and value is validated against RFC 7230's token/
// field-value grammar via httpguts; a field that fails either check
// makes the whole request ErrInvalidRequest rather than being parsed
// with a malformed name or value silently accepted.
func parseHeaders(req *Request, data []byte) error {
	var lastKey string
	for len(data) > 0 {
		lineEnd := bytes.IndexByte(data, '\n')
		if lineEnd < 0 {
			lineEnd = len(data)
		}
		line := data[:lineEnd]
		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}

		if len(line) == 0 {
			break
		}

		if (line[0] == ' ' || line[0] == '\t') && lastKey != "" {
			// obs-fold continuation: append to the previous value.
			cont := string(bytes.TrimLeft(line, " \t"))
			if !httpguts.ValidHeaderFieldValue(cont) {
				return ErrInvalidRequest
			}
			appendFoldedHeader(req, lastKey, cont)
		} else if colon := bytes.IndexByte(line, ':'); colon > 0 {
			rawKey := bytes.TrimSpace(line[:colon])
			if !httpguts.ValidHeaderFieldName(unsafeString(rawKey)) {
				return ErrInvalidRequest
			}
			value := string(bytes.TrimSpace(line[colon+1:]))
			if !httpguts.ValidHeaderFieldValue(value) {
				return ErrInvalidRequest
			}
			key := string(normalizeHeaderName(rawKey))
			req.SetHeader(key, value)
			lastKey = key
		}

		if lineEnd == len(data) {
			break
		}
		data = data[lineEnd+1:]
	}
	return nil
}

func appendFoldedHeader(req *Request, key, cont string) {
	existing := req.Header(key)
	req.SetHeader(key, existing+" "+cont)
}

// normalizeHeaderName title-cases a header name ("content-length" ->
// "Content-Length") so case-insensitive lookups against the well-known
// fields work regardless of wire casing.
func normalizeHeaderName(name []byte) []byte {
	out := make([]byte, len(name))
	upperNext := true
	for i, c := range name {
		if upperNext && c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		} else if !upperNext && c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
		upperNext = c == '-'
	}
	return out
}

func parseContentLength(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
		n = n*10 + int(s[i]-'0')
	}
	return n, true
}
