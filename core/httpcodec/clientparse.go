package httpcodec

import "bytes"

// ParseResponse parses a single HTTP/1.1 response out of the front of
// data, symmetric to ParseRequest. When the response carries neither
// Content-Length nor Transfer-Encoding, the body is "until-close": the
// returned Response has UntilClose set and Body empty; the caller keeps
// appending incoming bytes and calls FinishUntilClose on EOF.
func ParseResponse(data []byte, maxHeader int) (*Response, int, error) {
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

	head := data[:headerEnd]
	lineEnd := bytes.IndexByte(head, '\n')
	if lineEnd < 0 {
		return nil, 0, ErrInvalidResponse
	}
	line := head[:lineEnd]
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}

	sp1 := bytes.IndexByte(line, ' ')
	if sp1 <= 0 {
		return nil, 0, ErrInvalidResponse
	}
	sp2 := bytes.IndexByte(line[sp1+1:], ' ')
	if sp2 < 0 {
		sp2 = len(line) - sp1 - 1
	}
	sp2 += sp1 + 1

	resp := AcquireResponse()
	resp.Proto = string(line[:sp1])
	code, ok := parseContentLength(string(line[sp1+1 : sp2]))
	if !ok {
		ReleaseResponse(resp)
		return nil, 0, ErrInvalidResponse
	}
	resp.StatusCode = code
	if sp2 < len(line) {
		resp.StatusText = string(bytes.TrimSpace(line[sp2:]))
	}

	parseResponseHeaders(resp, head[lineEnd+1:])

	bodyStart := headerEnd + 4
	body := data[bodyStart:]

	switch {
	case resp.Flags&FlagChunked != 0:
		decoded, consumed, err := DecodeChunked(body)
		if err != nil {
			if err == ErrNeedMore {
				return nil, 0, ErrNeedMore
			}
			ReleaseResponse(resp)
			return nil, 0, err
		}
		resp.Body = append(resp.Body[:0], decoded...)
		return resp, bodyStart + consumed, nil

	case resp.Flags&FlagContentLength != 0:
		length, ok := parseContentLength(resp.ContentLength)
		if !ok {
			ReleaseResponse(resp)
			return nil, 0, ErrInvalidResponse
		}
		if len(body) < length {
			ReleaseResponse(resp)
			return nil, 0, ErrNeedMore
		}
		resp.Body = append(resp.Body[:0], body[:length]...)
		return resp, bodyStart + length, nil

	default:
		resp.UntilClose = true
		resp.Body = append(resp.Body[:0], body...)
		return resp, len(data), nil
	}
}

// FinishUntilClose appends a final chunk of bytes read after the peer
// half-closed the connection to an until-close response.
func FinishUntilClose(resp *Response, tail []byte) {
	resp.Body = append(resp.Body, tail...)
}

func parseResponseHeaders(resp *Response, data []byte) {
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
			cont := string(bytes.TrimLeft(line, " \t"))
			resp.SetHeader(lastKey, resp.Header(lastKey)+" "+cont)
		} else if colon := bytes.IndexByte(line, ':'); colon > 0 {
			key := string(normalizeHeaderName(bytes.TrimSpace(line[:colon])))
			value := string(bytes.TrimSpace(line[colon+1:]))
			resp.SetHeader(key, value)
			lastKey = key
		}

		if lineEnd == len(data) {
			break
		}
		data = data[lineEnd+1:]
	}
}
