package httpcodec

// StatusText returns the reason phrase for a known status code, or
// "Unknown" otherwise.
func StatusText(code int) string {
	switch code {
	case 200:
		return "OK"
	case 201:
		return "Created"
	case 204:
		return "No Content"
	case 206:
		return "Partial Content"
	case 301:
		return "Moved Permanently"
	case 302:
		return "Found"
	case 304:
		return "Not Modified"
	case 400:
		return "Bad Request"
	case 401:
		return "Unauthorized"
	case 403:
		return "Forbidden"
	case 404:
		return "Not Found"
	case 405:
		return "Method Not Allowed"
	case 408:
		return "Request Timeout"
	case 413:
		return "Payload Too Large"
	case 429:
		return "Too Many Requests"
	case 500:
		return "Internal Server Error"
	case 502:
		return "Bad Gateway"
	case 503:
		return "Service Unavailable"
	default:
		return "Unknown"
	}
}

// AppendInt appends the decimal form of i to b without allocating an
// intermediate string.
func AppendInt(b []byte, i int) []byte {
	if i == 0 {
		return append(b, '0')
	}
	if i < 0 {
		b = append(b, '-')
		i = -i
	}
	var digits [20]byte
	n := 0
	for i > 0 {
		digits[n] = byte('0' + i%10)
		i /= 10
		n++
	}
	for n > 0 {
		n--
		b = append(b, digits[n])
	}
	return b
}

// EmitStatusLine appends "HTTP/1.1 <code> <text>\r\n" to b.
func EmitStatusLine(b []byte, code int) []byte {
	b = append(b, "HTTP/1.1 "...)
	b = AppendInt(b, code)
	b = append(b, ' ')
	b = append(b, StatusText(code)...)
	return append(b, "\r\n"...)
}

// EmitRequestLine appends "<method> <path> HTTP/1.1\r\n" to b, the
// client-side counterpart to EmitStatusLine.
func EmitRequestLine(b []byte, method, path string) []byte {
	b = append(b, method...)
	b = append(b, ' ')
	b = append(b, path...)
	return append(b, " HTTP/1.1\r\n"...)
}

// EmitHeader appends "<key>: <value>\r\n" to b.
func EmitHeader(b []byte, key, value string) []byte {
	b = append(b, key...)
	b = append(b, ':', ' ')
	b = append(b, value...)
	return append(b, "\r\n"...)
}

// EmitResponse builds a full, Content-Length-framed response (status
// line, headers, blank line, body) into a buffer taken from dst[:0].
// keepAlive controls the echoed Connection header.
func EmitResponse(dst []byte, code int, contentType string, body []byte, keepAlive bool) []byte {
	dst = EmitStatusLine(dst, code)
	dst = EmitHeader(dst, "Content-Type", contentType)
	dst = append(dst, "Content-Length: "...)
	dst = AppendInt(dst, len(body))
	dst = append(dst, "\r\n"...)
	if keepAlive {
		dst = EmitHeader(dst, "Connection", "keep-alive")
	} else {
		dst = EmitHeader(dst, "Connection", "close")
	}
	dst = append(dst, "\r\n"...)
	return append(dst, body...)
}

// EmitChunkedHeader builds the status line and headers for a streaming
// chunked response, without a Content-Length. Callers write successive
// EncodeChunked(payload) frames after this, then a final
// EncodeChunked(nil) to terminate the stream.
func EmitChunkedHeader(dst []byte, code int, contentType string, keepAlive bool) []byte {
	dst = EmitStatusLine(dst, code)
	dst = EmitHeader(dst, "Content-Type", contentType)
	dst = EmitHeader(dst, "Transfer-Encoding", "chunked")
	if keepAlive {
		dst = EmitHeader(dst, "Connection", "keep-alive")
	} else {
		dst = EmitHeader(dst, "Connection", "close")
	}
	return append(dst, "\r\n"...)
}
