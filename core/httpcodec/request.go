package httpcodec

import "sync"

// BodyFlags records which body-framing mechanism a message declared.
type BodyFlags uint8

const (
	FlagContentLength BodyFlags = 1 << iota
	FlagChunked
	FlagGzipContentEncoding
)

// Request is a zero-allocation-leaning HTTP/1.1 request. Strings produced
// by Parse point into the connection's read buffer (unsafeString) and
// must not outlive it; callers that need to retain a field across a
// buffer reuse must copy it.
type Request struct {
	Method string
	Path   string
	Query  string
	Proto  string

	ContentType   string
	ContentLength string
	UserAgent     string
	Accept        string
	Host          string
	Connection    string

	ExtraHeaders map[string]string
	QueryParams  map[string]string

	Flags BodyFlags
	Body  []byte
}

var requestPool = sync.Pool{
	New: func() any {
		return &Request{Body: make([]byte, 0, 1024)}
	},
}

// AcquireRequest returns a pooled Request ready for reuse.
func AcquireRequest() *Request {
	return requestPool.Get().(*Request)
}

// ReleaseRequest resets r and returns it to the pool.
func ReleaseRequest(r *Request) {
	r.Reset()
	requestPool.Put(r)
}

// Reset clears r for reuse without releasing its backing arrays.
func (r *Request) Reset() {
	r.Method = ""
	r.Path = ""
	r.Query = ""
	r.Proto = ""
	r.ContentType = ""
	r.ContentLength = ""
	r.UserAgent = ""
	r.Accept = ""
	r.Host = ""
	r.Connection = ""
	r.Flags = 0

	for k := range r.ExtraHeaders {
		delete(r.ExtraHeaders, k)
	}
	for k := range r.QueryParams {
		delete(r.QueryParams, k)
	}
	r.Body = r.Body[:0]
}

// SetHeader stores a header, routing well-known names into their
// dedicated fields and everything else into ExtraHeaders.
func (r *Request) SetHeader(key, value string) {
	switch key {
	case "Content-Type":
		r.ContentType = value
	case "Content-Length":
		r.ContentLength = value
		r.Flags |= FlagContentLength
	case "Transfer-Encoding":
		if containsToken(value, "chunked") {
			r.Flags |= FlagChunked
		}
		if containsToken(value, "gzip") {
			r.Flags |= FlagGzipContentEncoding
		}
	case "User-Agent":
		r.UserAgent = value
	case "Accept":
		r.Accept = value
	case "Host":
		r.Host = value
	case "Connection":
		r.Connection = value
	default:
		if r.ExtraHeaders == nil {
			r.ExtraHeaders = make(map[string]string)
		}
		r.ExtraHeaders[key] = value
	}
}

// Header looks up a header case-sensitively among the well-known fields,
// falling back to ExtraHeaders (already normalized at parse time).
func (r *Request) Header(key string) string {
	switch key {
	case "Content-Type":
		return r.ContentType
	case "Content-Length":
		return r.ContentLength
	case "User-Agent":
		return r.UserAgent
	case "Accept":
		return r.Accept
	case "Host":
		return r.Host
	case "Connection":
		return r.Connection
	default:
		if r.ExtraHeaders != nil {
			return r.ExtraHeaders[key]
		}
		return ""
	}
}

func containsToken(headerValue, token string) bool {
	start := 0
	for i := 0; i <= len(headerValue); i++ {
		if i == len(headerValue) || headerValue[i] == ',' {
			field := trimSpace(headerValue[start:i])
			if equalFold(field, token) {
				return true
			}
			start = i + 1
		}
	}
	return false
}

func trimSpace(s string) string {
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\t') {
		s = s[1:]
	}
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t') {
		s = s[:len(s)-1]
	}
	return s
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
