package httpcodec

import "sync"

// Response is the client-side parsed form of an HTTP/1.1 status line
// plus headers plus body, produced by ParseResponse.
type Response struct {
	Proto      string
	StatusCode int
	StatusText string

	ContentType   string
	ContentLength string
	Connection    string
	ExtraHeaders  map[string]string

	Flags BodyFlags
	Body  []byte

	// UntilClose is set when neither Content-Length nor
	// Transfer-Encoding were present, so the body runs until the
	// connection is closed by the peer (ParseResponse cannot complete
	// such a response on its own; the caller accumulates bytes until
	// EOF and calls FinishUntilClose).
	UntilClose bool
}

var responsePool = sync.Pool{
	New: func() any { return &Response{Body: make([]byte, 0, 1024)} },
}

func AcquireResponse() *Response { return responsePool.Get().(*Response) }

func ReleaseResponse(r *Response) {
	r.Reset()
	responsePool.Put(r)
}

func (r *Response) Reset() {
	r.Proto = ""
	r.StatusCode = 0
	r.StatusText = ""
	r.ContentType = ""
	r.ContentLength = ""
	r.Connection = ""
	r.Flags = 0
	r.UntilClose = false
	for k := range r.ExtraHeaders {
		delete(r.ExtraHeaders, k)
	}
	r.Body = r.Body[:0]
}

func (r *Response) SetHeader(key, value string) {
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
	case "Connection":
		r.Connection = value
	default:
		if r.ExtraHeaders == nil {
			r.ExtraHeaders = make(map[string]string)
		}
		r.ExtraHeaders[key] = value
	}
}

func (r *Response) Header(key string) string {
	switch key {
	case "Content-Type":
		return r.ContentType
	case "Content-Length":
		return r.ContentLength
	case "Connection":
		return r.Connection
	default:
		if r.ExtraHeaders != nil {
			return r.ExtraHeaders[key]
		}
		return ""
	}
}
