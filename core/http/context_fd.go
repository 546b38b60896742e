package http

import (
	"encoding/json"
	"net"
	"syscall"

	"github.com/riftcore/coreserver/core/httpcodec"
	"github.com/riftcore/coreserver/core/sendfile"
)

// FDContext is a file-descriptor based context for epoll/kqueue
type FDContext struct {
	// File descriptor for syscall.Write
	fd int

	// Request
	request *Request

	// Parameters (fixed array for performance)
	paramKeys        [4]string
	paramValues      [4]string
	paramCount       int
	paramMapOverflow map[string]string

	// Response buffer (pre-allocated)
	responseBuf []byte

	// Response state
	responseHeaders map[string]string
	statusCode      int
	aborted         bool

	// keepAlive controls the Connection header emitted by the response
	// methods; the engine sets it per request from the parsed
	// Connection header and HTTP version.
	keepAlive bool

	files *sendfile.FileCache
}

// NewFDContext creates a new FD-based context
func NewFDContext(fd int, req *Request) *FDContext {
	return &FDContext{
		fd:          fd,
		request:     req,
		responseBuf: make([]byte, 0, 4096),
		statusCode:  200,
		aborted:     false,
		keepAlive:   true,
	}
}

// SetFileCache attaches a shared sendfile.FileCache so ServeFile reuses
// already-open descriptors across requests instead of the package-level
// default cache.
func (c *FDContext) SetFileCache(fc *sendfile.FileCache) {
	c.files = fc
}

// SetKeepAlive controls the Connection header emitted by response
// methods for this request.
func (c *FDContext) SetKeepAlive(keepAlive bool) {
	c.keepAlive = keepAlive
}

// Request information methods
func (c *FDContext) Method() string {
	return c.request.Method
}

func (c *FDContext) Path() string {
	return c.request.Path
}

func (c *FDContext) Param(key string) string {
	// Check fixed array first
	for i := 0; i < c.paramCount && i < 4; i++ {
		if c.paramKeys[i] == key {
			return c.paramValues[i]
		}
	}
	// Check overflow map
	if c.paramMapOverflow != nil {
		return c.paramMapOverflow[key]
	}
	return ""
}

func (c *FDContext) Query(key string) string {
	if c.request.QueryParams == nil {
		return ""
	}
	return c.request.QueryParams[key]
}

func (c *FDContext) Header(key string) string {
	return c.request.Header(key)
}

func (c *FDContext) Body() []byte {
	return c.request.Body
}

func (c *FDContext) SetParam(key, value string) {
	if c.paramCount < 4 {
		c.paramKeys[c.paramCount] = key
		c.paramValues[c.paramCount] = value
		c.paramCount++
	} else {
		if c.paramMapOverflow == nil {
			c.paramMapOverflow = make(map[string]string)
		}
		c.paramMapOverflow[key] = value
	}
}

// writeResponse writes the response buffer to the file descriptor
func (c *FDContext) writeResponse() error {
	// Write all data (handle partial writes)
	written := 0
	for written < len(c.responseBuf) {
		n, err := syscall.Write(c.fd, c.responseBuf[written:])
		if err != nil {
			if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
				// Would block - in production, should return to event loop
				// For now, retry immediately (simplified)
				continue
			}
			return err
		}
		written += n
	}
	return nil
}

func (c *FDContext) connectionHeader() string {
	if c.keepAlive {
		return "keep-alive"
	}
	return "close"
}

// String sends a plain text response
func (c *FDContext) String(code int, s string) {
	c.responseBuf = httpcodec.EmitResponse(c.responseBuf[:0], code, "text/plain", []byte(s), c.keepAlive)
	c.writeResponse()
}

// JSON sends a JSON response
func (c *FDContext) JSON(code int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.Error(500, "Failed to marshal JSON")
		return
	}
	c.responseBuf = httpcodec.EmitResponse(c.responseBuf[:0], code, "application/json", data, c.keepAlive)
	c.writeResponse()
}

// Bytes sends a raw bytes response
func (c *FDContext) Bytes(code int, data []byte) {
	c.responseBuf = httpcodec.EmitResponse(c.responseBuf[:0], code, "application/octet-stream", data, c.keepAlive)
	c.writeResponse()
}

// Data sends a response with custom content type
func (c *FDContext) Data(code int, contentType string, data []byte) {
	c.responseBuf = httpcodec.EmitResponse(c.responseBuf[:0], code, contentType, data, c.keepAlive)
	c.writeResponse()
}

// Error sends an error response
func (c *FDContext) Error(code int, message string) {
	c.JSON(code, map[string]any{
		"code":    code,
		"message": message,
	})
}

// Success sends a success response
func (c *FDContext) Success(data any) {
	c.JSON(200, map[string]any{
		"code":    0,
		"data":    data,
		"message": "success",
	})
}

// ServeFile serves a file using sendfile (zero-copy), resolving the
// descriptor through the attached FileCache when present so repeated
// requests for the same path skip the open(2) call.
func (c *FDContext) ServeFile(filePath string) error {
	cache := c.files
	if cache == nil {
		cache = defaultFileCache
	}

	file, err := cache.Get(filePath)
	if err != nil {
		c.String(404, "File not found")
		return err
	}

	info, err := file.Stat()
	if err != nil {
		c.String(500, "Internal server error")
		return err
	}
	size := info.Size()

	contentType := sendfile.GetContentType(filePath)

	c.responseBuf = httpcodec.EmitStatusLine(c.responseBuf[:0], 200)
	c.responseBuf = httpcodec.EmitHeader(c.responseBuf, "Content-Type", contentType)
	c.responseBuf = append(c.responseBuf, "Content-Length: "...)
	c.responseBuf = httpcodec.AppendInt(c.responseBuf, int(size))
	c.responseBuf = append(c.responseBuf, "\r\n"...)
	c.responseBuf = httpcodec.EmitHeader(c.responseBuf, "Connection", c.connectionHeader())
	c.responseBuf = append(c.responseBuf, "\r\n"...)

	if err := c.writeResponse(); err != nil {
		return err
	}

	_, err = sendfile.SendFile(c.fd, filePath, 0, int(size))
	return err
}

// Bind decodes the request body as JSON into v
func (c *FDContext) Bind(v any) error {
	return json.Unmarshal(c.request.Body, v)
}

// Conn returns nil (FD context doesn't use net.Conn)
func (c *FDContext) Conn() net.Conn {
	return nil
}

// GetHeader returns a request header value
func (c *FDContext) GetHeader(key string) string {
	return c.Header(key)
}

// SetHeader records a response header in responseHeaders. The response
// writers in this file do not emit these entries.
func (c *FDContext) SetHeader(key, value string) {
	if c.responseHeaders == nil {
		c.responseHeaders = make(map[string]string, 8)
	}
	c.responseHeaders[key] = value
}

// Status records code in statusCode. The response writers take their
// status as an argument and do not read this field.
func (c *FDContext) Status(code int) {
	c.statusCode = code
}

// IsAborted returns whether the request has been aborted
func (c *FDContext) IsAborted() bool {
	return c.aborted
}

// Abort aborts the request processing
func (c *FDContext) Abort() {
	c.aborted = true
}

// Reset resets the context for reuse (memory not freed, just reset)
func (c *FDContext) Reset(fd int, req *Request) {
	c.fd = fd
	c.request = req

	// Reset params without freeing memory
	c.paramCount = 0
	// Clear overflow map if exists
	if c.paramMapOverflow != nil {
		for k := range c.paramMapOverflow {
			delete(c.paramMapOverflow, k)
		}
	}

	// Clear response headers
	if c.responseHeaders != nil {
		for k := range c.responseHeaders {
			delete(c.responseHeaders, k)
		}
	}

	// Keep slice capacity, just reset length
	c.responseBuf = c.responseBuf[:0]
	c.statusCode = 200
	c.aborted = false
	c.keepAlive = true
}

// defaultFileCache backs ServeFile when no per-server FileCache has been
// attached via SetFileCache.
var defaultFileCache = sendfile.NewFileCache(1000)
