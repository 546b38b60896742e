package http

import (
	"net"

	"github.com/riftcore/coreserver/core/router"
)

// Context is the handler-facing request/response facade. FDContext is
// the only implementation carried forward; the reactor always owns a
// connection via its file descriptor (see core/conn.Connection), so
// every Context in this tree is FD-based rather than net.Conn-based.
type Context interface {
	// Request information
	Method() string
	Path() string
	Param(key string) string
	Query(key string) string
	Header(key string) string
	Body() []byte
	SetParam(key, value string)

	// Response methods
	String(code int, s string)
	JSON(code int, v any)
	Bytes(code int, data []byte)
	Data(code int, contentType string, data []byte)
	Error(code int, message string)
	Success(data any)
	ServeFile(filePath string) error

	// Binding
	Bind(v any) error

	// Connection access. Returns nil for FD-based contexts; present for
	// interface compatibility with code that still type-switches on it.
	Conn() net.Conn
}

// HandlerFunc is the Context-typed handler signature callers write
// against, matching the teacher's per-verb Engine.GET/POST/... surface.
type HandlerFunc func(Context)

// Wrap adapts a HandlerFunc into the router.HandlerFunc core/transport
// binds, the same ctx.(Context) cast the teacher's Engine.GET/POST/...
// methods each repeated inline.
func Wrap(fn HandlerFunc) router.HandlerFunc {
	return func(ctx any) {
		fn(ctx.(Context))
	}
}
