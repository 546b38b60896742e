// Package transport implements the spec's Transports registry: named,
// hot-pluggable server transports bound to URI prefixes, constructed
// through core/factory and driven by core/reactor.
package transport

import (
	"log"
	"sync"
	"syscall"

	"github.com/riftcore/coreserver/core"
	"github.com/riftcore/coreserver/core/conn"
	"github.com/riftcore/coreserver/core/http"
	"github.com/riftcore/coreserver/core/httpcodec"
	"github.com/riftcore/coreserver/core/middleware"
	"github.com/riftcore/coreserver/core/observability"
	"github.com/riftcore/coreserver/core/reactor"
	"github.com/riftcore/coreserver/core/router"
)

// AcceptorConfig describes one listening socket a transport binds.
type AcceptorConfig struct {
	Host string
	Port int
	TLS  bool
}

// Config is the factory configuration object for a server transport:
// a type discriminator plus the transport-specific fields named in
// spec.md §6 ("Factory configuration").
type Config struct {
	Name      string
	Type      string
	Acceptors []AcceptorConfig
	Bindings  []string
}

// ServerTransport is one named, independently enable/disable-able
// listener bound into the reactor, with its own URI→handler bindings.
type ServerTransport interface {
	Name() string
	BindHandler(uriPrefix string, handler router.HandlerFunc)
	Enable(r *reactor.Reactor) error
	Disable()
}

// HTTPServerTransport decodes HTTP/1.1 requests off accepted
// connections and dispatches them through a radix router, reusing
// core/http's FDContext facade for the handler-facing surface exactly
// the way the teacher's core.Engine did, generalized to a
// multi-listener, multi-binding transport instead of one hardcoded
// server loop.
type HTTPServerTransport struct {
	name      string
	acceptors []AcceptorConfig
	router    *router.RadixRouter
	pipeline  *middleware.Pipeline
	obs       *observability.Observatory

	mu        sync.Mutex
	enabled   bool
	reactor   *reactor.Reactor
	listeners []*conn.Acceptor
}

// NewHTTPServerTransport builds a transport from cfg, ready to Enable.
// Every request runs through a default middleware.Pipeline of
// Recovery (turns a handler panic into a 500 instead of taking the
// connection's goroutine down) and RequestID (stamps an
// X-Request-ID response header) before reaching the bound handler;
// Pipeline adds more with Use.
func NewHTTPServerTransport(cfg Config) *HTTPServerTransport {
	t := &HTTPServerTransport{
		name:      cfg.Name,
		acceptors: cfg.Acceptors,
		router:    router.NewRadixRouter(),
		pipeline:  middleware.NewPipeline().Use(middleware.Recovery()).Use(middleware.RequestID()),
		obs:       observability.NewObservatory(),
	}
	return t
}

// Pipeline returns the transport's middleware pipeline, for
// application code to Use additional middleware (CORS, RateLimiter,
// ...) onto.
func (t *HTTPServerTransport) Pipeline() *middleware.Pipeline { return t.pipeline }

// Observatory returns the transport's per-request performance monitor
// and syscall tracer, for introspection (GetFullReport, GetBottlenecks).
func (t *HTTPServerTransport) Observatory() *observability.Observatory { return t.obs }

func (t *HTTPServerTransport) Name() string { return t.name }

// BindHandler attaches handler under every HTTP method at uriPrefix.
// The radix router matches uriPrefix as an exact path: a request for a
// longer path below it (uriPrefix + "/x") does not reach handler.
func (t *HTTPServerTransport) BindHandler(uriPrefix string, handler router.HandlerFunc) {
	for _, method := range []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"} {
		t.router.Add(method, uriPrefix, handler)
	}
}

// Enable opens every configured acceptor and registers it with r,
// moving this transport's listening sockets into the reactor's epoll
// set. Calling Enable twice without an intervening Disable is a no-op.
func (t *HTTPServerTransport) Enable(r *reactor.Reactor) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.enabled {
		return nil
	}

	r.SetTracer(t.obs.Tracer)

	for _, ac := range t.acceptors {
		lfd, err := listenTCP(ac.Host, ac.Port)
		if err != nil {
			t.closeListenersLocked()
			return err
		}

		acceptor := conn.NewAcceptor(lfd)
		t.listeners = append(t.listeners, acceptor)

		if err := r.AddListener(lfd, func() {
			t.onAcceptable(r, acceptor)
		}); err != nil {
			t.closeListenersLocked()
			return err
		}
	}

	t.reactor = r
	t.enabled = true
	log.Printf("transport %q enabled on %d listener(s)", t.name, len(t.listeners))
	return nil
}

// Disable removes every listener from the reactor and closes it,
// taking the transport out of service without touching already
// accepted connections.
func (t *HTTPServerTransport) Disable() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.enabled {
		return
	}
	t.closeListenersLocked()
	t.enabled = false
	t.reactor = nil
}

func (t *HTTPServerTransport) closeListenersLocked() {
	for _, l := range t.listeners {
		if t.reactor != nil {
			t.reactor.Remove(l.FD())
		}
		l.Close()
	}
	t.listeners = nil
}

func (t *HTTPServerTransport) onAcceptable(r *reactor.Reactor, acceptor *conn.Acceptor) {
	acceptor.AcceptAll(func(fd int) {
		decoder := &requestDecoder{}
		c := conn.New(fd, decoder, conn.MaxBufferedInput)
		watched := reactor.NewWatched(c, func(wc *conn.Connection, msg []byte) {
			t.dispatch(wc, msg)
		}, func(wc *conn.Connection, err error) {
			log.Printf("transport %q: connection error: %v", t.name, err)
		})
		if err := r.Add(watched, 0); err != nil {
			syscall.Close(fd)
		}
	})
}

func (t *HTTPServerTransport) dispatch(c *conn.Connection, msg []byte) {
	req, _, err := httpcodec.ParseRequest(msg, 0)
	if err != nil {
		writeBadRequest(c)
		return
	}

	handler, params := t.router.Find(req.Method, req.Path)
	if handler == nil {
		http.ReleaseRequest(req)
		writeNotFound(c)
		return
	}

	ctx := http.NewFDContext(c.FD(), req)
	ctx.SetKeepAlive(req.Connection != "close" && req.Proto != "HTTP/1.0")
	for k, v := range params {
		ctx.SetParam(k, v)
	}

	t.obs.TraceHandler(req.Path, func() error {
		t.pipeline.Execute(ctx, func(fc *http.FDContext) {
			handler(fc)
		})
		return nil
	})

	http.ReleaseRequest(req)
}

func writeBadRequest(c *conn.Connection) {
	var b []byte
	b = httpcodec.EmitStatusLine(b, 400)
	b = httpcodec.EmitHeader(b, core.HeaderContentLength, "0")
	b = httpcodec.EmitHeader(b, core.HeaderConnection, "close")
	b = append(b, "\r\n"...)
	c.QueueWrite(b)
}

func writeNotFound(c *conn.Connection) {
	var b []byte
	b = httpcodec.EmitStatusLine(b, 404)
	b = httpcodec.EmitHeader(b, core.HeaderContentLength, "0")
	b = append(b, "\r\n"...)
	c.QueueWrite(b)
}

// requestDecoder implements conn.Decoder for HTTP/1.1: it hands the
// buffered bytes to httpcodec.ParseRequest purely to discover framing
// (how many bytes one complete request consumes); dispatch reparses
// the framed slice to build the Request it actually hands to the
// handler. httpcodec.ParseRequest is pool-backed and allocation-free on
// the hot path, so parsing twice costs a second cheap pass, not an I/O
// round trip, and keeps Connection.Processing's "one Decoder, one
// concern" contract intact.
type requestDecoder struct{}

func (d *requestDecoder) Decode(buf []byte) (int, error) {
	req, consumed, err := httpcodec.ParseRequest(buf, 0)
	if err == httpcodec.ErrNeedMore {
		return 0, conn.ErrNeedMore
	}
	if err != nil {
		return 0, err
	}
	httpcodec.ReleaseRequest(req)
	return consumed, nil
}
