// Package httpclient implements the client-side request state machine:
// resolve+dial, submit, read response, with the 15s connect / 60s
// overall-response deadlines named in original_source's
// HttpRequestExecutor.cpp, expressed as context.Context deadlines
// rather than the original's raw timer callbacks + recursive mutex,
// since a Go goroutine can simply block through each state instead of
// re-entering a callback from the reactor thread.
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"golang.org/x/net/idna"

	"github.com/riftcore/coreserver/core"
	"github.com/riftcore/coreserver/core/httpcodec"
)

// State names the executor's current step, mirroring
// HttpRequestExecutor::State exactly (INIT/CONNECT/CONNECTED/SUBMIT/
// SUBMITTED/COMPLETE/ERROR) so logs and introspection read the same
// way the original's stateToString did.
type State int

const (
	StateInit State = iota
	StateConnect
	StateConnected
	StateSubmit
	StateSubmitted
	StateComplete
	StateError
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateConnect:
		return "CONNECT"
	case StateConnected:
		return "CONNECTED"
	case StateSubmit:
		return "SUBMIT"
	case StateSubmitted:
		return "SUBMITTED"
	case StateComplete:
		return "COMPLETE"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Default timeouts, named directly after original_source's
// HttpRequestExecutor.cpp: a 15s connector TTL and a 60s overall
// request timeout.
const (
	DefaultConnectTimeout  = 15 * time.Second
	DefaultResponseTimeout = 60 * time.Second
)

// Request is the input to Executor.Run: target, method, and optional
// body.
type Request struct {
	Method      string
	Host        string
	Port        int
	Path        string
	Body        []byte
	ContentType string

	ConnectTimeout  time.Duration
	ResponseTimeout time.Duration
}

// Executor drives one request through the INIT→CONNECT→CONNECTED→
// SUBMIT→SUBMITTED→(COMPLETE|ERROR) state machine. It is not reused
// across requests, matching the original's one-shot,
// constructed-per-call design.
type Executor struct {
	mu    sync.Mutex
	state State
	err   error
}

// NewExecutor creates an Executor in the INIT state.
func NewExecutor() *Executor {
	return &Executor{state: StateInit}
}

// State returns the executor's current step.
func (e *Executor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Err returns the error that moved the executor into StateError, if
// any, mirroring HttpRequestExecutor::error()/hasFailed().
func (e *Executor) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Run drives every transition itself in one synchronous call, so the
// out-of-order-callback case HttpRequestExecutor::badStep guarded
// against (a stray reactor-thread callback arriving after done())
// cannot occur here — there is no second caller racing to advance the
// same Executor concurrently.

func (e *Executor) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Run executes req to completion, returning the parsed response or an
// error. Connect and read deadlines default to DefaultConnectTimeout /
// DefaultResponseTimeout when unset on req.
func (e *Executor) Run(ctx context.Context, req Request) (*httpcodec.Response, error) {
	connectTimeout := req.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	responseTimeout := req.ResponseTimeout
	if responseTimeout <= 0 {
		responseTimeout = DefaultResponseTimeout
	}

	overallCtx, cancel := context.WithTimeout(ctx, responseTimeout)
	defer cancel()

	e.setState(StateConnect)
	conn, err := e.connect(overallCtx, req, connectTimeout)
	if err != nil {
		e.setState(StateError)
		e.err = err
		return nil, err
	}
	defer conn.Close()
	e.setState(StateConnected)

	e.setState(StateSubmit)
	if err := e.submit(conn, req); err != nil {
		e.setState(StateError)
		e.err = err
		return nil, err
	}
	e.setState(StateSubmitted)

	resp, err := e.readResponse(overallCtx, conn)
	if err != nil {
		e.setState(StateError)
		e.err = err
		return nil, err
	}

	e.setState(StateComplete)
	return resp, nil
}

func (e *Executor) connect(ctx context.Context, req Request, timeout time.Duration) (net.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dialer := &net.Dialer{}
	addr := fmt.Sprintf("%s:%d", asciiHost(req.Host), req.Port)
	conn, err := dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// asciiHost converts an internationalized hostname to its ASCII
// punycode form for DNS resolution and the Host header, falling back
// to the original string for bare IPs and names idna.Lookup rejects
// (it only validates domain name syntax, not dotted-quad addresses).
func asciiHost(host string) string {
	a, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return host
	}
	return a
}

func (e *Executor) submit(conn net.Conn, req Request) error {
	var buf []byte
	buf = httpcodec.EmitRequestLine(buf, req.Method, req.Path)
	buf = httpcodec.EmitHeader(buf, core.HeaderHost, asciiHost(req.Host))
	if len(req.Body) > 0 {
		if req.ContentType != "" {
			buf = httpcodec.EmitHeader(buf, core.HeaderContentType, req.ContentType)
		}
		buf = append(buf, core.HeaderContentLength...)
		buf = append(buf, ": "...)
		buf = httpcodec.AppendInt(buf, len(req.Body))
		buf = append(buf, "\r\n"...)
	}
	buf = httpcodec.EmitHeader(buf, core.HeaderConnection, "close")
	buf = append(buf, "\r\n"...)
	buf = append(buf, req.Body...)

	_, err := conn.Write(buf)
	return err
}

func (e *Executor) readResponse(ctx context.Context, conn net.Conn) (*httpcodec.Response, error) {
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
	}

	var buf bytes.Buffer
	chunk := make([]byte, 8192)
	for {
		resp, _, err := httpcodec.ParseResponse(buf.Bytes(), 0)
		if err == nil {
			if resp.UntilClose {
				tail, rerr := io.ReadAll(conn)
				if rerr != nil && rerr != io.EOF {
					httpcodec.ReleaseResponse(resp)
					return nil, rerr
				}
				httpcodec.FinishUntilClose(resp, tail)
			}
			return resp, nil
		}
		if err != httpcodec.ErrNeedMore {
			return nil, err
		}

		n, rerr := conn.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
		}
		if rerr != nil {
			if rerr == io.EOF {
				resp, _, perr := httpcodec.ParseResponse(buf.Bytes(), 0)
				if perr == nil {
					return resp, nil
				}
			}
			return nil, rerr
		}
	}
}
