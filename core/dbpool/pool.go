// Package dbpool implements the per-goroutine-affinity DB connection
// pool: capture() binds the calling goroutine's current connection (or
// pulls one from the idle list, liveness-checking it first), release()
// returns it to the idle list after rolling back any open transaction.
//
// The original's capture/release contract is per-thread; Go has no
// stable thread identity for a goroutine; so affinity here is keyed by
// an explicit handle the caller passes through its own call chain (the
// handle a task.Task carries for its lifetime), rather than an
// implicit thread-local. That is the one deliberate departure from a
// literal per-thread translation, forced by goroutines having no
// identity to key on — everything else (idle list, liveness check,
// attach/detach hand-off, rollback-with-warning on release) is as
// specified.
package dbpool

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/text/encoding/ianaindex"
)

// Handle identifies the logical "thread" capturing a connection across
// a coroutine's suspension points; callers mint one per Task and carry
// it through every capture/release call for that Task's lifetime.
type Handle uint64

// Config names the pool and the Postgres connection parameters,
// grounded on spec.md §6's DB-pool factory configuration block
// (dbsocket | dbserver+dbport, dbname, dbuser, dbpass, async,
// dbcharset, dbtimezone).
type Config struct {
	Name string
	// Type selects the registered Pools constructor ("postgres" if
	// empty); see registry.go.
	Type       string
	DbSocket   string
	DbServer   string
	DbPort     int
	DbName     string
	DbUser     string
	DbPass     string
	DbCharset  string
	DbTimezone string

	// MaxIdle bounds the shared idle list; 0 uses a default of 16.
	MaxIdle int
	// StaleAfter is how long a connection may sit idle before capture()
	// re-validates it with PingContext instead of trusting it live.
	StaleAfter time.Duration
}

func (c Config) dsn() string {
	base := ""
	if c.DbSocket != "" {
		base = fmt.Sprintf("host=%s dbname=%s user=%s password=%s sslmode=disable",
			c.DbSocket, c.DbName, c.DbUser, c.DbPass)
	} else {
		base = fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
			c.DbServer, c.DbPort, c.DbName, c.DbUser, c.DbPass)
	}

	if enc := canonicalCharset(c.DbCharset); enc != "" {
		base += fmt.Sprintf(" client_encoding=%s", enc)
	}
	if c.DbTimezone != "" {
		// libpq has no direct "timezone=" conninfo key; the documented
		// way to set a session GUC at connect time is the "options"
		// parameter, passed through to the backend as startup options
		// (see postgresql.org/docs/current/libpq-connect.html#LIBPQ-CONNECT-OPTIONS).
		base += fmt.Sprintf(" options='-c TimeZone=%s'", c.DbTimezone)
	}
	return base
}

// canonicalCharset validates name against IANA's charset registry and
// returns its canonical MIME name (e.g. "shift_jis" -> "Shift_JIS") for
// the driver's client_encoding parameter, matching what Postgres itself
// expects there. An empty or unrecognized name yields "", leaving
// client_encoding unset and the server's own default in effect, rather
// than passing through a name Postgres might reject.
func canonicalCharset(name string) string {
	if name == "" {
		return ""
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		log.Printf("dbpool: unrecognized dbcharset %q, leaving client_encoding unset", name)
		return ""
	}
	canonical, err := ianaindex.IANA.Name(enc)
	if err != nil {
		return ""
	}
	return canonical
}

// conn wraps one *sql.Conn with the idle-list bookkeeping the pool
// needs: when it was last released, and whether it's mid-transaction.
type conn struct {
	sqlConn *sql.Conn
	tx      *sql.Tx
	idleAt  time.Time
}

// Pool is a single named DB pool: a thread-affinity map plus a shared
// idle list, backed by one *sql.DB.
type Pool struct {
	cfg Config
	db  *sql.DB

	mu       sync.Mutex
	captured map[Handle]*conn
	idle     []*conn
}

// Open creates the pool's underlying *sql.DB (lazily connecting; no
// connections are made until first capture()).
func Open(cfg Config) (*Pool, error) {
	if cfg.MaxIdle <= 0 {
		cfg.MaxIdle = 16
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 30 * time.Second
	}

	db, err := sql.Open("postgres", cfg.dsn())
	if err != nil {
		return nil, err
	}

	return &Pool{
		cfg:      cfg,
		db:       db,
		captured: make(map[Handle]*conn),
	}, nil
}

// Capture binds h to a live connection: reuse h's already-captured
// connection if alive; else pull the newest idle connection,
// liveness-checking it if it has been idle past StaleAfter; else open
// a new one.
func (p *Pool) Capture(ctx context.Context, h Handle) (*sql.Conn, error) {
	p.mu.Lock()
	if c, ok := p.captured[h]; ok {
		p.mu.Unlock()
		if err := c.sqlConn.PingContext(ctx); err == nil {
			return c.sqlConn, nil
		}
		// Dead: fall through and capture fresh.
		p.mu.Lock()
		delete(p.captured, h)
	}

	if n := len(p.idle); n > 0 {
		c := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()

		if time.Since(c.idleAt) > p.cfg.StaleAfter {
			if err := c.sqlConn.PingContext(ctx); err != nil {
				c.sqlConn.Close()
				return p.captureFresh(ctx, h)
			}
		}

		p.mu.Lock()
		p.captured[h] = c
		p.mu.Unlock()
		return c.sqlConn, nil
	}
	p.mu.Unlock()

	return p.captureFresh(ctx, h)
}

func (p *Pool) captureFresh(ctx context.Context, h Handle) (*sql.Conn, error) {
	sqlConn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	c := &conn{sqlConn: sqlConn}

	p.mu.Lock()
	p.captured[h] = c
	p.mu.Unlock()

	return sqlConn, nil
}

// Release returns h's captured connection to the idle list, rolling
// back any open transaction first and logging a warning if a rollback
// was actually needed.
func (p *Pool) Release(h Handle) {
	p.mu.Lock()
	c, ok := p.captured[h]
	if !ok {
		p.mu.Unlock()
		return
	}
	delete(p.captured, h)
	p.mu.Unlock()

	if c.tx != nil {
		if err := c.tx.Rollback(); err == nil {
			log.Printf("dbpool[%s]: rolled back open transaction on release", p.cfg.Name)
		} else if err != sql.ErrTxDone {
			log.Printf("dbpool[%s]: rollback on release failed: %v", p.cfg.Name, err)
		}
		c.tx = nil
	}

	c.idleAt = time.Now()

	p.mu.Lock()
	if len(p.idle) >= p.cfg.MaxIdle {
		p.mu.Unlock()
		c.sqlConn.Close()
		return
	}
	p.idle = append(p.idle, c)
	p.mu.Unlock()
}

// Attach hands an already-captured connection from one Handle to
// another, supporting explicit hand-off across coroutine resumptions
// when a Task's identity changes mid-flight (e.g. resumed on a
// different logical worker slot).
func (p *Pool) Attach(from, to Handle) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.captured[from]
	if !ok {
		return false
	}
	delete(p.captured, from)
	p.captured[to] = c
	return true
}

// Detach releases h's binding without returning the connection to the
// idle list, handing exclusive ownership to the caller (who must
// eventually call Attach to give it a new Handle, or close it
// directly).
func (p *Pool) Detach(h Handle) (*sql.Conn, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.captured[h]
	if !ok {
		return nil, false
	}
	delete(p.captured, h)
	return c.sqlConn, true
}

// Close closes the underlying *sql.DB, including every idle and
// currently-captured connection.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, c := range p.idle {
		c.sqlConn.Close()
	}
	for _, c := range p.captured {
		c.sqlConn.Close()
	}
	return p.db.Close()
}
