// Package app assembles the process-wide pieces the teacher's Engine
// used to own directly — router, listener, pools — into the
// generalized reactor/transport/task architecture: one Reactor driving
// any number of named, independently enable/disable-able
// ServerTransports, a named DbConnectionPool registry, and the
// session/telemetry managers every bound handler shares.
package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/riftcore/coreserver/config"
	"github.com/riftcore/coreserver/core/dbpool"
	"github.com/riftcore/coreserver/core/http"
	"github.com/riftcore/coreserver/core/pools"
	"github.com/riftcore/coreserver/core/reactor"
	"github.com/riftcore/coreserver/core/router"
	rpcclient "github.com/riftcore/coreserver/core/rpc/client"
	rpcserver "github.com/riftcore/coreserver/core/rpc/server"
	rpcsystem "github.com/riftcore/coreserver/core/rpc/system"
	"github.com/riftcore/coreserver/core/session"
	"github.com/riftcore/coreserver/core/task"
	"github.com/riftcore/coreserver/core/telemetry"
	"github.com/riftcore/coreserver/core/transport"
)

// App is the application instance: one Reactor, its Transports
// registry, a named DbConnectionPool registry, the SessionManager
// stack, and the work-stealing task.Pool handlers may submit
// long-running work to.
type App struct {
	cfg *config.Config

	reactor    *reactor.Reactor
	transports *transport.Transports
	pools      *dbpool.Pools
	sessions   *session.Manager
	tasks      *task.Pool
	telemetry  *telemetry.Manager

	rpcAddr   string
	rpcServer *rpcserver.Server

	reloadMgr  *config.Manager
	reloadPath string
}

// New creates an App with its own Reactor, Transports registry, DB
// pool registry, SessionManager, and work-stealing task.Pool, ready
// for transports to be added via AddTransport before Run.
func New(cfg *config.Config) (*App, error) {
	applyGCProfile(cfg.Env)

	r, err := reactor.New()
	if err != nil {
		return nil, err
	}

	sessions := session.NewManager(
		session.NewCounterManager(),
		session.NewLimitManager(),
		session.NewGeneratorManager(),
	)
	pools := dbpool.NewPools()
	tasks := task.NewPool(0)

	rpcSrv := rpcserver.NewServer()
	if err := rpcSrv.Register("system", rpcsystem.New(pools, sessions, tasks)); err != nil {
		return nil, fmt.Errorf("app: registering system rpc service: %w", err)
	}

	return &App{
		cfg:        cfg,
		reactor:    r,
		transports: transport.NewTransports(r),
		pools:      pools,
		sessions:   sessions,
		tasks:      tasks,
		telemetry:  telemetry.Global,
		rpcAddr:    fmt.Sprintf("127.0.0.1:%d", cfg.Port+1),
		rpcServer:  rpcSrv,
	}, nil
}

// AddTransport constructs, binds, and enables a named server
// transport, the direct generalization of the teacher's single
// Engine.Run(addr) listener into the spec's multi-transport registry.
func (a *App) AddTransport(cfg transport.Config, handler router.HandlerFunc) (transport.ServerTransport, error) {
	return a.transports.Add(cfg, handler)
}

// Transports returns the app's transport registry, for binding
// additional routes onto an already-added transport via its
// BindHandler, or for introspection (ForEach/Get/Enable/Disable).
func (a *App) Transports() *transport.Transports { return a.transports }

// AddDbPool constructs and registers a named DB pool from cfg.
func (a *App) AddDbPool(cfg dbpool.Config) (*dbpool.Pool, error) {
	return a.pools.Add(cfg)
}

// WatchDbPoolConfig registers a config.Manager.WatchDbPools callback
// that adds any pool named in a reload that isn't already registered.
// It does not touch or close pools that disappeared or changed in the
// new file — core/dbpool.Pools has no Remove/Replace, so a changed
// entry requires a restart same as before; this only lets a newly
// appended pool definition come up without one. Call
// mgr.ReloadDbPools(path) (e.g. from a SIGHUP handler) to trigger it.
func (a *App) WatchDbPoolConfig(mgr *config.Manager) {
	a.reloadMgr = mgr
	mgr.WatchDbPools(func(pools []config.DbPoolConfig) {
		for _, p := range pools {
			if _, ok := a.pools.Get(p.Name); ok {
				continue
			}
			if _, err := a.pools.Add(p.ToDbpool()); err != nil {
				log.Printf("config: reload: adding db pool %q: %v", p.Name, err)
			} else {
				log.Printf("config: reload: added db pool %q", p.Name)
			}
		}
	})
}

// ReloadDbPoolsOnSIGHUP arranges for a SIGHUP delivered to this
// process to call mgr.ReloadDbPools(path), picking up any DB pool
// added to the file since startup through the callback
// WatchDbPoolConfig already registered. Calling this implies
// WatchDbPoolConfig(mgr).
func (a *App) ReloadDbPoolsOnSIGHUP(mgr *config.Manager, path string) {
	a.WatchDbPoolConfig(mgr)
	a.reloadPath = path
}

// DbPool returns the named DB pool, if registered.
func (a *App) DbPool(name string) (*dbpool.Pool, bool) {
	return a.pools.Get(name)
}

// Sessions returns the process-wide SessionManager.
func (a *App) Sessions() *session.Manager { return a.sessions }

// Tasks returns the process-wide task.Pool handlers submit
// long-running or externally-resumed work to.
func (a *App) Tasks() *task.Pool { return a.tasks }

// BindStatus attaches the telemetry status renderer at "/status" on
// st, the generalized counterpart of the teacher's per-process
// monitoring endpoint: any transport, not just the primary one, can
// carry it. A "?raw=1" query additionally round-trips a SessionCount
// call through the internal RPC transport at a.rpcAddr, giving that
// loopback path a concrete caller from inside the same process instead
// of sitting unexercised behind application-defined services only. A
// "?snapshot=json|url|protobuf" query instead replaces the whole body
// with the system service's SObj-serialized introspection snapshot.
func (a *App) BindStatus(st transport.ServerTransport) {
	st.BindHandler("/status", func(ctx any) {
		c := ctx.(http.Context)

		if format := c.Query("snapshot"); format != "" {
			data, err := a.rawSnapshot(format)
			if err != nil {
				c.String(500, fmt.Sprintf("rpc system.Snapshot error: %v", err))
				return
			}
			c.Data(200, "application/octet-stream", data)
			return
		}

		if c.Query("observatory") != "" {
			if ht, ok := st.(*transport.HTTPServerTransport); ok {
				c.Data(200, "text/plain; charset=utf-8", []byte(ht.Observatory().GetFullReport()))
				return
			}
			c.String(404, "observatory report unavailable: transport has no Observatory")
			return
		}

		buf := telemetry.RenderStatus(a.telemetry)

		if c.Query("raw") != "" {
			if n, err := a.rawSessionCount(); err != nil {
				buf = append(buf, []byte(fmt.Sprintf("\nrpc system.SessionCount error: %v\n", err))...)
			} else {
				buf = append(buf, []byte(fmt.Sprintf("\nsessions (via rpc system.SessionCount): %d\n", n))...)
			}
		}

		c.Data(200, "text/plain; charset=utf-8", buf)
	})
}

func (a *App) rawSessionCount() (int, error) {
	cl, err := rpcclient.NewClient(a.rpcAddr)
	if err != nil {
		return 0, err
	}
	defer cl.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var reply rpcsystem.SessionCountReply
	if err := cl.Call(ctx, "system", "SessionCount", &rpcsystem.SessionCountArg{}, &reply); err != nil {
		return 0, err
	}
	return reply.Count, nil
}

func (a *App) rawSnapshot(format string) ([]byte, error) {
	cl, err := rpcclient.NewClient(a.rpcAddr)
	if err != nil {
		return nil, err
	}
	defer cl.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var reply rpcsystem.SnapshotReply
	arg := &rpcsystem.SnapshotArg{Format: format}
	if err := cl.Call(ctx, "system", "Snapshot", arg, &reply); err != nil {
		return nil, err
	}
	return reply.Data, nil
}

// Run starts the internal RPC server and the reactor's event loop. It
// blocks until a SIGINT/SIGTERM arrives or Stop is called, then closes
// every registered DB pool before returning.
func (a *App) Run() error {
	go a.awaitSignal()

	go func() {
		log.Printf("internal rpc transport listening on %s", a.rpcAddr)
		if err := a.rpcServer.ListenAndServe(a.rpcAddr); err != nil {
			log.Printf("rpc server stopped: %v", err)
		}
	}()

	log.Printf("reactor starting, env=%s", a.cfg.Env)
	a.reactor.Run(100)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.rpcServer.Shutdown(shutdownCtx)

	if err := a.pools.CloseAll(); err != nil {
		return fmt.Errorf("app: closing db pools: %w", err)
	}
	return nil
}

// Stop asks the reactor's Run loop to return.
func (a *App) Stop() {
	a.reactor.Stop()
}

// applyGCProfile picks a GC tuning profile from cfg.Env: "production"
// trades latency for throughput (pools.OptimizeForHighThroughput),
// "latency-sensitive" trades the reverse (pools.OptimizeForLowLatency,
// for a deployment fronting interactive traffic rather than batch
// RPS), anything else gets the balanced default a developer running
// locally would want (pools.DefaultGCConfig).
func applyGCProfile(env string) {
	switch env {
	case "production":
		pools.OptimizeForHighThroughput()
	case "latency-sensitive":
		pools.OptimizeForLowLatency()
	default:
		pools.ApplyGCConfig(pools.DefaultGCConfig())
	}
}

func (a *App) awaitSignal() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for s := range sig {
		if s == syscall.SIGHUP {
			a.handleReloadSignal()
			continue
		}
		log.Printf("signal received: %v, shutting down", s)
		a.Stop()
		return
	}
}

// handleReloadSignal re-reads a.reloadPath (if ReloadDbPoolsOnSIGHUP
// configured one) through a.reloadMgr, which fires the callback
// WatchDbPoolConfig registered. A SIGHUP with no reload path
// configured is a no-op, matching the teacher's own signal handling
// (SIGINT/SIGTERM only) when this feature isn't opted into.
func (a *App) handleReloadSignal() {
	if a.reloadMgr == nil || a.reloadPath == "" {
		return
	}
	if _, err := a.reloadMgr.ReloadDbPools(a.reloadPath); err != nil {
		log.Printf("config: reload: %v", err)
	}
}
