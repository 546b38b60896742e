/*
Package coreserver provides a reactor-driven application server core:
an epoll-based event loop, a stackful-coroutine task system built on
goroutines, an HTTP/1.1 codec with both server and client sides, a
sliding-window telemetry fabric feeding a /status endpoint, a dynamic
SObj value tree with pluggable serializers, session/game-state
containers, and a per-goroutine-affinity DB connection pool.

Quick Start

Basic usage example:

package main

import (
    "log"

    "github.com/riftcore/coreserver/app"
    "github.com/riftcore/coreserver/config"
    "github.com/riftcore/coreserver/core/http"
    "github.com/riftcore/coreserver/core/transport"
)

func main() {
    cfg := config.New()
    application, err := app.New(cfg)
    if err != nil {
        log.Fatal(err)
    }

    st, err := application.AddTransport(transport.Config{
        Name:      "main",
        Type:      "http",
        Acceptors: []transport.AcceptorConfig{{Host: "0.0.0.0", Port: cfg.Port}},
        Bindings:  []string{"/"},
    }, http.Wrap(func(ctx http.Context) {
        ctx.String(200, "Hello, World!")
    }))
    if err != nil {
        log.Fatal(err)
    }
    application.BindStatus(st)

    log.Fatal(application.Run())
}

Modules

The framework is organized into several modules:

  - app: reactor/transports/dbpool/sessions wiring and process lifecycle
  - config: flag/env configuration and factory configuration objects
  - core/reactor: epoll-backed event loop, deadline timer heap, connection manager
  - core/conn: per-connection read buffer, framing via a pluggable Decoder
  - core/task: work-stealing task pool with Suspend/Resume for externally-woken work
  - core/transport: named, hot-pluggable server transports
  - core/httpcodec: HTTP/1.1 request/response parsing and emission
  - core/http: handler-facing Context facade
  - core/httpclient: client-side HTTP request state machine
  - core/router: radix-tree request routing
  - core/pools: work-stealing worker pool, byte-buffer pool, GC tuning
  - core/telemetry: sliding-window metrics and the /status renderer
  - core/sobj: dynamic value tree with json/url/protobuf serializers
  - core/compression: one-byte-flag stored/deflate framing
  - core/factory: generic write-once-per-key constructor registry
  - core/dbpool: per-goroutine-affinity Postgres connection pool
  - core/session: HID/SID-indexed sessions and game-state config managers
  - core/rpc: internal binary RPC transport (frame, codec, service registry)
  - core/middleware: HTTP middleware pipeline
  - core/observability: process-wide performance monitor

For more information, see https://github.com/riftcore/coreserver
*/
package coreserver
