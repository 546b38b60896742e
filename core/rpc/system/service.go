// Package system exposes process introspection — DbConnectionPool
// stats and SessionManager counts — as a registry.ServiceRegistry
// service, giving the internal RPC transport (otherwise only carrying
// application-defined services) a concrete built-in caller alongside
// the /status HTTP endpoint.
package system

import (
	"context"
	"time"

	"github.com/riftcore/coreserver/core/dbpool"
	"github.com/riftcore/coreserver/core/httpclient"
	"github.com/riftcore/coreserver/core/httpcodec"
	"github.com/riftcore/coreserver/core/pools"
	"github.com/riftcore/coreserver/core/sendfile"
	"github.com/riftcore/coreserver/core/session"
	"github.com/riftcore/coreserver/core/sobj"
	"github.com/riftcore/coreserver/core/task"
)

// Service is registered under the name "system" on a
// registry.ServiceRegistry; its exported methods follow the registry's
// required func(ctx, *Arg) (*Reply, error) shape.
type Service struct {
	pools    *dbpool.Pools
	sessions *session.Manager
	tasks    *task.Pool
}

// New creates a Service reporting on pools, sessions, and the
// process's work-stealing task pool.
func New(pools *dbpool.Pools, sessions *session.Manager, tasks *task.Pool) *Service {
	return &Service{pools: pools, sessions: sessions, tasks: tasks}
}

// DbPoolStatsArg names the pool to report on.
type DbPoolStatsArg struct {
	Name string
}

// DbPoolStatsReply reports whether the named pool exists; per-pool
// idle/captured counters are not exposed by core/dbpool.Pool today, so
// this mirrors what is actually available rather than inventing
// fields nothing populates.
type DbPoolStatsReply struct {
	Found bool
}

// DbPoolStats reports whether a named DB pool is currently registered.
func (s *Service) DbPoolStats(ctx context.Context, arg *DbPoolStatsArg) (*DbPoolStatsReply, error) {
	_, ok := s.pools.Get(arg.Name)
	return &DbPoolStatsReply{Found: ok}, nil
}

// SessionCountArg is empty; SessionCount takes no parameters.
type SessionCountArg struct{}

// SessionCountReply reports the number of currently registered sessions.
type SessionCountReply struct {
	Count int
}

// SessionCount reports Manager.Count().
func (s *Service) SessionCount(ctx context.Context, arg *SessionCountArg) (*SessionCountReply, error) {
	return &SessionCountReply{Count: s.sessions.Count()}, nil
}

// GCStatsArg is empty; GCStats takes no parameters.
type GCStatsArg struct{}

// GCStatsReply mirrors pools.GCStats over the wire (time.Duration
// encodes as nanoseconds under the JSON/protobuf/msgpack codecs this
// transport already carries).
type GCStatsReply struct {
	NumGC        uint32
	PauseTotal   time.Duration
	LastPause    time.Duration
	AvgPause     time.Duration
	AllocBytes   uint64
	TotalAlloc   uint64
	Sys          uint64
	NumGoroutine int
}

// GCStats reports pools.GetGCStats(), giving the GC tuning this
// process applies at startup (see app.New) a way to be inspected
// remotely rather than only configured.
func (s *Service) GCStats(ctx context.Context, arg *GCStatsArg) (*GCStatsReply, error) {
	st := pools.GetGCStats()
	return &GCStatsReply{
		NumGC:        st.NumGC,
		PauseTotal:   st.PauseTotal,
		LastPause:    st.LastPause,
		AvgPause:     st.AvgPause,
		AllocBytes:   st.AllocBytes,
		TotalAlloc:   st.TotalAlloc,
		Sys:          st.Sys,
		NumGoroutine: st.NumGoroutine,
	}, nil
}

// SnapshotArg names the SObj serializer to render the snapshot through
// ("json", "url", or "protobuf"; see core/sobj.Get).
type SnapshotArg struct {
	Format string
}

// SnapshotReply carries the rendered bytes plus an echo of the format
// actually used, so a caller that left Format empty can tell what it
// got back.
type SnapshotReply struct {
	Format string
	Data   []byte
}

// Snapshot builds a process-introspection tree (session count, GC
// stats) as a sobj.Value and serializes it through the named
// registered Serializer, giving the dynamic SObj facade a concrete
// producer instead of only round-tripping in its own tests.
func (s *Service) Snapshot(ctx context.Context, arg *SnapshotArg) (*SnapshotReply, error) {
	format := arg.Format
	if format == "" {
		format = "json"
	}
	ser, err := sobj.Get(format)
	if err != nil {
		return nil, err
	}

	gc := pools.GetGCStats()
	root := sobj.Object()
	root.Set("sessions", sobj.Int(int64(s.sessions.Count())))
	root.Set("gc", sobj.Object())
	root.Field("gc").Set("num_gc", sobj.Int(int64(gc.NumGC)))
	root.Field("gc").Set("goroutines", sobj.Int(int64(gc.NumGoroutine)))
	root.Field("gc").Set("alloc_bytes", sobj.Int(int64(gc.AllocBytes)))

	data, err := ser.Marshal(root)
	if err != nil {
		return nil, err
	}
	return &SnapshotReply{Format: format, Data: data}, nil
}

// PingArg names an upstream target to probe.
type PingArg struct {
	Host string
	Port int
	Path string
}

// PingReply reports the upstream's response status and observed round
// trip.
type PingReply struct {
	StatusCode int
	RTT        time.Duration
}

// Ping drives a one-shot httpclient.Executor GET against arg, giving
// the HTTP client state machine a concrete internal caller alongside
// its own executor_test.go coverage: an operator can ask this process
// to check reachability of a dependency without shelling out to curl.
func (s *Service) Ping(ctx context.Context, arg *PingArg) (*PingReply, error) {
	path := arg.Path
	if path == "" {
		path = "/"
	}

	start := time.Now()
	exec := httpclient.NewExecutor()
	resp, err := exec.Run(ctx, httpclient.Request{
		Method: "GET",
		Host:   arg.Host,
		Port:   arg.Port,
		Path:   path,
	})
	if err != nil {
		return nil, err
	}
	rtt := time.Since(start)
	code := resp.StatusCode
	httpcodec.ReleaseResponse(resp)
	return &PingReply{StatusCode: code, RTT: rtt}, nil
}

// TaskPoolStatsArg is empty; TaskPoolStats takes no parameters.
type TaskPoolStatsArg struct{}

// TaskPoolStatsReply mirrors pools.WorkerPoolStats over the wire.
type TaskPoolStatsReply struct {
	NumWorkers     int
	TasksSubmitted uint64
	TasksCompleted uint64
	TasksPending   uint64
	StealsSuccess  uint64
	StealsFailed   uint64
}

// TaskPoolStats reports the work-stealing pool's counters, giving
// task.Pool.Stats (otherwise only exercised by its own package's
// tests) a real caller.
func (s *Service) TaskPoolStats(ctx context.Context, arg *TaskPoolStatsArg) (*TaskPoolStatsReply, error) {
	st := s.tasks.Stats()
	return &TaskPoolStatsReply{
		NumWorkers:     st.NumWorkers,
		TasksSubmitted: st.TasksSubmitted,
		TasksCompleted: st.TasksCompleted,
		TasksPending:   st.TasksPending,
		StealsSuccess:  st.StealsSuccess,
		StealsFailed:   st.StealsFailed,
	}, nil
}

// BytePoolStatsArg is empty; BytePoolStats takes no parameters.
type BytePoolStatsArg struct{}

// BytePoolStatsReply mirrors pools.BytePoolStats over the wire.
type BytePoolStatsReply struct {
	TotalGets  uint64
	TotalPuts  uint64
	ActiveBufs int
}

// BytePoolStats reports the shared input-buffer pool's traffic, giving
// an operator visibility into buffer reuse without shelling into pprof.
func (s *Service) BytePoolStats(ctx context.Context, arg *BytePoolStatsArg) (*BytePoolStatsReply, error) {
	st := pools.GlobalBytePoolStats()
	return &BytePoolStatsReply{
		TotalGets:  st.TotalGets,
		TotalPuts:  st.TotalPuts,
		ActiveBufs: st.ActiveBufs,
	}, nil
}

// FileCacheStatsArg is empty; FileCacheStats takes no parameters.
type FileCacheStatsArg struct{}

// FileCacheStatsReply mirrors sendfile.FileCacheStats over the wire.
type FileCacheStatsReply struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// FileCacheStats reports the shared sendfile.FileCache's hit/miss/
// eviction counters, so an operator can size maxFiles from observed
// traffic instead of guessing.
func (s *Service) FileCacheStats(ctx context.Context, arg *FileCacheStatsArg) (*FileCacheStatsReply, error) {
	st := sendfile.GlobalFileCacheStats()
	return &FileCacheStatsReply{
		Hits:      st.Hits,
		Misses:    st.Misses,
		Evictions: st.Evictions,
	}, nil
}
