// Package task implements the worker-pool scheduling layer: a fixed
// pool of workers pulling Tasks off a shared, work-stealing queue.
// Go goroutines are the stackful execution contexts the original
// coroutine design asked for, so a Task body suspends simply by making
// a blocking call (channel receive, conn.Read, pool capture) — the
// runtime parks the goroutine for free. Suspend is reserved for the one
// case a goroutine body can't express on its own: an external,
// reactor-originated event waking a parked Task from outside its own
// call stack.
package task

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/riftcore/coreserver/core/pools"
)

// Suspend is returned by a Task's Run when it must wait on an external
// event (a reactor readiness notification, a timer) rather than a
// blocking call it can make directly. The caller holding the Task is
// responsible for re-submitting it to the Pool once that event fires.
var Suspend = errors.New("task: suspended, awaiting external resume")

// Func is the body of a Task. ctx carries cancellation tied to the
// owning Connection: closing the connection cancels ctx, and Run must
// observe that and return promptly rather than continue I/O.
type Func func(ctx context.Context) error

// Task is a schedulable unit of work bound to a Func. Tasks are
// FIFO-ordered within the queue they land in, but carry no ordering
// guarantee relative to Tasks from a different originating resumption.
type Task struct {
	run    Func
	ctx    context.Context
	cancel context.CancelFunc

	resumes atomic.Int32
}

// New creates a Task bound to fn, deriving its context from parent so
// cancelling parent (e.g. on connection close) cancels any in-flight
// or future resumption of this Task.
func New(parent context.Context, fn Func) *Task {
	ctx, cancel := context.WithCancel(parent)
	return &Task{run: fn, ctx: ctx, cancel: cancel}
}

// Cancel cancels the Task's context; when a Task parked on Suspend is
// resumed after that, the Pool drops it without running its body.
func (t *Task) Cancel() {
	t.cancel()
}

// Done reports whether the Task's context has already been cancelled.
func (t *Task) Done() bool {
	select {
	case <-t.ctx.Done():
		return true
	default:
		return false
	}
}

// Pool is a fixed-size pool of workers draining a shared, work-stealing
// queue of Tasks. It wraps the teacher's pools.WorkerPool rather than
// reimplementing work-stealing: the only behavior this layer adds over
// a bare WorkerPool is resume bookkeeping for Suspend.
type Pool struct {
	workers *pools.WorkerPool
}

// NewPool creates a Pool with numWorkers goroutines, one per logical
// core when numWorkers <= 0.
func NewPool(numWorkers int) *Pool {
	return &Pool{workers: pools.NewWorkerPool(numWorkers)}
}

// Submit enqueues t for execution. If t.Run returns Suspend, the Task
// is considered parked: the caller that owns the external event (a
// reactor callback, a timer) must call Resume once that event fires.
// Submit never blocks the caller; a full queue runs the task inline on
// the calling goroutine, matching pools.WorkerPool's fallback.
func (p *Pool) Submit(t *Task) bool {
	return p.workers.Submit(func() {
		p.execute(t)
	})
}

// Resume re-submits a previously suspended Task. It is the caller's
// responsibility to ensure Resume is only invoked after the event the
// Task suspended on has actually fired; Resume itself does no waiting.
func (p *Pool) Resume(t *Task) bool {
	t.resumes.Add(1)
	return p.Submit(t)
}

func (p *Pool) execute(t *Task) {
	if t.Done() {
		return
	}
	err := t.run(t.ctx)
	if err == nil {
		return
	}
	if errors.Is(err, Suspend) {
		// Parked: the owner of the external event calls Resume.
		return
	}
	// Any other error terminates this Task's lifecycle; the handler
	// that produced it is responsible for surfacing it to the
	// connection (e.g. writing a 500 and closing).
}

// Stats exposes the underlying work-stealing pool's counters.
func (p *Pool) Stats() pools.WorkerPoolStats {
	return p.workers.Stats()
}

// Close shuts the pool down, letting in-flight Tasks finish but
// refusing new Submit/Resume calls.
func (p *Pool) Close() {
	p.workers.Close()
}
