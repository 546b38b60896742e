// Package tests holds cross-package stress tests that hammer the
// router, session manager, and task pool concurrently from many
// goroutines, the kind of coverage a single package's own _test.go
// can't express because it needs all three wired together.
package tests

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riftcore/coreserver/core/router"
	"github.com/riftcore/coreserver/core/session"
	"github.com/riftcore/coreserver/core/task"
)

// TestStressRouterConcurrentFind seeds a route table up front (routes
// are registered once at startup in every real server, never
// concurrently with serving traffic) and then hits it with many
// concurrent readers, checking Find never panics or returns a handler
// for the wrong path.
func TestStressRouterConcurrentFind(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping stress test in -short mode")
	}

	r := router.NewRadixRouter()

	const seeded = 200
	for i := 0; i < seeded; i++ {
		path := fmt.Sprintf("/api/v1/users/%d/profile", i)
		r.Add("GET", path, func(ctx any) {})
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; ; i++ {
				select {
				case <-stop:
					return
				default:
				}
				path := fmt.Sprintf("/api/v1/users/%d/profile", i%seeded)
				h, _ := r.Find("GET", path)
				if h == nil {
					t.Errorf("worker %d: expected handler for %s", worker, path)
					return
				}
			}
		}(g)
	}

	time.Sleep(50 * time.Millisecond)
	close(stop)
	wg.Wait()
}

// TestStressSessionManagerConcurrentLifecycle creates and closes
// sessions from many goroutines at once, checking Manager's Count
// bookkeeping stays consistent and ByHID/BySID never observe a
// half-registered session.
func TestStressSessionManagerConcurrentLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping stress test in -short mode")
	}

	mgr := session.NewManager(
		session.NewCounterManager(),
		session.NewLimitManager(),
		session.NewGeneratorManager(),
	)

	const perWorker = 200
	var wg sync.WaitGroup
	var created, closed atomic.Int64

	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				hid := session.HID(worker*perWorker + i)
				sid := session.SID(fmt.Sprintf("sid-%d-%d", worker, i))

				s := mgr.Create(hid, sid)
				created.Add(1)

				if got, ok := mgr.ByHID(hid); !ok || got != s {
					t.Errorf("ByHID(%d) = %v, %v; want %v, true", hid, got, ok, s)
				}
				if got, ok := mgr.BySID(sid); !ok || got != s {
					t.Errorf("BySID(%q) = %v, %v; want %v, true", sid, got, ok, s)
				}

				s.Close(session.CloseExplicit)
				closed.Add(1)
			}
		}(w)
	}
	wg.Wait()

	if created.Load() != closed.Load() {
		t.Fatalf("created %d sessions but closed %d", created.Load(), closed.Load())
	}
	if n := mgr.Count(); n != 0 {
		t.Fatalf("Count() = %d after every session closed, want 0", n)
	}
}

// TestStressTaskPoolSubmitResume drives many goroutines submitting
// Tasks that suspend and get resumed from a different goroutine than
// the one that submitted them, checking the pool neither drops nor
// double-runs a resumed Task.
func TestStressTaskPoolSubmitResume(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping stress test in -short mode")
	}

	pool := task.NewPool(4)
	defer pool.Close()

	const n = 300
	var wg sync.WaitGroup
	var runs atomic.Int64

	for i := 0; i < n; i++ {
		wg.Add(1)
		suspended := make(chan struct{}, 1)
		resumed := make(chan struct{})

		var mu sync.Mutex
		first := true
		t0 := task.New(context.Background(), func(ctx context.Context) error {
			mu.Lock()
			isFirst := first
			first = false
			mu.Unlock()

			runs.Add(1)
			if isFirst {
				suspended <- struct{}{}
				return task.Suspend
			}
			close(resumed)
			return nil
		})

		go func() {
			defer wg.Done()
			pool.Submit(t0)
			<-suspended
			pool.Resume(t0)
			<-resumed
		}()
	}

	wg.Wait()
	if got := runs.Load(); got != 2*n {
		t.Fatalf("total task runs = %d, want %d (suspend + resume per task)", got, 2*n)
	}
}
