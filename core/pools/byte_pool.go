package pools

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/riftcore/coreserver/core/telemetry"
)

// BytePool is a multi-tiered byte slice pool for different size classes
type BytePool struct {
	pools []*sync.Pool
	sizes []int

	gets atomic.Uint64
	puts atomic.Uint64
}

// Common buffer sizes optimized for HTTP workloads
var defaultSizes = []int{
	512,   // Small requests/responses
	2048,  // Medium (most common)
	8192,  // Large
	32768, // Extra large
}

// NewBytePool creates a new byte pool with standard size tiers
func NewBytePool() *BytePool {
	return NewBytePoolWithSizes(defaultSizes)
}

// NewBytePoolWithSizes creates a byte pool with custom size tiers
func NewBytePoolWithSizes(sizes []int) *BytePool {
	bp := &BytePool{
		pools: make([]*sync.Pool, len(sizes)),
		sizes: sizes,
	}

	for i, size := range sizes {
		sz := size // Capture for closure
		bp.pools[i] = &sync.Pool{
			New: func() any {
				buf := make([]byte, sz)
				return &buf
			},
		}
	}

	return bp
}

// Get returns a byte slice of at least the requested size
func (bp *BytePool) Get(size int) []byte {
	bp.gets.Add(1)
	// Find the appropriate pool
	for i, poolSize := range bp.sizes {
		if size <= poolSize {
			bufPtr := bp.pools[i].Get().(*[]byte)
			buf := *bufPtr
			return buf[:size] // Return slice with requested length
		}
	}

	// Size too large, allocate directly
	telemetry.Global.Metric(fmt.Sprintf("byte_pool.tier_%d.oversized_get", len(bp.sizes))).Record(time.Now(), 1, telemetry.OpAdd)
	return make([]byte, size)
}

// Put returns a byte slice to the pool
func (bp *BytePool) Put(buf []byte) {
	capacity := cap(buf)

	// Find matching pool by capacity
	for i, poolSize := range bp.sizes {
		if capacity == poolSize {
			// Reset length to capacity
			buf = buf[:capacity]
			bp.pools[i].Put(&buf)
			bp.puts.Add(1)
			return
		}
	}

	// Not from pool, let GC handle it
}

// GetBuffer returns a buffer pointer for zero-copy operations
func (bp *BytePool) GetBuffer(size int) *[]byte {
	for i, poolSize := range bp.sizes {
		if size <= poolSize {
			return bp.pools[i].Get().(*[]byte)
		}
	}

	buf := make([]byte, size)
	return &buf
}

// PutBuffer returns a buffer pointer to the pool
func (bp *BytePool) PutBuffer(buf *[]byte) {
	if buf == nil {
		return
	}

	capacity := cap(*buf)
	for i, poolSize := range bp.sizes {
		if capacity == poolSize {
			*buf = (*buf)[:capacity]
			bp.pools[i].Put(buf)
			return
		}
	}
}

// BytePoolStats reports cumulative pool traffic.
type BytePoolStats struct {
	TotalGets  uint64
	TotalPuts  uint64
	ActiveBufs int
}

// Stats returns bp's cumulative Get/Put counts. ActiveBufs is the
// difference between the two: buffers currently checked out (or leaked
// past their pooled tier via Put's size-mismatch fallback).
func (bp *BytePool) Stats() BytePoolStats {
	gets := bp.gets.Load()
	puts := bp.puts.Load()
	active := 0
	if gets > puts {
		active = int(gets - puts)
	}
	return BytePoolStats{TotalGets: gets, TotalPuts: puts, ActiveBufs: active}
}

// Global byte pool instance, shared by core/conn.Connection's
// per-connection input buffers.
var globalBytePool = NewBytePool()

// GetBytes is a convenience function using the global pool
func GetBytes(size int) []byte {
	return globalBytePool.Get(size)
}

// PutBytes returns bytes to the global pool
func PutBytes(buf []byte) {
	globalBytePool.Put(buf)
}

// GlobalBytePoolStats reports the shared pool's cumulative traffic.
func GlobalBytePoolStats() BytePoolStats {
	return globalBytePool.Stats()
}
