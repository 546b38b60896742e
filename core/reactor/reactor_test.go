package reactor

import (
	"testing"
	"time"
)

func TestTimerHeapOrdering(t *testing.T) {
	var h timerHeap
	now := time.Now()

	w1 := &Watched{deadline: now.Add(3 * time.Second), heapIdx: -1}
	w2 := &Watched{deadline: now.Add(1 * time.Second), heapIdx: -1}
	w3 := &Watched{deadline: now.Add(2 * time.Second), heapIdx: -1}

	h.Push(w1)
	h.Push(w2)
	h.Push(w3)

	if h.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", h.Len())
	}

	// Sift into heap order by hand since we bypassed container/heap.Push.
	for i := h.Len()/2 - 1; i >= 0; i-- {
		siftDown(h, i)
	}

	if h[0] != w2 {
		t.Fatalf("expected earliest deadline at root")
	}
}

func siftDown(h timerHeap, i int) {
	n := h.Len()
	for {
		left, right, smallest := 2*i+1, 2*i+2, i
		if left < n && h.Less(left, smallest) {
			smallest = left
		}
		if right < n && h.Less(right, smallest) {
			smallest = right
		}
		if smallest == i {
			return
		}
		h.Swap(i, smallest)
		i = smallest
	}
}

func TestWatchedHeapIdxDefaultsToNotPresent(t *testing.T) {
	w := NewWatched(nil, nil, nil)
	if w.heapIdx != -1 {
		t.Fatalf("heapIdx = %d, want -1", w.heapIdx)
	}
}
