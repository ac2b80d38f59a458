// Package blocking implements the per-database blocking-operation
// registry from spec §4.3: BLPOP/BRPOP waiters keyed by list key, FIFO
// wake-up on push, and a periodic timeout sweep.
//
// The wake-up path is grounded on the teacher's scheduler.go (a
// container/heap min-heap of deadlined events) for the timeout sweep,
// and on log_manager.go's lazily-created per-key map for the waiter
// FIFOs.
package blocking

import (
	"container/heap"
	"sync"
	"time"
)

// Waiter is one blocked client's registration across one or more keys.
type Waiter struct {
	ConnID   int64
	DBIndex  int
	Keys     []string
	Deadline time.Time // zero means no deadline (timeout 0)
	Wake     chan WakeResult
	index    int // heap index, valid only while registered for timeout
}

// WakeResult is delivered to Wake exactly once: either a key that now
// has data, or a timeout/cancellation signal (Key == "").
type WakeResult struct {
	Key     string
	TimedOut bool
}

// Registry tracks blocked waiters per database.
type Registry struct {
	mu      sync.Mutex
	perKey  map[int]map[string][]*Waiter // dbIndex -> key -> FIFO
	timers  *deadlineHeap
	byConn  map[int64]*Waiter
}

func New() *Registry {
	h := &deadlineHeap{}
	heap.Init(h)
	return &Registry{
		perKey: make(map[int]map[string][]*Waiter),
		timers: h,
		byConn: make(map[int64]*Waiter),
	}
}

// Register adds w as a waiter on every one of its Keys in DBIndex.
func (r *Registry) Register(w *Waiter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys, ok := r.perKey[w.DBIndex]
	if !ok {
		keys = make(map[string][]*Waiter)
		r.perKey[w.DBIndex] = keys
	}
	for _, k := range w.Keys {
		keys[k] = append(keys[k], w)
	}
	r.byConn[w.ConnID] = w
	if !w.Deadline.IsZero() {
		heap.Push(r.timers, w)
	}
}

// unregisterLocked removes w from every key's FIFO and the timer
// heap. Caller must hold r.mu.
func (r *Registry) unregisterLocked(w *Waiter) {
	keys := r.perKey[w.DBIndex]
	for _, k := range w.Keys {
		fifo := keys[k]
		for i, cand := range fifo {
			if cand == w {
				keys[k] = append(fifo[:i], fifo[i+1:]...)
				break
			}
		}
		if len(keys[k]) == 0 {
			delete(keys, k)
		}
	}
	if w.index >= 0 && w.index < r.timers.Len() && (*r.timers)[w.index] == w {
		heap.Remove(r.timers, w.index)
	}
	delete(r.byConn, w.ConnID)
}

// NotifyPush checks whether key (in dbIndex) has a waiting FIFO; if
// so, pops the first-registered waiter, removes it from all its other
// keys, and wakes it with that key. Returns true if a waiter was
// woken. A woken waiter that finds the key already drained by a race
// registers itself again (spec §4.3 "re-queued"); the push handlers
// do not retry on its behalf.
func (r *Registry) NotifyPush(dbIndex int, key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys, ok := r.perKey[dbIndex]
	if !ok {
		return false
	}
	fifo := keys[key]
	if len(fifo) == 0 {
		return false
	}
	w := fifo[0]
	r.unregisterLocked(w)
	select {
	case w.Wake <- WakeResult{Key: key}:
	default:
	}
	return true
}

// Cancel unregisters the waiter for connID (used on disconnect), per
// spec §4.3 "Disconnect".
func (r *Registry) Cancel(connID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.byConn[connID]; ok {
		r.unregisterLocked(w)
	}
}

// SweepTimeouts wakes every waiter whose deadline has passed, per spec
// §4.3 "Timeout". Call periodically from the reactor's background
// sweep task.
func (r *Registry) SweepTimeouts(nowFn func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := nowFn()
	for r.timers.Len() > 0 {
		w := (*r.timers)[0]
		if w.Deadline.After(now) {
			break
		}
		heap.Pop(r.timers)
		r.unregisterLocked(w)
		select {
		case w.Wake <- WakeResult{TimedOut: true}:
		default:
		}
	}
}

// --- min-heap of waiters ordered by Deadline ---------------------------

type deadlineHeap []*Waiter

func (h deadlineHeap) Len() int { return len(h) }
func (h deadlineHeap) Less(i, j int) bool { return h[i].Deadline.Before(h[j].Deadline) }
func (h deadlineHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *deadlineHeap) Push(x any) {
	w := x.(*Waiter)
	w.index = len(*h)
	*h = append(*h, w)
}
func (h *deadlineHeap) Pop() any {
	old := *h
	n := len(old)
	w := old[n-1]
	old[n-1] = nil
	w.index = -1
	*h = old[:n-1]
	return w
}
