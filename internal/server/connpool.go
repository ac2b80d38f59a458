package server

import "sync"

// connPool is a capacity-bounded admission gate for client connections,
// adapted from the teacher's slot-pool semaphore: each acquisition is
// tied to an explicit connection id so a double-release or a release
// by a non-owner is caught rather than silently corrupting the count.
type connPool struct {
	mu         sync.Mutex
	maxCap     int64
	usage      int64
	acquiredBy map[int64]struct{}
}

func newConnPool(max int64) *connPool {
	return &connPool{maxCap: max, acquiredBy: make(map[int64]struct{})}
}

// tryAcquire admits connID if capacity remains. Returns false (and
// admits nothing) once maxclients is reached, per spec §6 `maxclients`.
func (p *connPool) tryAcquire(connID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, holds := p.acquiredBy[connID]; holds {
		panic("connPool: connection already holds a slot")
	}
	if p.usage >= p.maxCap {
		return false
	}
	p.usage++
	p.acquiredBy[connID] = struct{}{}
	return true
}

// release frees the slot held by connID. A no-op if connID holds no
// slot (idempotent against double-close races on the same connection).
func (p *connPool) release(connID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, holds := p.acquiredBy[connID]; !holds {
		return
	}
	delete(p.acquiredBy, connID)
	p.usage--
}

// Current returns the number of admitted connections.
func (p *connPool) Current() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.usage
}

// UpdateLimit adjusts maxclients at runtime (e.g. via CONFIG SET).
func (p *connPool) UpdateLimit(newCap int64) {
	if newCap < 0 {
		newCap = 0
	}
	p.mu.Lock()
	p.maxCap = newCap
	p.mu.Unlock()
}
