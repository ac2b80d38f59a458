package replication

import (
	"encoding/hex"
	"sync"

	"github.com/google/uuid"
)

// Replica is a connected downstream server being streamed commands.
type Replica struct {
	ID     int64
	Outbox chan []byte
}

// Master tracks this server's role as a replication source: a stable
// replication ID, the current offset, the backlog for partial resync,
// and the set of currently attached replicas.
type Master struct {
	mu       sync.RWMutex
	ReplID   string
	backlog  *Backlog
	replicas map[int64]*Replica
}

func NewMaster(backlogSize int64) *Master {
	a, b := uuid.New(), uuid.New()
	return &Master{
		ReplID:   hex.EncodeToString(append(a[:], b[:]...))[:40],
		backlog:  NewBacklog(backlogSize),
		replicas: make(map[int64]*Replica),
	}
}

// Offset returns the current replication offset.
func (m *Master) Offset() int64 { return m.backlog.Offset() }

// Attach registers connID as a streaming replica and returns its
// outbox channel; the server's PSYNC handler pumps this channel to
// the socket until the connection closes.
func (m *Master) Attach(connID int64) *Replica {
	r := &Replica{ID: connID, Outbox: make(chan []byte, 1024)}
	m.mu.Lock()
	m.replicas[connID] = r
	m.mu.Unlock()
	return r
}

// Detach removes a replica, e.g. on disconnect.
func (m *Master) Detach(connID int64) {
	m.mu.Lock()
	delete(m.replicas, connID)
	m.mu.Unlock()
}

// Propagate appends an encoded command to the backlog and fans it
// out to every attached replica. Delivery is best-effort: a replica
// whose outbox is full is dropped (it will need a fresh full resync),
// matching spec §4.5's acceptance that partial resync may fall back
// to FULLRESYNC.
func (m *Master) Propagate(encoded []byte) {
	m.backlog.Append(encoded)

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.replicas {
		select {
		case r.Outbox <- encoded:
		default:
			delete(m.replicas, id)
			close(r.Outbox)
		}
	}
}

// Since returns backlogged bytes for a PSYNC CONTINUE, or ok=false if
// the requested offset has aged out and a FULLRESYNC is required.
func (m *Master) Since(offset int64) ([]byte, bool) {
	return m.backlog.Since(offset)
}

// NumReplicas reports the number of currently attached replicas.
func (m *Master) NumReplicas() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.replicas)
}
