package server

import (
	"net"
	"sync"
	"time"

	"github.com/edirooss/vermilion/internal/resp"
)

// TxState is the transaction state machine from spec §4.3.
type TxState int

const (
	TxNormal TxState = iota
	TxInMulti
	TxAborted
)

// WatchKey identifies one watched (database, key) pair.
type WatchKey struct {
	DBIndex int
	Key     string
}

// QueuedCommand is one command buffered while InMulti.
type QueuedCommand struct {
	Args []string
}

// Conn is the per-client connection state from spec §3 "Connection
// state": selected database, RESP parser/writer, transaction state,
// subscriptions, and idle/created timestamps.
type Conn struct {
	ID      int64
	RemoteAddr string

	netConn net.Conn
	Reader  *resp.Reader
	Writer  *resp.Writer

	mu sync.Mutex // guards the fields below, touched by the reactor goroutine and by pub/sub fan-out from other connections

	DBIndex int

	TxState  TxState
	Queued   []QueuedCommand
	Watches  []WatchKey
	watchBaselines map[WatchKey]uint64

	// Subscriptions: channel/pattern name -> present.
	ChannelSubs map[string]struct{}
	PatternSubs map[string]struct{}

	Monitoring bool
	Name       string

	CreatedAt time.Time
	LastUsed  time.Time

	closed bool
	RESP3  bool

	// ReplicaOutbox is set by PSYNC once the full-resync reply has
	// been written: the reactor stops reading client commands on this
	// connection and instead pumps this channel to the socket.
	ReplicaOutbox chan []byte
}

// BecomeReplica switches conn into replica-streaming mode after a
// successful PSYNC full resync.
func (c *Conn) BecomeReplica(outbox chan []byte) {
	c.mu.Lock()
	c.ReplicaOutbox = outbox
	c.mu.Unlock()
}

// NewLoopbackConn builds a Conn with no real network peer, for
// replaying commands that never write a reply to a client: AOF replay
// at startup and applying a master's replication stream.
func NewLoopbackConn(id int64) *Conn {
	local, _ := net.Pipe()
	now := time.Now()
	return &Conn{
		ID:          id,
		RemoteAddr:  "internal",
		netConn:     local,
		Reader:      resp.NewReader(local),
		Writer:      resp.NewWriter(local),
		DBIndex:     0,
		ChannelSubs: make(map[string]struct{}),
		PatternSubs: make(map[string]struct{}),
		CreatedAt:   now,
		LastUsed:    now,
	}
}

// NewConn wraps an accepted net.Conn.
func NewConn(id int64, nc net.Conn) *Conn {
	now := time.Now()
	return &Conn{
		ID:          id,
		RemoteAddr:  nc.RemoteAddr().String(),
		netConn:     nc,
		Reader:      resp.NewReader(nc),
		Writer:      resp.NewWriter(nc),
		DBIndex:     0,
		ChannelSubs: make(map[string]struct{}),
		PatternSubs: make(map[string]struct{}),
		CreatedAt:   now,
		LastUsed:    now,
	}
}

// AddWatch records key as watched with the given modification-counter
// baseline, per spec §4.3 "WATCH".
func (c *Conn) AddWatch(key WatchKey, baseline uint64) {
	if c.watchBaselines == nil {
		c.watchBaselines = make(map[WatchKey]uint64)
	}
	for _, existing := range c.Watches {
		if existing == key {
			return
		}
	}
	c.Watches = append(c.Watches, key)
	c.watchBaselines[key] = baseline
}

// WatchBaseline returns the modification-counter baseline recorded
// for key by AddWatch.
func (c *Conn) WatchBaseline(key WatchKey) uint64 {
	return c.watchBaselines[key]
}

// ClearWatchBaselines discards all recorded baselines, per UNWATCH.
func (c *Conn) ClearWatchBaselines() {
	c.watchBaselines = nil
}

// Touch records activity for idle-timeout accounting.
func (c *Conn) Touch() {
	c.mu.Lock()
	c.LastUsed = time.Now()
	c.mu.Unlock()
}

// IdleFor returns how long the connection has been idle.
func (c *Conn) IdleFor() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.LastUsed)
}

// IsSubscribed reports whether the connection has any active
// subscription (spec §4.3 step 3: only subscription-management and
// PING/QUIT are permitted while subscribed).
func (c *Conn) IsSubscribed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ChannelSubs) > 0 || len(c.PatternSubs) > 0
}

// Close closes the underlying socket. Safe to call more than once.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.netConn.Close()
}

// DeliverMessage implements pubsub.Receiver for a direct channel
// subscription. Writes are best-effort: any error is swallowed, since
// a slow/dead subscriber must not block the publisher (spec §4.3).
func (c *Conn) DeliverMessage(channel string, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	frame := resp.NewArray(
		resp.NewBulkStringFrom("message"),
		resp.NewBulkStringFrom(channel),
		resp.NewBulkString(payload),
	)
	_ = c.Writer.WriteFrame(frame)
	_ = c.Writer.Flush()
}

// DeliverPMessage implements pubsub.Receiver for a pattern subscription.
func (c *Conn) DeliverPMessage(pattern, channel string, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	frame := resp.NewArray(
		resp.NewBulkStringFrom("pmessage"),
		resp.NewBulkStringFrom(pattern),
		resp.NewBulkStringFrom(channel),
		resp.NewBulkString(payload),
	)
	_ = c.Writer.WriteFrame(frame)
	_ = c.Writer.Flush()
}

// WriteMonitorLine implements the monitor fan-out target: a raw
// pre-formatted simple-string line (spec §4.3 "MONITOR tap").
func (c *Conn) WriteMonitorLine(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	_ = c.Writer.WriteFrame(resp.NewSimpleString(line))
	_ = c.Writer.Flush()
}
