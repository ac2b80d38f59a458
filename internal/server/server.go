// Package server implements the reactor described in spec §5: a TCP
// listener that accepts connections, a goroutine per connection that
// reads and dispatches RESP commands, and a blocked-timeout sweep
// supervised together with the accept loop in one errgroup. bgsave,
// AOF rewrite and the replica link run in goroutines of their own.
//
// Go has no single-threaded event loop primitive equivalent to the
// epoll reactor the spec describes; the idiomatic mapping (noted in
// spec §9 "Design Notes") is a goroutine per connection, with command
// execution against the storage engine serialized by one dispatch
// mutex so that ordering and MULTI/EXEC atomicity match the
// single-threaded model exactly. Background tasks take the storage
// engine's own per-database locks instead of the dispatch mutex, so a
// long bgsave scan never stalls client command processing.
package server

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/edirooss/vermilion/internal/blocking"
	"github.com/edirooss/vermilion/internal/config"
	"github.com/edirooss/vermilion/internal/persistence/aof"
	"github.com/edirooss/vermilion/internal/pubsub"
	"github.com/edirooss/vermilion/internal/replication"
	"github.com/edirooss/vermilion/internal/resp"
	"github.com/edirooss/vermilion/internal/storage"
)

func encodeCommand(args []string) []byte {
	var buf bytes.Buffer
	w := resp.NewWriter(&buf)
	elems := make([]*resp.Frame, len(args))
	for i, a := range args {
		elems[i] = resp.NewBulkStringFrom(a)
	}
	_ = w.WriteFrame(resp.NewArray(elems...))
	_ = w.Flush()
	return buf.Bytes()
}

// Dispatcher executes one already-parsed command against the server
// state for conn, writing its reply (zero, one, or several frames,
// e.g. SUBSCRIBE's per-channel confirmations) directly to conn.Writer
// without flushing. Implemented by the command package; injected here
// to avoid an import cycle.
type Dispatcher interface {
	Dispatch(ctx context.Context, conn *Conn, args []string) error
}

// Server is the Redis-protocol-compatible reactor.
type Server struct {
	cfg    *config.Config
	log    *zap.Logger
	engine *storage.Engine

	Pool    *connPool
	ids     *idGenerator
	Blocked *blocking.Registry
	PubSub  *pubsub.Broker

	// AOF is nil unless appendonly is enabled. Master tracks this
	// server's replicas regardless of role, since any server may gain
	// replicas at runtime via REPLCONF/PSYNC.
	AOF    *aof.Writer
	Master *replication.Master

	dispatchMu sync.Mutex // serializes command execution, see package doc
	dispatcher Dispatcher

	mu    sync.Mutex
	conns map[int64]*Conn

	ln net.Listener
}

// New constructs a Server. SetDispatcher must be called before Serve.
func New(cfg *config.Config, log *zap.Logger, engine *storage.Engine) *Server {
	return &Server{
		cfg:     cfg,
		log:     log,
		engine:  engine,
		Pool:    newConnPool(int64(cfg.MaxClients)),
		ids:     newIDGenerator(),
		Blocked: blocking.New(),
		PubSub:  pubsub.New(),
		Master:  replication.NewMaster(cfg.ReplBacklogSize),
		conns:   make(map[int64]*Conn),
	}
}

// SetDispatcher wires the command package's dispatcher in after both
// packages are constructed, breaking the import cycle between server
// and command.
func (s *Server) SetDispatcher(d Dispatcher) { s.dispatcher = d }

// WithDispatchLock runs fn with the server-wide dispatch mutex held.
// The command package calls this around MULTI/EXEC batches so an
// entire transaction executes as one atomic unit from every other
// connection's point of view (spec §4.3 "EXEC").
func (s *Server) WithDispatchLock(fn func()) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()
	fn()
}

// Propagate feeds a successfully-executed write command to the AOF
// (if enabled) and to any attached replicas, called by the command
// package once per mutating command under the dispatch lock.
func (s *Server) Propagate(args []string) {
	if s.AOF != nil {
		if err := s.AOF.Append(args); err != nil {
			s.log.Error("aof append failed", zap.Error(err))
		}
	}
	if s.Master.NumReplicas() == 0 {
		return
	}
	encoded := encodeCommand(args)
	s.Master.Propagate(encoded)
}

// Engine exposes the storage engine to the command package.
func (s *Server) Engine() *storage.Engine { return s.engine }

// Config exposes the live configuration to the command package.
func (s *Server) Config() *config.Config { return s.cfg }

// Logger exposes the structured logger to the command package.
func (s *Server) Logger() *zap.Logger { return s.log }

// Conns returns a snapshot of currently connected clients, for
// CLIENT LIST / INFO clients.
func (s *Server) Conns() []*Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Conn, 0, len(s.conns))
	for _, c := range s.conns {
		out = append(out, c)
	}
	return out
}

// KillConn closes the connection with the given id, for CLIENT KILL.
func (s *Server) KillConn(id int64) bool {
	s.mu.Lock()
	c, ok := s.conns[id]
	s.mu.Unlock()
	if !ok {
		return false
	}
	_ = c.Close()
	return true
}

// Serve binds the listener and runs the accept loop plus background
// tasks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Bind, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.log.Info("listening", zap.String("addr", addr))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		return s.ln.Close()
	})

	g.Go(func() error {
		return s.acceptLoop(gctx)
	})

	g.Go(func() error {
		s.sweepLoop(gctx)
		return nil
	})

	return g.Wait()
}

func (s *Server) acceptLoop(ctx context.Context) error {
	for {
		nc, err := s.ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		if tc, ok := nc.(*net.TCPConn); ok {
			_ = tc.SetNoDelay(true)
			if s.cfg.TCPKeepAlive > 0 {
				_ = tc.SetKeepAlive(true)
				_ = tc.SetKeepAlivePeriod(time.Duration(s.cfg.TCPKeepAlive) * time.Second)
			}
		}
		id := s.ids.Next()
		if !s.Pool.tryAcquire(id) {
			s.log.Warn("rejecting connection, maxclients reached", zap.Int64("id", id))
			_ = nc.Close()
			continue
		}
		c := NewConn(id, nc)
		s.mu.Lock()
		s.conns[id] = c
		s.mu.Unlock()

		go s.handleConn(ctx, c)
	}
}

func (s *Server) handleConn(ctx context.Context, c *Conn) {
	defer func() {
		s.Master.Detach(c.ID)
		s.Blocked.Cancel(c.ID)
		s.PubSub.UnsubscribeAll(c.ID)
		s.Pool.release(c.ID)
		s.mu.Lock()
		delete(s.conns, c.ID)
		s.mu.Unlock()
		_ = c.Close()
	}()

	for {
		if s.cfg.Timeout > 0 {
			_ = c.netConn.SetReadDeadline(time.Now().Add(time.Duration(s.cfg.Timeout) * time.Second))
		}
		args, err := c.Reader.ReadCommand()
		if err != nil {
			return
		}
		if len(args) == 0 {
			continue
		}
		c.Touch()

		if err := s.dispatcher.Dispatch(ctx, c, args); err != nil {
			return
		}
		if err := c.Writer.Flush(); err != nil {
			return
		}
		if c.ReplicaOutbox != nil {
			s.pumpReplica(ctx, c)
			return
		}
	}
}

// pumpReplica takes over a connection after PSYNC: the client-command
// read loop stops, and every command propagated to this replica's
// outbox is written to the socket until it closes or disconnects.
func (s *Server) pumpReplica(ctx context.Context, c *Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		case encoded, ok := <-c.ReplicaOutbox:
			if !ok {
				return
			}
			if _, err := c.netConn.Write(encoded); err != nil {
				return
			}
		}
	}
}

func (s *Server) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Blocked.SweepTimeouts(time.Now)
		}
	}
}
