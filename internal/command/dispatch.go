// Package command implements the command pipeline from spec §4.3:
// arity checking, the MULTI/EXEC transaction state machine, the
// subscribe-mode command restriction, and per-family handlers that
// translate RESP commands into storage engine calls.
package command

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/edirooss/vermilion/internal/cmderr"
	"github.com/edirooss/vermilion/internal/resp"
	"github.com/edirooss/vermilion/internal/script"
	"github.com/edirooss/vermilion/internal/server"
)

// handlerFunc executes one command. Callers guarantee the server's
// dispatch lock is held for the duration of the call, so handlers
// touch the storage engine directly without locking it themselves.
// A (nil, nil) return means the handler already wrote its own reply
// frame(s) (SUBSCRIBE's per-channel confirmations, EXEC's nested
// array assembled from sub-replies, etc).
type handlerFunc func(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error)

type cmdSpec struct {
	Name    string
	MinArgs int // including the command name itself
	MaxArgs int // -1 means unbounded
	Handler handlerFunc
	// Blocking marks commands that may suspend the calling goroutine
	// (BLPOP/BRPOP). They are invoked outside the dispatch-lock wrap
	// and manage their own short lock/unlock cycles.
	Blocking bool
	// ExecHandler, when set, replaces Handler for a Blocking command
	// queued inside MULTI/EXEC: a transaction batch never suspends, so
	// the blocking variant is swapped for one that tries once under
	// the lock EXEC already holds and returns immediately.
	ExecHandler handlerFunc
	// Write marks commands that mutate the keyspace; a successful call
	// is fed to the AOF and to any attached replicas.
	Write bool
}

// Dispatcher is the server.Dispatcher implementation wired in by
// cmd/vermilion/main.go after both the server and command packages
// are constructed.
type Dispatcher struct {
	srv    *server.Server
	table  map[string]*cmdSpec
	script *script.Host
}

func New(srv *server.Server) *Dispatcher {
	d := &Dispatcher{srv: srv, script: script.NewHost()}
	d.table = buildTable()
	return d
}

var alwaysAllowedWhileSubscribed = map[string]struct{}{
	"SUBSCRIBE": {}, "UNSUBSCRIBE": {}, "PSUBSCRIBE": {}, "PUNSUBSCRIBE": {},
	"PING": {}, "QUIT": {}, "RESET": {},
}

// Dispatch implements server.Dispatcher.
func (d *Dispatcher) Dispatch(ctx context.Context, conn *server.Conn, args []string) error {
	name := strings.ToUpper(args[0])
	d.feedMonitor(conn, name, args)

	spec, ok := d.table[name]
	if !ok || !arityOK(spec, len(args)) {
		if conn.TxState == server.TxInMulti {
			conn.TxState = server.TxAborted
		}
		if !ok {
			return d.writeErr(conn, cmderr.UnknownCommand(name, args))
		}
		return d.writeErr(conn, cmderr.ArityError(strings.ToLower(name)))
	}

	if conn.IsSubscribed() {
		if _, allowed := alwaysAllowedWhileSubscribed[name]; !allowed {
			return d.writeErr(conn, cmderr.New("only (P)SUBSCRIBE / (P)UNSUBSCRIBE / PING / QUIT / RESET are allowed in this context"))
		}
	}

	switch name {
	case "MULTI":
		return d.cmdMulti(conn)
	case "DISCARD":
		return d.cmdDiscard(conn)
	case "EXEC":
		return d.cmdExec(ctx, conn)
	case "QUIT":
		if err := d.writeFrame(conn, resp.NewSimpleString("OK")); err != nil {
			return err
		}
		if err := conn.Writer.Flush(); err != nil {
			return err
		}
		return errQuit
	case "SUBSCRIBE", "UNSUBSCRIBE", "PSUBSCRIBE", "PUNSUBSCRIBE":
		// These write one reply frame per channel/pattern rather than a
		// single frame, so they don't fit the generic handlerFunc shape.
		var err error
		d.srv.WithDispatchLock(func() {
			switch name {
			case "SUBSCRIBE":
				err = d.cmdSubscribe(conn, args)
			case "UNSUBSCRIBE":
				err = d.cmdUnsubscribe(conn, args)
			case "PSUBSCRIBE":
				err = d.cmdPSubscribe(conn, args)
			case "PUNSUBSCRIBE":
				err = d.cmdPUnsubscribe(conn, args)
			}
		})
		return err
	case "WATCH", "UNWATCH":
		// Exempt from queueing per spec §4.3 item 2: WATCH must error
		// immediately while InMulti (cmdWatch's own guard) rather than
		// be queued and run later under EXEC's already-reset TxState,
		// which would otherwise let a queued WATCH silently repopulate
		// conn.Watches after EXEC just cleared it.
		return d.invokeAndReply(ctx, conn, spec, args)
	}

	if conn.TxState != server.TxNormal {
		conn.Queued = append(conn.Queued, server.QueuedCommand{Args: append([]string(nil), args...)})
		return d.writeFrame(conn, resp.NewSimpleString("QUEUED"))
	}

	return d.invokeAndReply(ctx, conn, spec, args)
}

func (d *Dispatcher) invokeAndReply(ctx context.Context, conn *server.Conn, spec *cmdSpec, args []string) error {
	frame, err := d.invoke(ctx, conn, spec, args, true)
	if err != nil {
		return d.writeErr(conn, err)
	}
	if frame == nil {
		return nil
	}
	return d.writeFrame(conn, frame)
}

// invoke runs spec's handler, taking the server-wide dispatch lock
// for the duration unless the command is a blocking one being allowed
// to actually block (in which case the handler manages the lock
// itself in short critical sections around its retry attempts).
func (d *Dispatcher) invoke(ctx context.Context, conn *server.Conn, spec *cmdSpec, args []string, allowBlock bool) (*resp.Frame, error) {
	if spec.Blocking && allowBlock {
		frame, err := spec.Handler(d, conn, args)
		if err == nil && spec.Write {
			d.srv.Propagate(args)
		}
		return frame, err
	}
	var frame *resp.Frame
	var err error
	d.srv.WithDispatchLock(func() {
		frame, err = spec.Handler(d, conn, args)
		if err == nil && spec.Write {
			d.srv.Propagate(args)
		}
	})
	return frame, err
}

func arityOK(spec *cmdSpec, n int) bool {
	if n < spec.MinArgs {
		return false
	}
	if spec.MaxArgs >= 0 && n > spec.MaxArgs {
		return false
	}
	return true
}

func (d *Dispatcher) writeFrame(conn *server.Conn, f *resp.Frame) error {
	return conn.Writer.WriteFrame(f)
}

func (d *Dispatcher) writeErr(conn *server.Conn, err error) error {
	tag := cmderr.Tag(err)
	msg := err.Error()
	return conn.Writer.WriteFrame(resp.NewError(tag + " " + msg))
}

func (d *Dispatcher) feedMonitor(conn *server.Conn, name string, args []string) {
	if name == "AUTH" {
		return // redact credentials from the monitor tap
	}
	line := renderMonitorLine(conn, args)
	for _, c := range d.srv.Conns() {
		if c.Monitoring && c.ID != conn.ID {
			c.WriteMonitorLine(line)
		}
	}
}

func renderMonitorLine(conn *server.Conn, args []string) string {
	var b strings.Builder
	b.WriteString(time.Now().Format("2006-01-02T15:04:05.000000"))
	b.WriteString(" [")
	b.WriteString(strconv.Itoa(conn.DBIndex))
	b.WriteString(" ")
	b.WriteString(conn.RemoteAddr)
	b.WriteString("]")
	for _, a := range args {
		b.WriteString(" \"")
		b.WriteString(strings.ReplaceAll(a, `"`, `\"`))
		b.WriteString("\"")
	}
	return b.String()
}
