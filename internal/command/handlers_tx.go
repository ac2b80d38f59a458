package command

import (
	"context"
	"strings"

	"github.com/edirooss/vermilion/internal/cmderr"
	"github.com/edirooss/vermilion/internal/resp"
	"github.com/edirooss/vermilion/internal/server"
)

func (d *Dispatcher) cmdMulti(conn *server.Conn) error {
	if conn.TxState != server.TxNormal {
		return d.writeErr(conn, cmderr.New("MULTI calls can not be nested"))
	}
	conn.TxState = server.TxInMulti
	conn.Queued = nil
	return d.writeFrame(conn, resp.NewSimpleString("OK"))
}

func (d *Dispatcher) cmdDiscard(conn *server.Conn) error {
	if conn.TxState == server.TxNormal {
		return d.writeErr(conn, cmderr.New("DISCARD without MULTI"))
	}
	conn.TxState = server.TxNormal
	conn.Queued = nil
	conn.Watches = nil
	return d.writeFrame(conn, resp.NewSimpleString("OK"))
}

// cmdExec runs the queued command batch atomically under the
// dispatch lock (spec §4.3 "EXEC": no other command interleaves with
// the batch), after checking every watched key's modification
// counter against its baseline.
func (d *Dispatcher) cmdExec(ctx context.Context, conn *server.Conn) error {
	if conn.TxState == server.TxNormal {
		return d.writeErr(conn, cmderr.New("EXEC without MULTI"))
	}
	if conn.TxState == server.TxAborted {
		conn.TxState = server.TxNormal
		conn.Queued = nil
		conn.Watches = nil
		return d.writeErr(conn, cmderr.ErrExecAbort)
	}

	queued := conn.Queued
	watches := conn.Watches
	conn.TxState = server.TxNormal
	conn.Queued = nil
	conn.Watches = nil

	var replies []*resp.Frame
	var aborted bool

	d.srv.WithDispatchLock(func() {
		for _, wk := range watches {
			db, err := d.srv.Engine().DB(wk.DBIndex)
			if err != nil {
				continue
			}
			if db.WasModifiedSince(wk.Key, conn.WatchBaseline(wk)) {
				aborted = true
				return
			}
		}
		if aborted {
			return
		}
		replies = make([]*resp.Frame, 0, len(queued))
		for _, qc := range queued {
			name := qc.Args[0]
			spec, ok := d.table[strings.ToUpper(name)]
			if !ok {
				replies = append(replies, resp.NewError(cmderr.Tag(cmderr.UnknownCommand(name, qc.Args))+" "+cmderr.UnknownCommand(name, qc.Args).Error()))
				continue
			}
			handler := spec.Handler
			if spec.Blocking && spec.ExecHandler != nil {
				handler = spec.ExecHandler
			}
			frame, err := handler(d, conn, qc.Args)
			if err != nil {
				replies = append(replies, resp.NewError(cmderr.Tag(err)+" "+err.Error()))
				continue
			}
			if spec.Write {
				d.srv.Propagate(qc.Args)
			}
			if frame == nil {
				frame = resp.NilBulk()
			}
			replies = append(replies, frame)
		}
	})

	if aborted {
		return d.writeFrame(conn, resp.NilArray())
	}
	return d.writeFrame(conn, resp.NewArray(replies...))
}

func (d *Dispatcher) cmdWatch(conn *server.Conn, args []string) (*resp.Frame, error) {
	if conn.TxState == server.TxInMulti {
		return nil, cmderr.New("WATCH inside MULTI is not allowed")
	}
	db, err := d.srv.Engine().DB(conn.DBIndex)
	if err != nil {
		return nil, err
	}
	for _, key := range args[1:] {
		baseline, _ := db.ModCounter(key)
		conn.AddWatch(server.WatchKey{DBIndex: conn.DBIndex, Key: key}, baseline)
	}
	return resp.NewSimpleString("OK"), nil
}

func (d *Dispatcher) cmdUnwatch(conn *server.Conn, args []string) (*resp.Frame, error) {
	conn.Watches = nil
	conn.ClearWatchBaselines()
	return resp.NewSimpleString("OK"), nil
}
