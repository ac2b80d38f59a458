package command

import (
	"strconv"
	"time"

	"github.com/edirooss/vermilion/internal/blocking"
	"github.com/edirooss/vermilion/internal/cmderr"
	"github.com/edirooss/vermilion/internal/resp"
	"github.com/edirooss/vermilion/internal/server"
	"github.com/edirooss/vermilion/internal/storage"
)

func hLPush(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	n, err := db.LPush(args[1], stringsToBytes(args[2:]))
	if err != nil {
		return nil, err
	}
	d.srv.Blocked.NotifyPush(conn.DBIndex, args[1])
	return resp.NewInteger(int64(n)), nil
}

func hRPush(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	n, err := db.RPush(args[1], stringsToBytes(args[2:]))
	if err != nil {
		return nil, err
	}
	d.srv.Blocked.NotifyPush(conn.DBIndex, args[1])
	return resp.NewInteger(int64(n)), nil
}

func hLPop(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	return listPopReply(d, conn, args, true)
}

func hRPop(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	return listPopReply(d, conn, args, false)
}

func listPopReply(d *Dispatcher, conn *server.Conn, args []string, fromHead bool) (*resp.Frame, error) {
	count := 1
	if len(args) >= 3 {
		n, err := strconv.Atoi(args[2])
		if err != nil {
			return nil, cmderr.ErrNotInteger
		}
		count = n
	}
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	var out [][]byte
	if fromHead {
		out, err = db.LPop(args[1], count)
	} else {
		out, err = db.RPop(args[1], count)
	}
	if err != nil {
		return nil, err
	}
	if out == nil {
		if len(args) >= 3 {
			return resp.NilArray(), nil
		}
		return resp.NilBulk(), nil
	}
	if len(args) >= 3 {
		return resp.NewBulkStringArray(out...), nil
	}
	return resp.NewBulkString(out[0]), nil
}

func hLLen(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	n, err := db.LLen(args[1])
	if err != nil {
		return nil, err
	}
	return resp.NewInteger(int64(n)), nil
}

func hLRange(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	start, err := strconv.Atoi(args[2])
	if err != nil {
		return nil, cmderr.ErrNotInteger
	}
	stop, err := strconv.Atoi(args[3])
	if err != nil {
		return nil, cmderr.ErrNotInteger
	}
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	out, err := db.LRange(args[1], start, stop)
	if err != nil {
		return nil, err
	}
	return resp.NewBulkStringArray(out...), nil
}

func hLIndex(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	idx, err := strconv.Atoi(args[2])
	if err != nil {
		return nil, cmderr.ErrNotInteger
	}
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	v, err := db.LIndex(args[1], idx)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return resp.NilBulk(), nil
	}
	return resp.NewBulkString(v), nil
}

// hBLPop and hBRPop implement the blocking list pops from spec §4.3.
// They are registered as Blocking in the command table and so are
// invoked outside the generic dispatch-lock wrap; they take the lock
// themselves for each short attempt, matching the registry's contract.
func hBLPop(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	return blockingPop(d, conn, args, true)
}

func hBRPop(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	return blockingPop(d, conn, args, false)
}

// hBLPopNoBlock and hBRPopNoBlock are the non-blocking variants run
// when BLPOP/BRPOP is queued inside a MULTI/EXEC batch: real Redis
// never suspends a transaction mid-flight, so the blocking timeout is
// ignored and the command behaves like a single immediate attempt.
// They run with the dispatch lock already held by the EXEC batch, so
// unlike blockingPop they call the no-lock pop directly.
func hBLPopNoBlock(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	return execBlockingPop(d, conn, args, true)
}

func hBRPopNoBlock(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	return execBlockingPop(d, conn, args, false)
}

func execBlockingPop(d *Dispatcher, conn *server.Conn, args []string, fromHead bool) (*resp.Frame, error) {
	keys := args[1 : len(args)-1]
	if _, err := strconv.ParseFloat(args[len(args)-1], 64); err != nil {
		return nil, cmderr.New("timeout is not a float or out of range")
	}
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	if key, val, ok := tryPopAnyLocked(db, keys, fromHead); ok {
		return resp.NewArray(resp.NewBulkStringFrom(key), resp.NewBulkString(val)), nil
	}
	return resp.NilArray(), nil
}

func blockingPop(d *Dispatcher, conn *server.Conn, args []string, fromHead bool) (*resp.Frame, error) {
	keys := args[1 : len(args)-1]
	timeoutSecs, err := strconv.ParseFloat(args[len(args)-1], 64)
	if err != nil || timeoutSecs < 0 {
		return nil, cmderr.New("timeout is not a float or out of range")
	}

	if key, val, ok := tryPopAny(d, conn, keys, fromHead); ok {
		return resp.NewArray(resp.NewBulkStringFrom(key), resp.NewBulkString(val)), nil
	}

	var deadline time.Time
	if timeoutSecs > 0 {
		deadline = time.Now().Add(time.Duration(timeoutSecs * float64(time.Second)))
	}
	waiter := &blocking.Waiter{
		ConnID:   conn.ID,
		DBIndex:  conn.DBIndex,
		Keys:     keys,
		Deadline: deadline,
		Wake:     make(chan blocking.WakeResult, 1),
	}
	d.srv.Blocked.Register(waiter)

	res := <-waiter.Wake
	if res.TimedOut {
		return resp.NilArray(), nil
	}

	if key, val, ok := tryPopAny(d, conn, keys, fromHead); ok {
		return resp.NewArray(resp.NewBulkStringFrom(key), resp.NewBulkString(val)), nil
	}
	// Lost the race to another waiter; re-queue once more with
	// whatever time remains, matching real Redis' re-block-on-race
	// behavior for BLPOP (spec §4.3 "Wake: re-queued").
	return blockingPopRemaining(d, conn, keys, fromHead, deadline)
}

func blockingPopRemaining(d *Dispatcher, conn *server.Conn, keys []string, fromHead bool, deadline time.Time) (*resp.Frame, error) {
	if !deadline.IsZero() && !deadline.After(time.Now()) {
		return resp.NilArray(), nil
	}
	waiter := &blocking.Waiter{
		ConnID:   conn.ID,
		DBIndex:  conn.DBIndex,
		Keys:     keys,
		Deadline: deadline,
		Wake:     make(chan blocking.WakeResult, 1),
	}
	d.srv.Blocked.Register(waiter)
	res := <-waiter.Wake
	if res.TimedOut {
		return resp.NilArray(), nil
	}
	if key, val, ok := tryPopAny(d, conn, keys, fromHead); ok {
		return resp.NewArray(resp.NewBulkStringFrom(key), resp.NewBulkString(val)), nil
	}
	return blockingPopRemaining(d, conn, keys, fromHead, deadline)
}

func tryPopAny(d *Dispatcher, conn *server.Conn, keys []string, fromHead bool) (string, []byte, bool) {
	var key string
	var val []byte
	var ok bool
	d.srv.WithDispatchLock(func() {
		db, err := d.srv.Engine().DB(conn.DBIndex)
		if err != nil {
			return
		}
		key, val, ok = tryPopAnyLocked(db, keys, fromHead)
	})
	return key, val, ok
}

// tryPopAnyLocked assumes the dispatch lock is already held.
func tryPopAnyLocked(db *storage.Database, keys []string, fromHead bool) (string, []byte, bool) {
	for _, k := range keys {
		var out [][]byte
		var err error
		if fromHead {
			out, err = db.LPop(k, 1)
		} else {
			out, err = db.RPop(k, 1)
		}
		if err != nil || len(out) == 0 {
			continue
		}
		return k, out[0], true
	}
	return "", nil, false
}

func stringsToBytes(ss []string) [][]byte {
	out := make([][]byte, len(ss))
	for i, s := range ss {
		out[i] = []byte(s)
	}
	return out
}
