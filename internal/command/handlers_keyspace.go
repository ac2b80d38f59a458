package command

import (
	"strconv"
	"time"

	"github.com/edirooss/vermilion/internal/cmderr"
	"github.com/edirooss/vermilion/internal/resp"
	"github.com/edirooss/vermilion/internal/server"
	"github.com/edirooss/vermilion/internal/storage"
)

func (d *Dispatcher) db(conn *server.Conn) (*storage.Database, error) {
	return d.srv.Engine().DB(conn.DBIndex)
}

func hDel(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	var n int64
	for _, k := range args[1:] {
		if db.Delete(k) {
			n++
		}
	}
	return resp.NewInteger(n), nil
}

func hExists(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	var n int64
	for _, k := range args[1:] {
		if db.Exists(k) {
			n++
		}
	}
	return resp.NewInteger(n), nil
}

func hExpire(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	secs, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		return nil, cmderr.ErrNotInteger
	}
	ok := db.Expire(args[1], time.Now().Add(time.Duration(secs)*time.Second))
	if ok {
		return resp.NewInteger(1), nil
	}
	return resp.NewInteger(0), nil
}

func hPExpire(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	ms, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		return nil, cmderr.ErrNotInteger
	}
	ok := db.Expire(args[1], time.Now().Add(time.Duration(ms)*time.Millisecond))
	if ok {
		return resp.NewInteger(1), nil
	}
	return resp.NewInteger(0), nil
}

func hPersist(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	if db.Persist(args[1]) {
		return resp.NewInteger(1), nil
	}
	return resp.NewInteger(0), nil
}

func hTTL(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	ttl, exists := db.TTL(args[1])
	if !exists {
		return resp.NewInteger(-2), nil
	}
	if ttl == nil {
		return resp.NewInteger(-1), nil
	}
	return resp.NewInteger(int64((*ttl).Seconds())), nil
}

func hPTTL(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	ttl, exists := db.TTL(args[1])
	if !exists {
		return resp.NewInteger(-2), nil
	}
	if ttl == nil {
		return resp.NewInteger(-1), nil
	}
	return resp.NewInteger((*ttl).Milliseconds()), nil
}

func hType(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	kind, exists := db.Type(args[1])
	if !exists {
		return resp.NewSimpleString("none"), nil
	}
	return resp.NewSimpleString(kind.String()), nil
}

func hKeys(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	pattern := args[1]
	var out [][]byte
	for _, k := range db.Keys() {
		if resp.Match(pattern, k) {
			out = append(out, []byte(k))
		}
	}
	return resp.NewBulkStringArray(out...), nil
}

func hFlushDB(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	db.Flush()
	return resp.NewSimpleString("OK"), nil
}

func hFlushAll(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	d.srv.Engine().FlushAll()
	return resp.NewSimpleString("OK"), nil
}

func hDBSize(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	return resp.NewInteger(int64(db.Len())), nil
}

func hSelect(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return nil, cmderr.ErrNotInteger
	}
	if _, err := d.srv.Engine().DB(n); err != nil {
		return nil, err
	}
	conn.DBIndex = n
	return resp.NewSimpleString("OK"), nil
}
