package command

import (
	"strconv"
	"time"

	"github.com/edirooss/vermilion/internal/cmderr"
	"github.com/edirooss/vermilion/internal/resp"
	"github.com/edirooss/vermilion/internal/server"
	"github.com/edirooss/vermilion/internal/storage"
)

func hGet(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	v, err := db.Get(args[1])
	if err != nil {
		return nil, err
	}
	if v == nil {
		return resp.NilBulk(), nil
	}
	return resp.NewBulkString(v), nil
}

func hSet(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	opts := storage.SetOptions{}
	for i := 3; i < len(args); i++ {
		switch upperByte(args[i]) {
		case "NX":
			opts.NX = true
		case "XX":
			opts.XX = true
		case "EX":
			i++
			if i >= len(args) {
				return nil, cmderr.ErrSyntax
			}
			secs, err := strconv.ParseInt(args[i], 10, 64)
			if err != nil {
				return nil, cmderr.ErrNotInteger
			}
			opts.TTL = time.Duration(secs) * time.Second
		case "PX":
			i++
			if i >= len(args) {
				return nil, cmderr.ErrSyntax
			}
			ms, err := strconv.ParseInt(args[i], 10, 64)
			if err != nil {
				return nil, cmderr.ErrNotInteger
			}
			opts.TTL = time.Duration(ms) * time.Millisecond
		default:
			return nil, cmderr.ErrSyntax
		}
	}
	ok, err := db.Set(args[1], []byte(args[2]), opts)
	if err != nil {
		return nil, err
	}
	if !ok {
		return resp.NilBulk(), nil
	}
	return resp.NewSimpleString("OK"), nil
}

func hSetNX(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	ok, err := db.Set(args[1], []byte(args[2]), storage.SetOptions{NX: true})
	if err != nil {
		return nil, err
	}
	if ok {
		return resp.NewInteger(1), nil
	}
	return resp.NewInteger(0), nil
}

func hSetEX(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	secs, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		return nil, cmderr.ErrNotInteger
	}
	_, err = db.Set(args[1], []byte(args[3]), storage.SetOptions{TTL: time.Duration(secs) * time.Second})
	if err != nil {
		return nil, err
	}
	return resp.NewSimpleString("OK"), nil
}

func hMGet(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	vals := db.MGet(args[1:])
	elems := make([]*resp.Frame, len(vals))
	for i, v := range vals {
		if v == nil {
			elems[i] = resp.NilBulk()
		} else {
			elems[i] = resp.NewBulkString(v)
		}
	}
	return resp.NewArray(elems...), nil
}

func hMSet(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	if (len(args)-1)%2 != 0 {
		return nil, cmderr.ArityError("mset")
	}
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(args); i += 2 {
		if _, err := db.Set(args[i], []byte(args[i+1]), storage.SetOptions{}); err != nil {
			return nil, err
		}
	}
	return resp.NewSimpleString("OK"), nil
}

func hIncr(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	n, err := db.Incr(args[1])
	if err != nil {
		return nil, err
	}
	return resp.NewInteger(n), nil
}

func hDecr(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	n, err := db.Decr(args[1])
	if err != nil {
		return nil, err
	}
	return resp.NewInteger(n), nil
}

func hIncrBy(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	delta, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		return nil, cmderr.ErrNotInteger
	}
	n, err := db.IncrBy(args[1], delta)
	if err != nil {
		return nil, err
	}
	return resp.NewInteger(n), nil
}

func hDecrBy(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	delta, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		return nil, cmderr.ErrNotInteger
	}
	n, err := db.IncrBy(args[1], -delta)
	if err != nil {
		return nil, err
	}
	return resp.NewInteger(n), nil
}

func hIncrByFloat(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	delta, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return nil, cmderr.ErrNotFloat
	}
	n, err := db.IncrByFloat(args[1], delta)
	if err != nil {
		return nil, err
	}
	return resp.NewBulkStringFrom(resp.FormatFloat(n)), nil
}

func hAppend(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	n, err := db.Append(args[1], []byte(args[2]))
	if err != nil {
		return nil, err
	}
	return resp.NewInteger(int64(n)), nil
}

func hStrLen(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	n, err := db.StrLen(args[1])
	if err != nil {
		return nil, err
	}
	return resp.NewInteger(int64(n)), nil
}

func upperByte(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}
