package command

import (
	"strconv"

	"github.com/edirooss/vermilion/internal/cmderr"
	"github.com/edirooss/vermilion/internal/resp"
	"github.com/edirooss/vermilion/internal/server"
)

func hHSet(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	if (len(args)-2)%2 != 0 || len(args) < 4 {
		return nil, cmderr.ArityError("hset")
	}
	pairs := make(map[string]string, (len(args)-2)/2)
	for i := 2; i < len(args); i += 2 {
		pairs[args[i]] = args[i+1]
	}
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	n, err := db.HSet(args[1], pairs)
	if err != nil {
		return nil, err
	}
	return resp.NewInteger(int64(n)), nil
}

func hHGet(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	v, ok, err := db.HGet(args[1], args[2])
	if err != nil {
		return nil, err
	}
	if !ok {
		return resp.NilBulk(), nil
	}
	return resp.NewBulkString(v), nil
}

func hHMGet(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	vals, err := db.HMGet(args[1], args[2:])
	if err != nil {
		return nil, err
	}
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

func hHGetAll(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	m, err := db.HGetAll(args[1])
	if err != nil {
		return nil, err
	}
	elems := make([]*resp.Frame, 0, len(m)*2)
	for k, v := range m {
		elems = append(elems, resp.NewBulkStringFrom(k), resp.NewBulkStringFrom(v))
	}
	return resp.NewArray(elems...), nil
}

func hHDel(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	n, err := db.HDel(args[1], args[2:])
	if err != nil {
		return nil, err
	}
	return resp.NewInteger(int64(n)), nil
}

func hHLen(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	n, err := db.HLen(args[1])
	if err != nil {
		return nil, err
	}
	return resp.NewInteger(int64(n)), nil
}

func hHExists(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	ok, err := db.HExists(args[1], args[2])
	if err != nil {
		return nil, err
	}
	if ok {
		return resp.NewInteger(1), nil
	}
	return resp.NewInteger(0), nil
}

func hHKeys(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	fields, err := db.HKeys(args[1])
	if err != nil {
		return nil, err
	}
	elems := make([][]byte, len(fields))
	for i, f := range fields {
		elems[i] = []byte(f)
	}
	return resp.NewBulkStringArray(elems...), nil
}

func hHVals(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	vals, err := db.HVals(args[1])
	if err != nil {
		return nil, err
	}
	elems := make([][]byte, len(vals))
	for i, v := range vals {
		elems[i] = []byte(v)
	}
	return resp.NewBulkStringArray(elems...), nil
}

func hHIncrBy(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	delta, err := strconv.ParseInt(args[3], 10, 64)
	if err != nil {
		return nil, cmderr.ErrNotInteger
	}
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	n, err := db.HIncrBy(args[1], args[2], delta)
	if err != nil {
		return nil, err
	}
	return resp.NewInteger(n), nil
}
