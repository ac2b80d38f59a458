package command

import (
	"github.com/edirooss/vermilion/internal/resp"
	"github.com/edirooss/vermilion/internal/server"
)

func hSAdd(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	n, err := db.SAdd(args[1], args[2:])
	if err != nil {
		return nil, err
	}
	return resp.NewInteger(int64(n)), nil
}

func hSRem(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	n, err := db.SRem(args[1], args[2:])
	if err != nil {
		return nil, err
	}
	return resp.NewInteger(int64(n)), nil
}

func hSMembers(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	members, err := db.SMembers(args[1])
	if err != nil {
		return nil, err
	}
	elems := make([][]byte, len(members))
	for i, m := range members {
		elems[i] = []byte(m)
	}
	return resp.NewBulkStringArray(elems...), nil
}

func hSCard(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	n, err := db.SCard(args[1])
	if err != nil {
		return nil, err
	}
	return resp.NewInteger(int64(n)), nil
}

func hSIsMember(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	ok, err := db.SIsMember(args[1], args[2])
	if err != nil {
		return nil, err
	}
	if ok {
		return resp.NewInteger(1), nil
	}
	return resp.NewInteger(0), nil
}
