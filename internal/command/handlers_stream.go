package command

import (
	"strconv"
	"time"

	"github.com/edirooss/vermilion/internal/cmderr"
	"github.com/edirooss/vermilion/internal/resp"
	"github.com/edirooss/vermilion/internal/server"
	"github.com/edirooss/vermilion/internal/xstream"
)

func hXAdd(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	idArg := args[2]
	rest := args[3:]
	if len(rest)%2 != 0 || len(rest) == 0 {
		return nil, cmderr.ArityError("xadd")
	}
	fields := make([]xstream.Field, 0, len(rest)/2)
	for i := 0; i < len(rest); i += 2 {
		fields = append(fields, xstream.Field{Name: rest[i], Value: rest[i+1]})
	}

	var id xstream.ID
	auto := idArg == "*"
	if !auto {
		parsed, err := xstream.ParseID(idArg, 0)
		if err != nil {
			return nil, err
		}
		id = parsed
	}

	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	result, err := db.XAdd(args[1], id, auto, uint64(time.Now().UnixMilli()), fields)
	if err != nil {
		return nil, err
	}
	return resp.NewBulkStringFrom(result.String()), nil
}

func hXRange(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	start, err := xstream.ParseID(args[2], 0)
	if err != nil {
		return nil, err
	}
	end, err := xstream.ParseID(args[3], ^uint64(0))
	if err != nil {
		return nil, err
	}
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	entries, err := db.XRange(args[1], start, end)
	if err != nil {
		return nil, err
	}
	return xEntriesFrame(entries), nil
}

func hXRevRange(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	start, err := xstream.ParseID(args[2], ^uint64(0))
	if err != nil {
		return nil, err
	}
	end, err := xstream.ParseID(args[3], 0)
	if err != nil {
		return nil, err
	}
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	entries, err := db.XRevRange(args[1], end, start)
	if err != nil {
		return nil, err
	}
	return xEntriesFrame(entries), nil
}

func hXLen(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	n, err := db.XLen(args[1])
	if err != nil {
		return nil, err
	}
	return resp.NewInteger(int64(n)), nil
}

func hXTrim(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	if upperByte(args[2]) != "MAXLEN" {
		return nil, cmderr.ErrSyntax
	}
	idx := 3
	if args[idx] == "~" || args[idx] == "=" {
		idx++
	}
	maxLen, err := strconv.Atoi(args[idx])
	if err != nil {
		return nil, cmderr.ErrNotInteger
	}
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	n, err := db.XTrim(args[1], maxLen)
	if err != nil {
		return nil, err
	}
	return resp.NewInteger(int64(n)), nil
}

func hXDel(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	ids := make([]xstream.ID, 0, len(args)-2)
	for _, a := range args[2:] {
		id, err := xstream.ParseID(a, 0)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	n, err := db.XDel(args[1], ids)
	if err != nil {
		return nil, err
	}
	return resp.NewInteger(int64(n)), nil
}

func xEntriesFrame(entries []xstream.Entry) *resp.Frame {
	elems := make([]*resp.Frame, len(entries))
	for i, e := range entries {
		fieldElems := make([]*resp.Frame, 0, len(e.Fields)*2)
		for _, f := range e.Fields {
			fieldElems = append(fieldElems, resp.NewBulkStringFrom(f.Name), resp.NewBulkStringFrom(f.Value))
		}
		elems[i] = resp.NewArray(
			resp.NewBulkStringFrom(e.ID.String()),
			resp.NewArray(fieldElems...),
		)
	}
	return resp.NewArray(elems...)
}
