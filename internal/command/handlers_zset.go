package command

import (
	"math"
	"strconv"

	"github.com/edirooss/vermilion/internal/cmderr"
	"github.com/edirooss/vermilion/internal/resp"
	"github.com/edirooss/vermilion/internal/server"
	"github.com/edirooss/vermilion/internal/zset"
)

func hZAdd(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	rest := args[2:]
	if len(rest)%2 != 0 || len(rest) == 0 {
		return nil, cmderr.ArityError("zadd")
	}
	members := make([]zset.Entry, 0, len(rest)/2)
	for i := 0; i < len(rest); i += 2 {
		score, err := strconv.ParseFloat(rest[i], 64)
		if err != nil {
			return nil, cmderr.ErrNotFloat
		}
		members = append(members, zset.Entry{Score: score, Member: rest[i+1]})
	}
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	n, err := db.ZAdd(args[1], members)
	if err != nil {
		return nil, err
	}
	return resp.NewInteger(int64(n)), nil
}

func hZRem(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	n, err := db.ZRem(args[1], args[2:])
	if err != nil {
		return nil, err
	}
	return resp.NewInteger(int64(n)), nil
}

func hZScore(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	score, ok, err := db.ZScore(args[1], args[2])
	if err != nil {
		return nil, err
	}
	if !ok {
		return resp.NilBulk(), nil
	}
	return resp.NewBulkStringFrom(resp.FormatFloat(score)), nil
}

func zRankHandler(reverse bool) handlerFunc {
	return func(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
		db, err := d.db(conn)
		if err != nil {
			return nil, err
		}
		rank, ok, err := db.ZRank(args[1], args[2], reverse)
		if err != nil {
			return nil, err
		}
		if !ok {
			return resp.NilBulk(), nil
		}
		return resp.NewInteger(rank), nil
	}
}

func zRangeHandler(reverse bool) handlerFunc {
	return func(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
		start, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return nil, cmderr.ErrNotInteger
		}
		stop, err := strconv.ParseInt(args[3], 10, 64)
		if err != nil {
			return nil, cmderr.ErrNotInteger
		}
		withScores := len(args) >= 5 && upperByte(args[4]) == "WITHSCORES"
		db, err := d.db(conn)
		if err != nil {
			return nil, err
		}
		entries, err := db.ZRange(args[1], start, stop, reverse)
		if err != nil {
			return nil, err
		}
		return zEntriesFrame(entries, withScores), nil
	}
}

func hZRangeByScore(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	min, err := parseScoreBound(args[2])
	if err != nil {
		return nil, err
	}
	max, err := parseScoreBound(args[3])
	if err != nil {
		return nil, err
	}
	withScores := len(args) >= 5 && upperByte(args[4]) == "WITHSCORES"
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	entries, err := db.ZRangeByScore(args[1], min, max, false)
	if err != nil {
		return nil, err
	}
	return zEntriesFrame(entries, withScores), nil
}

func hZCount(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	min, err := parseScoreBound(args[2])
	if err != nil {
		return nil, err
	}
	max, err := parseScoreBound(args[3])
	if err != nil {
		return nil, err
	}
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	n, err := db.ZCount(args[1], min, max)
	if err != nil {
		return nil, err
	}
	return resp.NewInteger(n), nil
}

func hZIncrBy(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	delta, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return nil, cmderr.ErrNotFloat
	}
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	score, err := db.ZIncrBy(args[1], args[3], delta)
	if err != nil {
		return nil, err
	}
	return resp.NewBulkStringFrom(resp.FormatFloat(score)), nil
}

func hZCard(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	n, err := db.ZCard(args[1])
	if err != nil {
		return nil, err
	}
	return resp.NewInteger(n), nil
}

func zEntriesFrame(entries []zset.Entry, withScores bool) *resp.Frame {
	elems := make([]*resp.Frame, 0, len(entries)*2)
	for _, e := range entries {
		elems = append(elems, resp.NewBulkStringFrom(e.Member))
		if withScores {
			elems = append(elems, resp.NewBulkStringFrom(resp.FormatFloat(e.Score)))
		}
	}
	return resp.NewArray(elems...)
}

func parseScoreBound(s string) (float64, error) {
	switch s {
	case "-inf":
		return math.Inf(-1), nil
	case "+inf", "inf":
		return math.Inf(1), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, cmderr.ErrNotFloat
	}
	return f, nil
}
