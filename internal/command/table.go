package command

import (
	"github.com/edirooss/vermilion/internal/cmderr"
	"github.com/edirooss/vermilion/internal/resp"
	"github.com/edirooss/vermilion/internal/server"
)

// buildTable assembles the command table from every handlers_*.go
// file in this package. MinArgs/MaxArgs count the command name
// itself, matching Redis' own arity convention (a negative MaxArgs
// would mean unbounded; -1 is used here for that instead).
func buildTable() map[string]*cmdSpec {
	specs := []*cmdSpec{
		// Connection / introspection
		{Name: "PING", MinArgs: 1, MaxArgs: 2, Handler: hPing},
		{Name: "ECHO", MinArgs: 2, MaxArgs: 2, Handler: hEcho},
		{Name: "AUTH", MinArgs: 2, MaxArgs: 3, Handler: hAuth},
		{Name: "QUIT", MinArgs: 1, MaxArgs: 1, Handler: hQuit},
		{Name: "RESET", MinArgs: 1, MaxArgs: 1, Handler: hReset},
		{Name: "TIME", MinArgs: 1, MaxArgs: 1, Handler: hTime},
		{Name: "CLIENT", MinArgs: 2, MaxArgs: -1, Handler: hClient},
		{Name: "MEMORY", MinArgs: 2, MaxArgs: -1, Handler: hMemory},
		{Name: "CONFIG", MinArgs: 2, MaxArgs: -1, Handler: hConfig},
		{Name: "INFO", MinArgs: 1, MaxArgs: 2, Handler: hInfo},
		{Name: "MONITOR", MinArgs: 1, MaxArgs: 1, Handler: hMonitor},

		// Keyspace
		{Name: "DEL", MinArgs: 2, MaxArgs: -1, Handler: hDel, Write: true},
		{Name: "EXISTS", MinArgs: 2, MaxArgs: -1, Handler: hExists},
		{Name: "EXPIRE", MinArgs: 3, MaxArgs: 4, Handler: hExpire, Write: true},
		{Name: "PEXPIRE", MinArgs: 3, MaxArgs: 4, Handler: hPExpire, Write: true},
		{Name: "PERSIST", MinArgs: 2, MaxArgs: 2, Handler: hPersist, Write: true},
		{Name: "TTL", MinArgs: 2, MaxArgs: 2, Handler: hTTL},
		{Name: "PTTL", MinArgs: 2, MaxArgs: 2, Handler: hPTTL},
		{Name: "TYPE", MinArgs: 2, MaxArgs: 2, Handler: hType},
		{Name: "KEYS", MinArgs: 2, MaxArgs: 2, Handler: hKeys},
		{Name: "FLUSHDB", MinArgs: 1, MaxArgs: 2, Handler: hFlushDB, Write: true},
		{Name: "FLUSHALL", MinArgs: 1, MaxArgs: 2, Handler: hFlushAll, Write: true},
		{Name: "DBSIZE", MinArgs: 1, MaxArgs: 1, Handler: hDBSize},
		{Name: "SELECT", MinArgs: 2, MaxArgs: 2, Handler: hSelect},

		// Strings
		{Name: "GET", MinArgs: 2, MaxArgs: 2, Handler: hGet},
		{Name: "SET", MinArgs: 3, MaxArgs: -1, Handler: hSet, Write: true},
		{Name: "SETNX", MinArgs: 3, MaxArgs: 3, Handler: hSetNX, Write: true},
		{Name: "SETEX", MinArgs: 4, MaxArgs: 4, Handler: hSetEX, Write: true},
		{Name: "MGET", MinArgs: 2, MaxArgs: -1, Handler: hMGet},
		{Name: "MSET", MinArgs: 3, MaxArgs: -1, Handler: hMSet, Write: true},
		{Name: "INCR", MinArgs: 2, MaxArgs: 2, Handler: hIncr, Write: true},
		{Name: "DECR", MinArgs: 2, MaxArgs: 2, Handler: hDecr, Write: true},
		{Name: "INCRBY", MinArgs: 3, MaxArgs: 3, Handler: hIncrBy, Write: true},
		{Name: "DECRBY", MinArgs: 3, MaxArgs: 3, Handler: hDecrBy, Write: true},
		{Name: "INCRBYFLOAT", MinArgs: 3, MaxArgs: 3, Handler: hIncrByFloat, Write: true},
		{Name: "APPEND", MinArgs: 3, MaxArgs: 3, Handler: hAppend, Write: true},
		{Name: "STRLEN", MinArgs: 2, MaxArgs: 2, Handler: hStrLen},

		// Lists
		{Name: "LPUSH", MinArgs: 3, MaxArgs: -1, Handler: hLPush, Write: true},
		{Name: "RPUSH", MinArgs: 3, MaxArgs: -1, Handler: hRPush, Write: true},
		{Name: "LPOP", MinArgs: 2, MaxArgs: 3, Handler: hLPop, Write: true},
		{Name: "RPOP", MinArgs: 2, MaxArgs: 3, Handler: hRPop, Write: true},
		{Name: "LLEN", MinArgs: 2, MaxArgs: 2, Handler: hLLen},
		{Name: "LRANGE", MinArgs: 4, MaxArgs: 4, Handler: hLRange},
		{Name: "LINDEX", MinArgs: 3, MaxArgs: 3, Handler: hLIndex},
		// BLPOP/BRPOP are not propagated to the AOF/replicas: whether
		// and when they pop depends on other clients' timing, which a
		// replica or AOF replay can't reproduce. A real deployment
		// would rewrite the propagated form to the equivalent LPOP/RPOP
		// once a value is actually popped; left as a known limitation.
		{Name: "BLPOP", MinArgs: 3, MaxArgs: -1, Handler: hBLPop, Blocking: true, ExecHandler: hBLPopNoBlock},
		{Name: "BRPOP", MinArgs: 3, MaxArgs: -1, Handler: hBRPop, Blocking: true, ExecHandler: hBRPopNoBlock},

		// Sets
		{Name: "SADD", MinArgs: 3, MaxArgs: -1, Handler: hSAdd, Write: true},
		{Name: "SREM", MinArgs: 3, MaxArgs: -1, Handler: hSRem, Write: true},
		{Name: "SMEMBERS", MinArgs: 2, MaxArgs: 2, Handler: hSMembers},
		{Name: "SCARD", MinArgs: 2, MaxArgs: 2, Handler: hSCard},
		{Name: "SISMEMBER", MinArgs: 3, MaxArgs: 3, Handler: hSIsMember},

		// Hashes
		{Name: "HSET", MinArgs: 4, MaxArgs: -1, Handler: hHSet, Write: true},
		{Name: "HGET", MinArgs: 3, MaxArgs: 3, Handler: hHGet},
		{Name: "HMGET", MinArgs: 3, MaxArgs: -1, Handler: hHMGet},
		{Name: "HGETALL", MinArgs: 2, MaxArgs: 2, Handler: hHGetAll},
		{Name: "HDEL", MinArgs: 3, MaxArgs: -1, Handler: hHDel, Write: true},
		{Name: "HLEN", MinArgs: 2, MaxArgs: 2, Handler: hHLen},
		{Name: "HEXISTS", MinArgs: 3, MaxArgs: 3, Handler: hHExists},
		{Name: "HKEYS", MinArgs: 2, MaxArgs: 2, Handler: hHKeys},
		{Name: "HVALS", MinArgs: 2, MaxArgs: 2, Handler: hHVals},
		{Name: "HINCRBY", MinArgs: 4, MaxArgs: 4, Handler: hHIncrBy, Write: true},

		// Sorted sets
		{Name: "ZADD", MinArgs: 4, MaxArgs: -1, Handler: hZAdd, Write: true},
		{Name: "ZREM", MinArgs: 3, MaxArgs: -1, Handler: hZRem, Write: true},
		{Name: "ZSCORE", MinArgs: 3, MaxArgs: 3, Handler: hZScore},
		{Name: "ZRANK", MinArgs: 3, MaxArgs: 3, Handler: zRankHandler(false)},
		{Name: "ZREVRANK", MinArgs: 3, MaxArgs: 3, Handler: zRankHandler(true)},
		{Name: "ZRANGE", MinArgs: 4, MaxArgs: 5, Handler: zRangeHandler(false)},
		{Name: "ZREVRANGE", MinArgs: 4, MaxArgs: 5, Handler: zRangeHandler(true)},
		{Name: "ZRANGEBYSCORE", MinArgs: 4, MaxArgs: 5, Handler: hZRangeByScore},
		{Name: "ZCOUNT", MinArgs: 4, MaxArgs: 4, Handler: hZCount},
		{Name: "ZINCRBY", MinArgs: 4, MaxArgs: 4, Handler: hZIncrBy, Write: true},
		{Name: "ZCARD", MinArgs: 2, MaxArgs: 2, Handler: hZCard},

		// Streams
		{Name: "XADD", MinArgs: 5, MaxArgs: -1, Handler: hXAdd, Write: true},
		{Name: "XRANGE", MinArgs: 4, MaxArgs: 4, Handler: hXRange},
		{Name: "XREVRANGE", MinArgs: 4, MaxArgs: 4, Handler: hXRevRange},
		{Name: "XLEN", MinArgs: 2, MaxArgs: 2, Handler: hXLen},
		{Name: "XTRIM", MinArgs: 4, MaxArgs: 5, Handler: hXTrim, Write: true},
		{Name: "XDEL", MinArgs: 3, MaxArgs: -1, Handler: hXDel, Write: true},

		// Pub/sub. The SUBSCRIBE family is special-cased in Dispatch
		// since it writes multiple frames; its entries here serve the
		// lookup and arity check only.
		{Name: "SUBSCRIBE", MinArgs: 2, MaxArgs: -1, Handler: hConnStateOnly},
		{Name: "PSUBSCRIBE", MinArgs: 2, MaxArgs: -1, Handler: hConnStateOnly},
		{Name: "UNSUBSCRIBE", MinArgs: 1, MaxArgs: -1, Handler: hConnStateOnly},
		{Name: "PUNSUBSCRIBE", MinArgs: 1, MaxArgs: -1, Handler: hConnStateOnly},
		{Name: "PUBLISH", MinArgs: 3, MaxArgs: 3, Handler: hPublish},
		{Name: "PUBSUB", MinArgs: 2, MaxArgs: -1, Handler: hPubSub},

		// Transactions (MULTI/EXEC/DISCARD are likewise run by Dispatch)
		{Name: "MULTI", MinArgs: 1, MaxArgs: 1, Handler: hConnStateOnly},
		{Name: "EXEC", MinArgs: 1, MaxArgs: 1, Handler: hConnStateOnly},
		{Name: "DISCARD", MinArgs: 1, MaxArgs: 1, Handler: hConnStateOnly},
		{Name: "WATCH", MinArgs: 2, MaxArgs: -1, Handler: dispatcherWatch},
		{Name: "UNWATCH", MinArgs: 1, MaxArgs: 1, Handler: dispatcherUnwatch},

		// Persistence
		{Name: "SAVE", MinArgs: 1, MaxArgs: 1, Handler: hSave},
		{Name: "BGSAVE", MinArgs: 1, MaxArgs: 1, Handler: hBgSave},
		{Name: "LASTSAVE", MinArgs: 1, MaxArgs: 1, Handler: hLastSave},
		{Name: "BGREWRITEAOF", MinArgs: 1, MaxArgs: 1, Handler: hBgRewriteAOF},

		// Replication
		{Name: "REPLICAOF", MinArgs: 3, MaxArgs: 3, Handler: hReplicaOf},
		{Name: "SLAVEOF", MinArgs: 3, MaxArgs: 3, Handler: hReplicaOf},
		{Name: "ROLE", MinArgs: 1, MaxArgs: 1, Handler: hRole},
		{Name: "REPLCONF", MinArgs: 2, MaxArgs: -1, Handler: hReplConf},
		{Name: "PSYNC", MinArgs: 3, MaxArgs: 3, Handler: hPSync},

		// Scripting
		{Name: "EVAL", MinArgs: 3, MaxArgs: -1, Handler: hEval},
		{Name: "EVALSHA", MinArgs: 3, MaxArgs: -1, Handler: hEvalSha},
		{Name: "SCRIPT", MinArgs: 2, MaxArgs: -1, Handler: hScript},
	}

	table := make(map[string]*cmdSpec, len(specs)*2)
	for _, s := range specs {
		table[s.Name] = s
	}
	return table
}

// dispatcherWatch/dispatcherUnwatch adapt cmdWatch/cmdUnwatch (which
// take no context) to handlerFunc's shape.
func dispatcherWatch(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	return d.cmdWatch(conn, args)
}

func dispatcherUnwatch(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	return d.cmdUnwatch(conn, args)
}

// hConnStateOnly backs the entries of commands that Dispatch runs
// itself; it is reached only when such a command arrives by another
// route.
func hConnStateOnly(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	return nil, cmderr.New("'%s' is not allowed in this context", args[0])
}

// hMonitor puts conn into monitor mode: feedMonitor then echoes every
// command issued by other connections to it.
func hMonitor(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	conn.Monitoring = true
	return resp.NewSimpleString("OK"), nil
}
