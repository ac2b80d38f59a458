package command

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/edirooss/vermilion/internal/cmderr"
	"github.com/edirooss/vermilion/internal/config"
	"github.com/edirooss/vermilion/internal/resp"
	"github.com/edirooss/vermilion/internal/server"
)

var startTime = time.Now()

func hPing(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	if len(args) >= 2 {
		return resp.NewBulkStringFrom(args[1]), nil
	}
	return resp.NewSimpleString("PONG"), nil
}

func hEcho(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	return resp.NewBulkStringFrom(args[1]), nil
}

func hAuth(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	pass := args[len(args)-1]
	required := d.srv.Config().RequirePass
	if required == "" {
		return nil, cmderr.New("Client sent AUTH, but no password is set. Did you mean AUTH <username> <password>?")
	}
	if pass != required {
		return nil, cmderr.Tagged("WRONGPASS", "invalid username-password pair or user is disabled.")
	}
	return resp.NewSimpleString("OK"), nil
}

func hTime(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	now := time.Now()
	return resp.NewArray(
		resp.NewBulkStringFrom(strconv.FormatInt(now.Unix(), 10)),
		resp.NewBulkStringFrom(strconv.FormatInt(int64(now.Nanosecond()/1000), 10)),
	), nil
}

func hClientID(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	return resp.NewInteger(conn.ID), nil
}

func hClientGetName(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	if conn.Name == "" {
		return resp.NilBulk(), nil
	}
	return resp.NewBulkStringFrom(conn.Name), nil
}

func hClientSetName(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	conn.Name = args[1]
	return resp.NewSimpleString("OK"), nil
}

func hClientList(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	var b strings.Builder
	for _, c := range d.srv.Conns() {
		fmt.Fprintf(&b, "id=%d addr=%s db=%d name=%s age=%d\n",
			c.ID, c.RemoteAddr, c.DBIndex, c.Name, int(time.Since(c.CreatedAt).Seconds()))
	}
	return resp.NewBulkStringFrom(b.String()), nil
}

func hClient(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	if len(args) < 2 {
		return nil, cmderr.ArityError("client")
	}
	switch upperByte(args[1]) {
	case "ID":
		return hClientID(d, conn, args)
	case "GETNAME":
		return hClientGetName(d, conn, args)
	case "SETNAME":
		if len(args) < 3 {
			return nil, cmderr.ArityError("client|setname")
		}
		return hClientSetName(d, conn, []string{args[1], args[2]})
	case "LIST":
		return hClientList(d, conn, args)
	case "KILL":
		if len(args) < 3 {
			return nil, cmderr.ArityError("client|kill")
		}
		id, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return nil, cmderr.ErrNotInteger
		}
		if d.srv.KillConn(id) {
			return resp.NewSimpleString("OK"), nil
		}
		return nil, cmderr.New("No such client")
	default:
		return resp.NewSimpleString("OK"), nil
	}
}

func hMemoryUsage(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	if len(args) < 2 {
		return nil, cmderr.ArityError("memory|usage")
	}
	db, err := d.db(conn)
	if err != nil {
		return nil, err
	}
	n := db.MemoryUsage(args[1])
	if n < 0 {
		return resp.NilBulk(), nil
	}
	return resp.NewInteger(n), nil
}

func hMemory(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	if len(args) < 2 {
		return nil, cmderr.ArityError("memory")
	}
	switch upperByte(args[1]) {
	case "USAGE":
		return hMemoryUsage(d, conn, args[1:])
	case "DOCTOR":
		return resp.NewBulkStringFrom("Sam, I detected a few issues in this Redis instance memory implants:\n\n * everything looks fine"), nil
	default:
		return nil, cmderr.New("unknown MEMORY subcommand")
	}
}

func hConfig(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	if len(args) < 2 {
		return nil, cmderr.ArityError("config")
	}
	cfg := d.srv.Config()
	switch upperByte(args[1]) {
	case "GET":
		if len(args) < 3 {
			return nil, cmderr.ArityError("config|get")
		}
		key := strings.ToLower(args[2])
		val, ok := configGet(cfg, key)
		if !ok {
			return resp.NewArray(), nil
		}
		return resp.NewArray(resp.NewBulkStringFrom(key), resp.NewBulkStringFrom(val)), nil
	case "SET":
		if len(args) < 4 {
			return nil, cmderr.ArityError("config|set")
		}
		if err := configSet(d, cfg, strings.ToLower(args[2]), args[3]); err != nil {
			return nil, err
		}
		return resp.NewSimpleString("OK"), nil
	default:
		return resp.NewSimpleString("OK"), nil
	}
}

func configGet(cfg *config.Config, key string) (string, bool) {
	switch key {
	case "maxclients":
		return strconv.Itoa(cfg.MaxClients), true
	case "maxmemory":
		return strconv.FormatInt(cfg.MaxMemory, 10), true
	case "maxmemory-policy":
		return string(cfg.MaxMemoryPolicy), true
	case "appendonly":
		if cfg.AppendOnly {
			return "yes", true
		}
		return "no", true
	case "requirepass":
		return cfg.RequirePass, true
	case "timeout":
		return strconv.Itoa(cfg.Timeout), true
	}
	return "", false
}

func configSet(d *Dispatcher, cfg *config.Config, key, val string) error {
	switch key {
	case "maxclients":
		n, err := strconv.Atoi(val)
		if err != nil {
			return cmderr.ErrNotInteger
		}
		cfg.MaxClients = n
		d.srv.Pool.UpdateLimit(int64(n))
	case "requirepass":
		cfg.RequirePass = val
	case "maxmemory-policy":
		cfg.MaxMemoryPolicy = config.EvictionPolicy(val)
	default:
		return cmderr.New("Unknown option or number of arguments for CONFIG SET - '%s'", key)
	}
	return nil
}

func hInfo(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	var b strings.Builder
	cfg := d.srv.Config()
	fmt.Fprintf(&b, "# Server\r\nredis_version:7.4.0\r\ntcp_port:%d\r\nuptime_in_seconds:%d\r\n",
		cfg.Port, int(time.Since(startTime).Seconds()))
	fmt.Fprintf(&b, "# Clients\r\nconnected_clients:%d\r\n", d.srv.Pool.Current())
	fmt.Fprintf(&b, "# Memory\r\nused_memory:%d\r\n", d.srv.Engine().TotalMemory())
	fmt.Fprintf(&b, "# Replication\r\nrole:%s\r\n", replicationRole(cfg))
	fmt.Fprintf(&b, "# Keyspace\r\n")
	for i, db := range d.srv.Engine().Databases() {
		if n := db.Len(); n > 0 {
			fmt.Fprintf(&b, "db%d:keys=%d,expires=0,avg_ttl=0\r\n", i, n)
		}
	}
	return resp.NewBulkStringFrom(b.String()), nil
}

func replicationRole(cfg *config.Config) string {
	if cfg.ReplicaOf != "" {
		return "slave"
	}
	return "master"
}
