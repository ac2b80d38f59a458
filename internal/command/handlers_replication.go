package command

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/edirooss/vermilion/internal/persistence/snapshot"
	"github.com/edirooss/vermilion/internal/resp"
	"github.com/edirooss/vermilion/internal/server"
)

func hReplicaOf(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	cfg := d.srv.Config()
	if strings.EqualFold(args[1], "no") && strings.EqualFold(args[2], "one") {
		cfg.ReplicaOf = ""
		return resp.NewSimpleString("OK"), nil
	}
	cfg.ReplicaOf = args[1] + " " + args[2]
	return resp.NewSimpleString("OK"), nil
}

func hRole(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	cfg := d.srv.Config()
	if cfg.ReplicaOf == "" {
		return resp.NewArray(
			resp.NewBulkStringFrom("master"),
			resp.NewInteger(0),
			resp.NewArray(),
		), nil
	}
	parts := strings.SplitN(cfg.ReplicaOf, " ", 2)
	host := parts[0]
	port := ""
	if len(parts) > 1 {
		port = parts[1]
	}
	return resp.NewArray(
		resp.NewBulkStringFrom("slave"),
		resp.NewBulkStringFrom(host),
		resp.NewBulkStringFrom(port),
		resp.NewBulkStringFrom("connect"),
		resp.NewInteger(0),
	), nil
}

func hReplConf(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	return resp.NewSimpleString("OK"), nil
}

// hPSync implements the master side of the spec §4.5 handshake: it
// replies with the full-resync header and an inline RDB image, then
// hands the connection off to pumpReplica via conn.BecomeReplica.
// Unlike every other handler, it writes its own reply frames directly
// (the RDB bulk isn't a RESP value) and returns (nil, nil) so Dispatch
// doesn't also try to write a reply.
func hPSync(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	master := d.srv.Master
	offset := master.Offset()

	header := resp.NewSimpleString("FULLRESYNC " + master.ReplID + " " + strconv.FormatInt(offset, 10))
	if err := conn.Writer.WriteFrame(header); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := snapshot.EncodeTo(&buf, d.srv.Engine()); err != nil {
		return nil, err
	}
	if err := conn.Writer.WriteRDBBulk(buf.Bytes()); err != nil {
		return nil, err
	}
	if err := conn.Writer.Flush(); err != nil {
		return nil, err
	}

	replica := master.Attach(conn.ID)
	conn.BecomeReplica(replica.Outbox)
	return nil, nil
}
