package command

import (
	"github.com/edirooss/vermilion/internal/cmderr"
	"github.com/edirooss/vermilion/internal/resp"
	"github.com/edirooss/vermilion/internal/server"
)

func (d *Dispatcher) cmdSubscribe(conn *server.Conn, args []string) error {
	for _, channel := range args[1:] {
		d.srv.PubSub.Subscribe(conn.ID, channel, conn)
		conn.ChannelSubs[channel] = struct{}{}
		count := len(conn.ChannelSubs) + len(conn.PatternSubs)
		if err := d.writeFrame(conn, resp.NewArray(
			resp.NewBulkStringFrom("subscribe"),
			resp.NewBulkStringFrom(channel),
			resp.NewInteger(int64(count)),
		)); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) cmdUnsubscribe(conn *server.Conn, args []string) error {
	channels := args[1:]
	if len(channels) == 0 {
		for ch := range conn.ChannelSubs {
			channels = append(channels, ch)
		}
	}
	if len(channels) == 0 {
		count := len(conn.ChannelSubs) + len(conn.PatternSubs)
		return d.writeFrame(conn, resp.NewArray(
			resp.NewBulkStringFrom("unsubscribe"),
			resp.NilBulk(),
			resp.NewInteger(int64(count)),
		))
	}
	for _, channel := range channels {
		d.srv.PubSub.Unsubscribe(conn.ID, channel)
		delete(conn.ChannelSubs, channel)
		count := len(conn.ChannelSubs) + len(conn.PatternSubs)
		if err := d.writeFrame(conn, resp.NewArray(
			resp.NewBulkStringFrom("unsubscribe"),
			resp.NewBulkStringFrom(channel),
			resp.NewInteger(int64(count)),
		)); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) cmdPSubscribe(conn *server.Conn, args []string) error {
	for _, pattern := range args[1:] {
		d.srv.PubSub.PSubscribe(conn.ID, pattern, conn)
		conn.PatternSubs[pattern] = struct{}{}
		count := len(conn.ChannelSubs) + len(conn.PatternSubs)
		if err := d.writeFrame(conn, resp.NewArray(
			resp.NewBulkStringFrom("psubscribe"),
			resp.NewBulkStringFrom(pattern),
			resp.NewInteger(int64(count)),
		)); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) cmdPUnsubscribe(conn *server.Conn, args []string) error {
	patterns := args[1:]
	if len(patterns) == 0 {
		for p := range conn.PatternSubs {
			patterns = append(patterns, p)
		}
	}
	for _, pattern := range patterns {
		d.srv.PubSub.PUnsubscribe(conn.ID, pattern)
		delete(conn.PatternSubs, pattern)
		count := len(conn.ChannelSubs) + len(conn.PatternSubs)
		if err := d.writeFrame(conn, resp.NewArray(
			resp.NewBulkStringFrom("punsubscribe"),
			resp.NewBulkStringFrom(pattern),
			resp.NewInteger(int64(count)),
		)); err != nil {
			return err
		}
	}
	return nil
}

func hPublish(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	n := d.srv.PubSub.Publish(args[1], []byte(args[2]))
	return resp.NewInteger(int64(n)), nil
}

func hPubSub(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	if len(args) < 2 {
		return nil, cmderr.ArityError("pubsub")
	}
	switch upperByte(args[1]) {
	case "CHANNELS":
		pattern := ""
		if len(args) >= 3 {
			pattern = args[2]
		}
		channels := d.srv.PubSub.ActiveChannels(pattern)
		elems := make([][]byte, len(channels))
		for i, c := range channels {
			elems[i] = []byte(c)
		}
		return resp.NewBulkStringArray(elems...), nil
	case "NUMSUB":
		elems := make([]*resp.Frame, 0, len(args[2:])*2)
		for _, ch := range args[2:] {
			elems = append(elems, resp.NewBulkStringFrom(ch), resp.NewInteger(int64(d.srv.PubSub.NumSubscribers(ch))))
		}
		return resp.NewArray(elems...), nil
	case "NUMPAT":
		return resp.NewInteger(int64(d.srv.PubSub.NumPatterns())), nil
	default:
		return nil, cmderr.New("Unknown PUBSUB subcommand or wrong number of arguments")
	}
}
