package command

import (
	"errors"

	"github.com/edirooss/vermilion/internal/resp"
	"github.com/edirooss/vermilion/internal/server"
)

// errQuit signals handleConn to close the connection after the OK
// reply for QUIT has been flushed.
var errQuit = errors.New("client sent QUIT")

func hQuit(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	return resp.NewSimpleString("OK"), nil
}

// hReset implements RESET: it clears transaction state, watches, and
// subscriptions on the current connection without closing it.
func hReset(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	conn.TxState = server.TxNormal
	conn.Queued = nil
	conn.Watches = nil
	conn.ClearWatchBaselines()
	for ch := range conn.ChannelSubs {
		d.srv.PubSub.Unsubscribe(conn.ID, ch)
	}
	for p := range conn.PatternSubs {
		d.srv.PubSub.PUnsubscribe(conn.ID, p)
	}
	conn.ChannelSubs = make(map[string]struct{})
	conn.PatternSubs = make(map[string]struct{})
	conn.Monitoring = false
	conn.DBIndex = 0
	return resp.NewSimpleString("RESET"), nil
}
