package command

import (
	"strings"

	"github.com/edirooss/vermilion/internal/server"
)

// ApplyReplicated executes args directly against the engine, bypassing
// arity errors and reply writing: used to replay the AOF at startup
// and to apply commands streamed from a master. conn carries state
// (selected database) across calls the way a real connection would,
// so a replayed SELECT affects the commands that follow it.
func (d *Dispatcher) ApplyReplicated(conn *server.Conn, args []string) {
	if len(args) == 0 {
		return
	}
	name := strings.ToUpper(args[0])
	spec, ok := d.table[name]
	if !ok || !arityOK(spec, len(args)) {
		return
	}
	handler := spec.Handler
	if spec.Blocking && spec.ExecHandler != nil {
		handler = spec.ExecHandler
	}
	d.srv.WithDispatchLock(func() {
		_, _ = handler(d, conn, args)
	})
}

// NewApplyConn returns a connection-shaped handle for ApplyReplicated
// to thread state through a sequence of replayed/replicated commands.
func NewApplyConn() *server.Conn {
	return server.NewLoopbackConn(-1)
}
