package command

import (
	"strconv"
	"strings"

	"github.com/edirooss/vermilion/internal/cmderr"
	"github.com/edirooss/vermilion/internal/resp"
	"github.com/edirooss/vermilion/internal/server"
)

func hEval(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	numKeys, err := strconv.Atoi(args[2])
	if err != nil || numKeys < 0 {
		return nil, cmderr.New("value is not an integer or out of range")
	}
	rest := args[3:]
	if numKeys > len(rest) {
		return nil, cmderr.New("Number of keys can't be greater than number of args")
	}
	keys, argv := rest[:numKeys], rest[numKeys:]

	d.script.Load(args[1])
	return d.script.Eval(args[1], keys, argv, scriptCallback(d, conn))
}

func hEvalSha(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	sha := strings.ToLower(args[1])
	body, ok := d.script.BySha(sha)
	if !ok {
		return nil, cmderr.ErrNoScript
	}
	numKeys, err := strconv.Atoi(args[2])
	if err != nil || numKeys < 0 {
		return nil, cmderr.New("value is not an integer or out of range")
	}
	rest := args[3:]
	if numKeys > len(rest) {
		return nil, cmderr.New("Number of keys can't be greater than number of args")
	}
	keys, argv := rest[:numKeys], rest[numKeys:]
	return d.script.Eval(body, keys, argv, scriptCallback(d, conn))
}

func hScript(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	switch upperByte(args[1]) {
	case "LOAD":
		if len(args) != 3 {
			return nil, cmderr.ArityError("script|load")
		}
		return resp.NewBulkStringFrom(d.script.Load(args[2])), nil
	case "EXISTS":
		elems := make([]*resp.Frame, len(args)-2)
		for i, sha := range args[2:] {
			ok := d.script.Exists(strings.ToLower(sha))
			n := int64(0)
			if ok {
				n = 1
			}
			elems[i] = resp.NewInteger(n)
		}
		return resp.NewArray(elems...), nil
	case "FLUSH":
		d.script.Flush()
		return resp.NewSimpleString("OK"), nil
	case "KILL":
		// No script runs long enough to need interruption in this
		// single-threaded host: there is never a running script to kill.
		return nil, cmderr.New("NOTBUSY No scripts in execution right now.")
	default:
		return nil, cmderr.New("Unknown SCRIPT subcommand or wrong number of arguments")
	}
}

// scriptCallback lets a script's call/pcall re-enter the command
// pipeline on the issuing connection. The dispatch lock is already
// held by EVAL/EVALSHA's own invocation, so this calls handlers
// directly rather than through Dispatch/invoke.
func scriptCallback(d *Dispatcher, conn *server.Conn) func(args []string) (*resp.Frame, error) {
	return func(args []string) (*resp.Frame, error) {
		if len(args) == 0 {
			return nil, cmderr.New("unknown command ''")
		}
		name := strings.ToUpper(args[0])
		spec, ok := d.table[name]
		if !ok {
			return nil, cmderr.UnknownCommand(args[0], args)
		}
		if !arityOK(spec, len(args)) {
			return nil, cmderr.ArityError(strings.ToLower(name))
		}
		handler := spec.Handler
		if spec.Blocking && spec.ExecHandler != nil {
			handler = spec.ExecHandler
		}
		frame, err := handler(d, conn, args)
		if err == nil && spec.Write {
			d.srv.Propagate(args)
		}
		return frame, err
	}
}
