// Package script implements the embedded scripting VM boundary from
// spec §4.6: EVAL/EVALSHA run a Lua chunk via gopher-lua, with the
// chunk calling back into the command pipeline through call/pcall.
package script

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/edirooss/vermilion/internal/cmderr"
	"github.com/edirooss/vermilion/internal/resp"
)

// CommandFunc dispatches one command (built from a script's call/
// pcall arguments) against the same pipeline an external client uses,
// bound to the connection and database that issued the EVAL.
type CommandFunc func(args []string) (*resp.Frame, error)

var forbidden = map[string]struct{}{
	"EVAL": {}, "EVALSHA": {}, "SCRIPT": {},
	"SELECT": {},
	"MULTI":  {}, "EXEC": {}, "DISCARD": {}, "WATCH": {}, "UNWATCH": {},
	"SUBSCRIBE": {}, "PSUBSCRIBE": {}, "UNSUBSCRIBE": {}, "PUNSUBSCRIBE": {},
	"BLPOP": {}, "BRPOP": {},
}

// Host caches loaded scripts by SHA-1 and runs EVAL/EVALSHA.
type Host struct {
	mu      sync.Mutex
	scripts map[string]string
}

func NewHost() *Host {
	return &Host{scripts: make(map[string]string)}
}

// Load stores script under its SHA-1 hex digest and returns it, for
// SCRIPT LOAD and as a side effect of every EVAL.
func (h *Host) Load(script string) string {
	sum := sha1.Sum([]byte(script))
	sha := hex.EncodeToString(sum[:])
	h.mu.Lock()
	h.scripts[sha] = script
	h.mu.Unlock()
	return sha
}

// Exists reports whether sha (lowercase hex) names a cached script.
func (h *Host) Exists(sha string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.scripts[sha]
	return ok
}

// Flush empties the script cache for SCRIPT FLUSH.
func (h *Host) Flush() {
	h.mu.Lock()
	h.scripts = make(map[string]string)
	h.mu.Unlock()
}

// BySha returns the cached script body for EVALSHA, or !ok if absent.
func (h *Host) BySha(sha string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.scripts[sha]
	return s, ok
}

// Eval compiles and runs script with KEYS/ARGV bound, reentering the
// command pipeline through call for every redis call/pcall the script
// makes, and converts the chunk's return value to a reply frame.
func (h *Host) Eval(script string, keys, argv []string, call CommandFunc) (reply *resp.Frame, err error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: false})
	defer L.Close()

	L.SetGlobal("KEYS", stringsToTable(L, keys))
	L.SetGlobal("ARGV", stringsToTable(L, argv))
	L.SetGlobal("call", L.NewFunction(callFn(call, false)))
	L.SetGlobal("pcall", L.NewFunction(callFn(call, true)))
	redis := L.NewTable()
	L.SetField(redis, "call", L.GetGlobal("call"))
	L.SetField(redis, "pcall", L.GetGlobal("pcall"))
	L.SetGlobal("redis", redis)

	defer func() {
		if r := recover(); r != nil {
			err = cmderr.New("%v", r)
		}
	}()

	if derr := L.DoString(script); derr != nil {
		return nil, cmderr.New("%s", derr.Error())
	}

	if L.GetTop() == 0 {
		return resp.NilBulk(), nil
	}
	ret := L.Get(-1)
	L.Pop(1)
	return luaToFrame(ret), nil
}

// callFn builds the Go function bound to the script's "call" or
// "pcall" global. pcall swallows command errors into a {err=...}
// table instead of aborting the chunk.
func callFn(call CommandFunc, protected bool) lua.LGFunction {
	return func(L *lua.LState) int {
		top := L.GetTop()
		if top == 0 {
			L.RaiseError("call requires at least one argument")
			return 0
		}
		args := make([]string, top)
		for i := 1; i <= top; i++ {
			args[i-1] = L.CheckAny(i).String()
		}

		name := args[0]
		if _, blocked := forbidden[upper(name)]; blocked {
			msg := fmt.Sprintf("This Redis command is not allowed from script: %s", name)
			if protected {
				L.Push(errTable(L, msg))
				return 1
			}
			L.RaiseError("%s", msg)
			return 0
		}

		frame, err := call(args)
		if err != nil {
			if protected {
				L.Push(errTable(L, err.Error()))
				return 1
			}
			L.RaiseError("%s", err.Error())
			return 0
		}
		if frame != nil && frame.Type == resp.Error {
			if protected {
				L.Push(errTable(L, frame.Str))
				return 1
			}
			L.RaiseError("%s", frame.Str)
			return 0
		}
		L.Push(frameToLua(L, frame))
		return 1
	}
}

func errTable(L *lua.LState, msg string) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("err", lua.LString(msg))
	return t
}

func stringsToTable(L *lua.LState, ss []string) *lua.LTable {
	t := L.NewTable()
	for i, s := range ss {
		t.RawSetInt(i+1, lua.LString(s))
	}
	return t
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}
