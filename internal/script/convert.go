package script

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/edirooss/vermilion/internal/resp"
)

// frameToLua implements the "Reply conversion" table from spec §4.6:
// the value call/pcall hand back to the script for a non-error reply.
func frameToLua(L *lua.LState, f *resp.Frame) lua.LValue {
	if f == nil {
		return lua.LFalse
	}
	switch f.Type {
	case resp.SimpleString, resp.BulkString:
		if f.IsNil {
			return lua.LFalse
		}
		if f.Type == resp.SimpleString {
			return lua.LString(f.Str)
		}
		return lua.LString(f.Bulk)
	case resp.Integer:
		return lua.LNumber(f.Int)
	case resp.Array:
		if f.IsNil {
			return lua.LFalse
		}
		t := L.NewTable()
		for i, e := range f.Elems {
			t.RawSetInt(i+1, frameToLua(L, e))
		}
		return t
	case resp.Error:
		return lua.LString(f.Str)
	default:
		return lua.LFalse
	}
}

// luaToFrame implements the "Result conversion" table from spec §4.6:
// the EVAL/EVALSHA chunk's overall return value, converted to the
// reply sent to the client.
func luaToFrame(lv lua.LValue) *resp.Frame {
	switch v := lv.(type) {
	case lua.LBool:
		if bool(v) {
			return resp.NewInteger(1)
		}
		return resp.NilBulk()
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return resp.NewInteger(int64(f))
		}
		return resp.NewBulkStringFrom(resp.FormatFloat(f))
	case lua.LString:
		return resp.NewBulkStringFrom(string(v))
	case *lua.LTable:
		if errVal := v.RawGetString("err"); errVal != lua.LNil {
			return resp.NewError("ERR " + errVal.String())
		}
		n := v.Len()
		if n == 0 {
			return resp.NilBulk()
		}
		elems := make([]*resp.Frame, n)
		for i := 1; i <= n; i++ {
			elems[i-1] = luaToFrame(v.RawGetInt(i))
		}
		return resp.NewArray(elems...)
	default:
		return resp.NilBulk()
	}
}
