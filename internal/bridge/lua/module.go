package lua

import (
	"encoding/json"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/inlay/internal/host"
)

// Open installs the inlay module in L as a global table.
//
// Every function returns the decoded result table, or nil and an error
// message:
//
//	local res, err = inlay.update_content(text)
//	local ok, err = inlay.set_folds({{1, 5}, {9, -1}})
//	local rep = inlay.draw()
//
// Metadata and fold arguments may be given as JSON strings or tables.
func Open(L *lua.LState, d *host.Dispatcher) *lua.LTable {
	mod := L.NewTable()
	L.SetFuncs(mod, map[string]lua.LGFunction{
		"update_content":  operation(d, host.OpUpdateContent, stringArg),
		"update_metadata": operation(d, host.OpUpdateMetadata, jsonArg),
		"set_folds":       operation(d, host.OpSetFolds, jsonArg),
		"clear_all":       operation(d, host.OpClearAll, noArg),
		"draw":            operation(d, host.OpDraw, noArg),
	})
	L.SetGlobal(ModuleName, mod)
	return mod
}

// argFunc reads the operation argument from the Lua stack.
type argFunc func(L *lua.LState) (string, error)

func operation(d *host.Dispatcher, op string, arg argFunc) lua.LGFunction {
	return func(L *lua.LState) int {
		a, err := arg(L)
		if err != nil {
			L.Push(lua.LNil)
			L.Push(lua.LString(err.Error()))
			return 2
		}

		raw, err := d.Invoke(op, a)
		if err != nil {
			L.Push(lua.LNil)
			L.Push(lua.LString(err.Error()))
			return 2
		}

		result := fromJSON(L, raw)
		if result == lua.LNil {
			result = L.NewTable()
		}
		L.Push(result)
		L.Push(lua.LNil)
		return 2
	}
}

func stringArg(L *lua.LState) (string, error) {
	return L.CheckString(1), nil
}

func noArg(*lua.LState) (string, error) {
	return "", nil
}

// jsonArg accepts a JSON string or a table encoded to JSON.
func jsonArg(L *lua.LState) (string, error) {
	switch v := L.Get(1).(type) {
	case lua.LString:
		return string(v), nil
	case *lua.LTable:
		data, err := json.Marshal(toGo(v))
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		L.ArgError(1, "string or table expected")
		return "", nil
	}
}
