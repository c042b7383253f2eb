package lua

import (
	"fmt"

	"github.com/tidwall/gjson"
	lua "github.com/yuin/gopher-lua"
)

// fromJSON decodes raw into Lua values. Arrays become sequences starting
// at 1.
func fromJSON(L *lua.LState, raw string) lua.LValue {
	return fromResult(L, gjson.Parse(raw))
}

func fromResult(L *lua.LState, r gjson.Result) lua.LValue {
	switch r.Type {
	case gjson.True, gjson.False:
		return lua.LBool(r.Bool())
	case gjson.Number:
		return lua.LNumber(r.Num)
	case gjson.String:
		return lua.LString(r.Str)
	case gjson.JSON:
		t := L.NewTable()
		if r.IsArray() {
			for i, item := range r.Array() {
				t.RawSetInt(i+1, fromResult(L, item))
			}
			return t
		}
		r.ForEach(func(k, v gjson.Result) bool {
			t.RawSetString(k.Str, fromResult(L, v))
			return true
		})
		return t
	default:
		return lua.LNil
	}
}

// toGo converts a Lua value into values encoding/json can marshal.
// Contiguous tables starting at 1 and empty tables become slices, other
// tables maps.
func toGo(lv lua.LValue) any {
	return toGoVisited(lv, make(map[*lua.LTable]bool))
}

func toGoVisited(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		defer delete(visited, v)
		return tableToGo(v, visited)
	default:
		return nil
	}
}

func tableToGo(t *lua.LTable, visited map[*lua.LTable]bool) any {
	n, count := t.MaxN(), 0
	t.ForEach(func(_, _ lua.LValue) { count++ })

	if count == 0 {
		return []any{}
	}
	if n == count {
		arr := make([]any, n)
		for i := 1; i <= n; i++ {
			arr[i-1] = toGoVisited(t.RawGetInt(i), visited)
		}
		return arr
	}

	m := make(map[string]any, count)
	t.ForEach(func(k, v lua.LValue) {
		var key string
		switch kv := k.(type) {
		case lua.LString:
			key = string(kv)
		case lua.LNumber:
			key = fmt.Sprintf("%v", float64(kv))
		default:
			key = k.String()
		}
		m[key] = toGoVisited(v, visited)
	})
	return m
}
