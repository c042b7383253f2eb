// Package lua exposes the engine operations to Lua host scripts.
//
// Scripts run in a restricted state: only the base, table, string and math
// libraries are opened, file loading functions are removed and require
// resolves nothing but those libraries and the inlay module.
package lua

import (
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/inlay/internal/host"
)

// ModuleName is the global and require name of the engine module.
const ModuleName = "inlay"

// ErrScript wraps failures raised while running a script.
var ErrScript = errors.New("lua script failed")

// NewState creates a sandboxed Lua state with the inlay module installed.
func NewState(d *host.Dispatcher) *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(L)
	Open(L, d)
	installSafeRequire(L)
	return L
}

// openSafeLibraries opens only the libraries that cannot reach the host
// system. io, os, debug and package stay closed.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}
}

// installSafeRequire provides a require that only returns already opened
// globals.
func installSafeRequire(L *lua.LState) {
	allowed := map[string]bool{
		"string":   true,
		"table":    true,
		"math":     true,
		ModuleName: true,
	}

	L.SetGlobal("require", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		if !allowed[name] {
			L.RaiseError("module %q is not available", name)
			return 0
		}
		L.Push(L.GetGlobal(name))
		return 1
	}))
}

// RunScript executes the script at path against d in a fresh sandboxed
// state.
func RunScript(path string, d *host.Dispatcher) error {
	L := NewState(d)
	defer L.Close()

	return doWithRecovery(func() error {
		return L.DoFile(path)
	})
}

// RunString executes code against d in a fresh sandboxed state.
func RunString(code string, d *host.Dispatcher) error {
	L := NewState(d)
	defer L.Close()

	return doWithRecovery(func() error {
		return L.DoString(code)
	})
}

func doWithRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrScript, r)
		}
	}()
	if err := fn(); err != nil {
		return fmt.Errorf("%w: %v", ErrScript, err)
	}
	return nil
}
