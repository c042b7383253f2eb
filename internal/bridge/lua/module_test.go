package lua

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/inlay/internal/document"
	"github.com/dshills/inlay/internal/host"
	"github.com/dshills/inlay/internal/renderer/draw"
)

type stubEngine struct {
	calls []string
	err   error
}

func (s *stubEngine) UpdateContent(text string) (document.Result, error) {
	s.calls = append(s.calls, "content:"+text)
	return document.Result{Changed: true, FoldLines: []int{1, 9}}, s.err
}

func (s *stubEngine) UpdateMetadata(raw string) error {
	s.calls = append(s.calls, "metadata:"+raw)
	return s.err
}

func (s *stubEngine) SetFolds(raw string) (bool, error) {
	s.calls = append(s.calls, "folds:"+raw)
	return true, s.err
}

func (s *stubEngine) ClearAll() {
	s.calls = append(s.calls, "clear")
}

func (s *stubEngine) Draw() (draw.Report, error) {
	s.calls = append(s.calls, "draw")
	return draw.Report{Emitted: 3}, s.err
}

func newTestState(t *testing.T, e *stubEngine) *lua.LState {
	t.Helper()
	L := NewState(host.NewDispatcher(e, nil))
	t.Cleanup(L.Close)
	return L
}

func run(t *testing.T, L *lua.LState, code string) {
	t.Helper()
	if err := L.DoString(code); err != nil {
		t.Fatalf("script failed: %v", err)
	}
}

func TestUpdateContent(t *testing.T) {
	e := &stubEngine{}
	L := newTestState(t, e)

	run(t, L, `
		local res, err = inlay.update_content("# a\n")
		assert(err == nil, err)
		changed = res.changed
		folds = #res.folds
		second = res.folds[2]
	`)

	if L.GetGlobal("changed") != lua.LTrue {
		t.Error("expected changed to be true")
	}
	if got := L.GetGlobal("folds"); got != lua.LNumber(2) {
		t.Errorf("expected 2 folds, got %v", got)
	}
	if got := L.GetGlobal("second"); got != lua.LNumber(9) {
		t.Errorf("expected second fold at 9, got %v", got)
	}
}

func TestTableArguments(t *testing.T) {
	e := &stubEngine{}
	L := newTestState(t, e)

	run(t, L, `
		assert(inlay.set_folds({{1, 5}, {9, -1}}))
		assert(inlay.set_folds({}))
		assert(inlay.update_metadata('{"start":1,"end":4,"height":4}'))
		assert(inlay.update_metadata({start = 2}))
		assert(inlay.clear_all())
	`)

	want := []string{
		"folds:[[1,5],[9,-1]]",
		"folds:[]",
		`metadata:{"start":1,"end":4,"height":4}`,
		`metadata:{"start":2}`,
		"clear",
	}
	if diff := cmp.Diff(want, e.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestDraw(t *testing.T) {
	L := newTestState(t, &stubEngine{})

	run(t, L, `
		local rep = inlay.draw()
		emitted = rep.emitted
		pending = rep.pending
		errors = #rep.errors
	`)

	if got := L.GetGlobal("emitted"); got != lua.LNumber(3) {
		t.Errorf("expected 3 emitted, got %v", got)
	}
	if L.GetGlobal("pending") != lua.LFalse {
		t.Error("expected pending to be false")
	}
	if got := L.GetGlobal("errors"); got != lua.LNumber(0) {
		t.Errorf("expected no errors, got %v", got)
	}
}

func TestErrorsAreReturned(t *testing.T) {
	L := newTestState(t, &stubEngine{err: errors.New("invalid metadata")})

	run(t, L, `
		res, msg = inlay.update_metadata("{}")
	`)

	if L.GetGlobal("res") != lua.LNil {
		t.Error("expected nil result on error")
	}
	if got := L.GetGlobal("msg").String(); got != "invalid metadata" {
		t.Errorf("expected error message, got %q", got)
	}
}

func TestSandbox(t *testing.T) {
	L := newTestState(t, &stubEngine{})

	run(t, L, `
		no_io = io == nil
		no_os = os == nil
		no_dofile = dofile == nil and loadfile == nil and load == nil
		same = require("inlay") == inlay
		has_math = require("math").floor(1.5) == 1
	`)
	for _, name := range []string{"no_io", "no_os", "no_dofile", "same", "has_math"} {
		if L.GetGlobal(name) != lua.LTrue {
			t.Errorf("expected %s to be true", name)
		}
	}

	if err := L.DoString(`require("os")`); err == nil || !strings.Contains(err.Error(), "not available") {
		t.Errorf("expected require of os to fail, got %v", err)
	}
}

func TestRunScript(t *testing.T) {
	e := &stubEngine{}
	d := host.NewDispatcher(e, nil)

	path := filepath.Join(t.TempDir(), "render.lua")
	script := `
		local inlay = require("inlay")
		assert(inlay.update_content("x"))
		assert(inlay.draw())
	`
	if err := os.WriteFile(path, []byte(script), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := RunScript(path, d); err != nil {
		t.Fatalf("RunScript failed: %v", err)
	}
	if diff := cmp.Diff([]string{"content:x", "draw"}, e.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}

	if err := RunString(`error("boom")`, d); !errors.Is(err, ErrScript) {
		t.Errorf("expected ErrScript, got %v", err)
	}
	if err := RunScript(filepath.Join(t.TempDir(), "missing.lua"), d); !errors.Is(err, ErrScript) {
		t.Errorf("expected ErrScript for missing file, got %v", err)
	}
}
