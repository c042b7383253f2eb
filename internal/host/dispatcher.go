// Package host exposes the engine to the editor process.
//
// Every operation takes one string argument and answers with a JSON
// envelope:
//
//	{"ok":true,"result":...}
//	{"ok":false,"error":"..."}
//
// Operations never panic across the boundary; a panicking handler is
// reported as an error envelope.
package host

import (
	"errors"
	"fmt"
	"runtime"
	"sort"

	"github.com/tidwall/sjson"

	"github.com/dshills/inlay/internal/app"
	"github.com/dshills/inlay/internal/document"
	"github.com/dshills/inlay/internal/renderer/draw"
)

// Operation names.
const (
	OpUpdateContent  = "update_content"
	OpUpdateMetadata = "update_metadata"
	OpSetFolds       = "set_folds"
	OpClearAll       = "clear_all"
	OpDraw           = "draw"
)

// Host errors.
var (
	// ErrUnknownOperation indicates no handler exists for an operation name.
	ErrUnknownOperation = errors.New("host: unknown operation")

	// ErrPanic indicates a handler panicked.
	ErrPanic = errors.New("host: handler panic")
)

// Engine is the engine surface the dispatcher drives. *app.Engine
// implements it.
type Engine interface {
	UpdateContent(text string) (document.Result, error)
	UpdateMetadata(raw string) error
	SetFolds(raw string) (bool, error)
	ClearAll()
	Draw() (draw.Report, error)
}

// HandlerFunc runs one operation and returns its result as raw JSON.
type HandlerFunc func(arg string) (string, error)

// Dispatcher routes operation names to engine calls.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   *app.Logger
}

// NewDispatcher creates a dispatcher with the five engine operations
// registered.
func NewDispatcher(e Engine, logger *app.Logger) *Dispatcher {
	if logger == nil {
		logger = app.NullLogger
	}
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		logger:   logger.WithComponent("host"),
	}

	d.Register(OpUpdateContent, func(arg string) (string, error) {
		res, err := e.UpdateContent(arg)
		if err != nil {
			return "", err
		}
		return contentResult(res)
	})
	d.Register(OpUpdateMetadata, func(arg string) (string, error) {
		return "null", e.UpdateMetadata(arg)
	})
	d.Register(OpSetFolds, func(arg string) (string, error) {
		changed, err := e.SetFolds(arg)
		if err != nil {
			return "", err
		}
		return sjson.Set("{}", "changed", changed)
	})
	d.Register(OpClearAll, func(string) (string, error) {
		e.ClearAll()
		return "null", nil
	})
	d.Register(OpDraw, func(string) (string, error) {
		rep, err := e.Draw()
		if err != nil {
			return "", err
		}
		return drawResult(rep)
	})

	return d
}

// Register installs fn under op, replacing any existing handler.
func (d *Dispatcher) Register(op string, fn HandlerFunc) {
	d.handlers[op] = fn
}

// Operations returns the registered operation names in sorted order.
func (d *Dispatcher) Operations() []string {
	ops := make([]string, 0, len(d.handlers))
	for op := range d.handlers {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// Call runs op with arg and returns the response envelope.
func (d *Dispatcher) Call(op, arg string) string {
	result, err := d.Invoke(op, arg)
	if err != nil {
		return errorEnvelope(err)
	}
	return okEnvelope(result)
}

// Invoke runs op with arg and returns the raw JSON result.
func (d *Dispatcher) Invoke(op, arg string) (result string, err error) {
	fn, ok := d.handlers[op]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownOperation, op)
	}

	defer func() {
		if r := recover(); r != nil {
			stack := make([]byte, 4096)
			n := runtime.Stack(stack, false)
			d.logger.Error("%v", app.NewRecoveredPanicError(r, string(stack[:n])))
			result, err = "", fmt.Errorf("%w in %s: %v", ErrPanic, op, r)
		}
	}()

	result, err = fn(arg)
	if err != nil {
		d.logger.Debug("%s failed: %v", op, err)
	}
	return result, err
}

func contentResult(res document.Result) (string, error) {
	out, err := sjson.Set("{}", "changed", res.Changed)
	if err != nil {
		return "", err
	}
	folds := res.FoldLines
	if folds == nil {
		folds = []int{}
	}
	return sjson.Set(out, "folds", folds)
}

func drawResult(rep draw.Report) (string, error) {
	out := `{"errors":[]}`
	var err error
	if out, err = sjson.Set(out, "pending", rep.Pending); err != nil {
		return "", err
	}
	if out, err = sjson.Set(out, "emitted", rep.Emitted); err != nil {
		return "", err
	}

	for _, e := range rep.Errors {
		item := `{}`
		var ne *draw.NodeError
		if errors.As(e, &ne) {
			item, _ = sjson.Set(item, "id", ne.ID)
			item, _ = sjson.Set(item, "line", ne.Line)
		}
		item, _ = sjson.Set(item, "message", e.Error())
		if out, err = sjson.SetRaw(out, "errors.-1", item); err != nil {
			return "", err
		}
	}
	return out, nil
}

func okEnvelope(result string) string {
	if result == "" {
		result = "null"
	}
	out, err := sjson.SetRaw(`{"ok":true}`, "result", result)
	if err != nil {
		return errorEnvelope(err)
	}
	return out
}

func errorEnvelope(err error) string {
	out, serr := sjson.Set(`{"ok":false}`, "error", err.Error())
	if serr != nil {
		return `{"ok":false,"error":"internal error"}`
	}
	return out
}
