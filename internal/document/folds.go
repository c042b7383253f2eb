package document

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/dshills/inlay/internal/renderer/viewport"
)

var (
	// ErrFoldMismatch indicates a fold command list that does not line up
	// with the folds of the current index.
	ErrFoldMismatch = errors.New("fold commands do not match document folds")

	// ErrInvalidFolds indicates a fold payload that cannot be decoded.
	ErrInvalidFolds = errors.New("invalid fold payload")
)

// FoldCommand sets the state of the fold anchored at Line. A negative End
// opens the fold; otherwise the body through End is collapsed.
type FoldCommand struct {
	Line int
	End  int
}

// Open reports whether the command opens its fold.
func (c FoldCommand) Open() bool {
	return c.End < 0
}

// ParseFolds decodes a JSON array of [line, end] pairs. Objects of the form
// {"line": n, "end": m} are accepted as well.
func ParseFolds(raw string) ([]FoldCommand, error) {
	if !gjson.Valid(raw) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidFolds)
	}
	root := gjson.Parse(raw)
	if !root.IsArray() {
		return nil, fmt.Errorf("%w: expected an array", ErrInvalidFolds)
	}

	var cmds []FoldCommand
	var err error
	root.ForEach(func(_, item gjson.Result) bool {
		var line, end gjson.Result
		switch {
		case item.IsArray():
			pair := item.Array()
			if len(pair) != 2 {
				err = fmt.Errorf("%w: fold %d has %d elements", ErrInvalidFolds, len(cmds), len(pair))
				return false
			}
			line, end = pair[0], pair[1]
		case item.IsObject():
			line, end = item.Get("line"), item.Get("end")
		default:
			err = fmt.Errorf("%w: fold %d is %s", ErrInvalidFolds, len(cmds), item.Type)
			return false
		}
		if line.Type != gjson.Number || end.Type != gjson.Number {
			err = fmt.Errorf("%w: fold %d has non-numeric lines", ErrInvalidFolds, len(cmds))
			return false
		}
		cmds = append(cmds, FoldCommand{Line: int(line.Int()), End: int(end.Int())})
		return true
	})
	if err != nil {
		return nil, err
	}
	return cmds, nil
}

// ApplyFolds replaces the fold states of the index with cmds, which must
// list every fold in line order. Nothing is modified when validation fails.
//
// Refs starting inside a body that becomes folded are forced to Hidden so a
// later unfold re-emits them. It returns whether any fold changed.
func (r *Registry) ApplyFolds(cmds []FoldCommand) (bool, error) {
	folds := r.index.Folds()
	if len(cmds) != len(folds) {
		return false, fmt.Errorf("%w: got %d commands for %d folds", ErrFoldMismatch, len(cmds), len(folds))
	}
	for i, f := range folds {
		c := cmds[i]
		if c.Line != f.Line {
			return false, fmt.Errorf("%w: command %d anchors line %d, fold is at line %d", ErrFoldMismatch, i, c.Line, f.Line)
		}
		if !c.Open() && c.End < c.Line {
			return false, fmt.Errorf("%w: command %d ends at %d before its anchor %d", ErrFoldMismatch, i, c.End, c.Line)
		}
	}

	changed := false
	for i, f := range folds {
		c := cmds[i]
		if c.Open() {
			if f.Folded {
				f.Folded, f.End = false, 0
				changed = true
			}
			continue
		}

		grew := !f.Folded || c.End > f.End
		if f.Folded && c.End == f.End {
			continue
		}
		f.Folded, f.End = true, c.End
		changed = true
		if grew {
			r.hideWithin(f.Line, f.End)
		}
	}
	return changed, nil
}

// hideWithin forces refs starting in (anchor, end] to Hidden.
func (r *Registry) hideWithin(anchor, end int) {
	for _, ref := range r.index.Refs() {
		if ref.Range.Start > anchor && ref.Range.Start <= end {
			ref.View = viewport.View{Kind: viewport.Hidden}
		}
	}
}
