// Package draw walks the document index and emits the images a viewport
// change makes necessary.
package draw

import (
	"fmt"

	"github.com/dshills/inlay/internal/document"
	"github.com/dshills/inlay/internal/node"
	"github.com/dshills/inlay/internal/renderer/backend"
	"github.com/dshills/inlay/internal/renderer/viewport"
)

// Nodes resolves node identities. *document.Registry implements it.
type Nodes interface {
	Node(id string) *node.Node
}

// Report summarizes one draw pass.
type Report struct {
	// Pending is true when some blob was not ready yet and the caller
	// should draw again later.
	Pending bool

	// Emitted counts the images written to the backend.
	Emitted int

	// Errors holds per-node failures. A failure never stops the pass.
	Errors []error
}

// NodeError is a failure tied to one node.
type NodeError struct {
	ID   string
	Line int
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s at line %d: %v", e.ID, e.Line, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// Drawer emits node images to a backend.
type Drawer struct {
	out backend.Backend
}

// New creates a drawer writing to out.
func New(out backend.Backend) *Drawer {
	return &Drawer{out: out}
}

// Draw runs one pass over ix for the viewport m. charHeight is the pixel
// height of one text row.
//
// Entries outside the visible line range are hidden without further work.
// The bodies of folded folds are skipped entirely: they add nothing to the
// running screen offset and their nodes are never classified.
func (d *Drawer) Draw(ix document.Index, nodes Nodes, m viewport.Metadata, charHeight int) Report {
	var rep Report

	lastLine := m.Start
	topOffset := 0
	skipThrough := 0

	for _, e := range ix {
		if !e.Range().Overlaps(m.Start, m.End) {
			if e.Node != nil {
				e.Node.View = viewport.View{Kind: viewport.Hidden}
			}
			continue
		}
		if e.Line <= skipThrough {
			continue
		}

		if f := e.Fold; f != nil {
			topOffset += f.Line - lastLine
			lastLine = f.Line
			if f.Folded {
				skipThrough = f.End
				lastLine = f.End
			}
			continue
		}

		ref := e.Node
		topOffset += ref.Range.Start - lastLine
		lastLine = ref.Range.Start

		view := viewport.Classify(ref.Range, m, topOffset)
		key, needed := Transition(ref.View, view, ref.Range.Height(), charHeight)
		if !needed {
			ref.View = view
			continue
		}

		n := nodes.Node(ref.ID)
		if n == nil {
			continue
		}

		blob, ready, err := n.Blob(key)
		switch {
		case err != nil:
			// Recorded as drawn so the failure is not retried until the
			// view changes or the document is rescanned.
			ref.View = view
			rep.Errors = append(rep.Errors, &NodeError{ID: ref.ID, Line: ref.Range.Start, Err: err})
		case !ready:
			rep.Pending = true
		default:
			if err := d.out.Emit(m.Row+view.Row, m.Col, blob); err != nil {
				rep.Errors = append(rep.Errors, &NodeError{ID: ref.ID, Line: ref.Range.Start, Err: err})
				continue
			}
			ref.View = view
			rep.Emitted++
		}
	}

	return rep
}
