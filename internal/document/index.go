// Package document owns the node set and the ordered index of folds and
// nodes built from each content scan.
package document

import (
	"github.com/dshills/inlay/internal/node"
	"github.com/dshills/inlay/internal/renderer/viewport"
)

// Fold is a collapsible region anchored at a section header.
type Fold struct {
	Line int

	// Folded is true when the body is collapsed; End is then the last line
	// of the body.
	Folded bool
	End    int
}

// Range returns the lines the fold occupies: the anchor alone when open,
// anchor through body end when folded.
func (f *Fold) Range() node.Range {
	if f.Folded {
		return node.Range{Start: f.Line, End: f.End}
	}
	return node.Range{Start: f.Line, End: f.Line}
}

// NodeRef is one occurrence of a node in the document. Identical content at
// two positions yields two refs sharing one node.
type NodeRef struct {
	ID    string
	Range node.Range

	// View is the classification the drawer last acted on.
	View viewport.View
}

// Entry is an index element: exactly one of Fold and Node is set.
type Entry struct {
	Line int
	Fold *Fold
	Node *NodeRef
}

// Range returns the lines covered by the entry.
func (e Entry) Range() node.Range {
	if e.Fold != nil {
		return e.Fold.Range()
	}
	return e.Node.Range
}

// Index is the line-ordered sequence of folds and node refs. It is rebuilt
// from scratch on every content update.
type Index []Entry

// Folds returns the folds in line order.
func (ix Index) Folds() []*Fold {
	var folds []*Fold
	for _, e := range ix {
		if e.Fold != nil {
			folds = append(folds, e.Fold)
		}
	}
	return folds
}

// Refs returns the node refs in line order.
func (ix Index) Refs() []*NodeRef {
	var refs []*NodeRef
	for _, e := range ix {
		if e.Node != nil {
			refs = append(refs, e.Node)
		}
	}
	return refs
}

// HideAll forces every ref to Hidden.
func (ix Index) HideAll() {
	for _, ref := range ix.Refs() {
		ref.View = viewport.View{Kind: viewport.Hidden}
	}
}
