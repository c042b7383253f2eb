package document

import (
	"github.com/dshills/inlay/internal/content"
	"github.com/dshills/inlay/internal/node"
	"github.com/dshills/inlay/internal/renderer/viewport"
)

// Result summarizes a reconciliation.
type Result struct {
	// Changed is true when a node was added or removed or moved.
	Changed bool

	// FoldLines are the anchor lines of the new index's folds.
	FoldLines []int
}

// refKey identifies a ref across scans.
type refKey struct {
	id string
	r  node.Range
}

// Reconcile turns a scan into a node set and index.
//
// prev is consumed: nodes claimed by the scan are moved into the returned
// map and the rest are dropped. Fresh nodes start generating immediately.
// Refs whose identity and range are unchanged keep their previous view,
// unless their node has no output to show: a node that failed is back in
// Empty and its refs are hidden so the next draw tries it again.
func Reconcile(entries []content.Entry, prev map[string]*node.Node, prevIndex Index, p node.Pipeline) (map[string]*node.Node, Index, Result) {
	views := make(map[refKey]viewport.View, len(prevIndex))
	for _, ref := range prevIndex.Refs() {
		views[refKey{ref.ID, ref.Range}] = ref.View
	}

	nodes := make(map[string]*node.Node, len(prev))
	index := make(Index, 0, len(entries))
	var res Result

	for _, e := range entries {
		if e.Header {
			index = append(index, Entry{Line: e.Line, Fold: &Fold{Line: e.Line}})
			res.FoldLines = append(res.FoldLines, e.Line)
			continue
		}

		region := e.Region
		id := region.ID()
		r := node.Range{Start: region.Line, End: region.End()}

		if _, claimed := nodes[id]; !claimed {
			if n, ok := prev[id]; ok {
				delete(prev, id)
				if n.Range != r {
					res.Changed = true
				}
				n.Range = r
				nodes[id] = n
			} else {
				n := node.New(id, node.Source{Kind: region.Kind, Body: region.Body}, r, p)
				n.Start()
				nodes[id] = n
				res.Changed = true
			}
		}

		view, seen := views[refKey{id, r}]
		if !seen {
			res.Changed = true
		}
		if ph := nodes[id].State().Phase; ph == node.PhaseEmpty || ph == node.PhaseFailed {
			view = viewport.View{Kind: viewport.Hidden}
		}
		index = append(index, Entry{Line: e.Line, Node: &NodeRef{ID: id, Range: r, View: view}})
	}

	if len(prev) > 0 {
		res.Changed = true
	}
	for id := range prev {
		delete(prev, id)
	}

	return nodes, index, res
}

// Registry owns the current node set and index. It is used from a single
// control goroutine only.
type Registry struct {
	pipeline node.Pipeline
	nodes    map[string]*node.Node
	index    Index
}

// NewRegistry creates an empty registry whose nodes render through p.
func NewRegistry(p node.Pipeline) *Registry {
	return &Registry{
		pipeline: p,
		nodes:    make(map[string]*node.Node),
	}
}

// Update reconciles a fresh scan against the current state.
func (r *Registry) Update(entries []content.Entry) Result {
	prev := r.nodes
	r.nodes = nil

	nodes, index, res := Reconcile(entries, prev, r.index, r.pipeline)
	r.nodes = nodes
	r.index = index
	return res
}

// Node returns the node with the given identity, or nil.
func (r *Registry) Node(id string) *node.Node {
	return r.nodes[id]
}

// Len returns the number of live nodes.
func (r *Registry) Len() int {
	return len(r.nodes)
}

// Index returns the current ordered index.
func (r *Registry) Index() Index {
	return r.index
}

// HideAll forces every ref to Hidden so the next draw re-emits everything
// in view.
func (r *Registry) HideAll() {
	r.index.HideAll()
}

// FilePaths returns the referenced paths of all file nodes.
func (r *Registry) FilePaths() []string {
	var paths []string
	for _, n := range r.nodes {
		if n.Source.Kind == content.KindFile {
			paths = append(paths, n.Source.Body)
		}
	}
	return paths
}

// Invalidate resets the file node referencing path and hides its refs.
// It returns false when no node references path.
func (r *Registry) Invalidate(path string) bool {
	n, ok := r.nodes[content.Hash(path)]
	if !ok || n.Source.Kind != content.KindFile {
		return false
	}
	n.Reset()
	n.Start()

	for _, ref := range r.index.Refs() {
		if ref.ID == n.ID {
			ref.View = viewport.View{Kind: viewport.Hidden}
		}
	}
	return true
}
