package node

import (
	"sync"
	"sync/atomic"

	"github.com/dshills/inlay/internal/content"
)

// Range is an inclusive line range.
type Range struct {
	Start int
	End   int
}

// Height returns the number of lines covered.
func (r Range) Height() int {
	return r.End - r.Start + 1
}

// Overlaps reports whether r intersects [start, end].
func (r Range) Overlaps(start, end int) bool {
	return r.Start <= end && r.End >= start
}

// Source is what a node renders.
type Source struct {
	Kind content.Kind
	Body string
}

// Artifact is the intermediate produced by Stage A.
type Artifact interface {
	// Path returns where the artifact is persisted.
	Path() string
}

// Pipeline performs the blocking work of both stages.
// Implementations must be safe for concurrent use across nodes.
type Pipeline interface {
	// Generate produces the artifact for src (Stage A).
	Generate(src Source) (Artifact, error)

	// Render encodes a at the given geometry (Stage B).
	Render(a Artifact, key GeometryKey) ([]byte, error)
}

// Persister is implemented by pipelines that can find an artifact left by an
// earlier process without doing any generation.
type Persister interface {
	Persisted(src Source) (Artifact, bool)
}

// cell is the state shared between a Node and its background stages.
type cell struct {
	mu     sync.Mutex
	state  State
	cache  *Cache
	spawns atomic.Int64
}

func newCell() *cell {
	return &cell{cache: NewCache()}
}

// Node is a renderable unit bound to one content identity.
type Node struct {
	ID     string
	Source Source

	// Range is the position of the node's first occurrence in the document.
	Range Range

	pipeline Pipeline
	cell     *cell
}

// New creates a node in the Empty phase, or in Ready when the pipeline
// already has a persisted artifact for src.
func New(id string, src Source, r Range, p Pipeline) *Node {
	n := &Node{
		ID:       id,
		Source:   src,
		Range:    r,
		pipeline: p,
		cell:     newCell(),
	}
	n.adoptPersisted()
	return n
}

func (n *Node) adoptPersisted() {
	ps, ok := n.pipeline.(Persister)
	if !ok {
		return
	}
	if a, ok := ps.Persisted(n.Source); ok {
		n.cell.state = ready(a)
	}
}

// Start begins artifact generation if nothing has been generated yet.
func (n *Node) Start() {
	c := n.cell
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Phase == PhaseEmpty {
		n.generate(c)
	}
}

// Blob returns the encoded rendering for key.
//
// ready is false while the blob is being produced in the background; the
// caller should ask again later. A stage failure is returned exactly once,
// after which the node is Empty and the next call retries generation.
func (n *Node) Blob(key GeometryKey) (blob []byte, ready bool, err error) {
	c := n.cell
	if b, ok := c.cache.Get(key); ok {
		return b, true, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state.Phase {
	case PhaseEmpty:
		n.generate(c)
	case PhaseFailed:
		err = c.state.Err
		c.state = State{}
		return nil, false, err
	case PhaseReady:
		// A render that finished after the lookup above has restored Ready.
		if b, ok := c.cache.Get(key); ok {
			return b, true, nil
		}
		n.render(c, c.state.Artifact, key)
	}
	return nil, false, nil
}

// generate runs Stage A. Must be called with c.mu held.
func (n *Node) generate(c *cell) {
	c.state = State{Phase: PhaseRunning}
	c.spawns.Add(1)

	p, src := n.pipeline, n.Source
	go func() {
		a, err := p.Generate(src)

		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			c.state = failed(err)
			return
		}
		c.state = ready(a)
	}()
}

// render runs Stage B. Must be called with c.mu held.
func (n *Node) render(c *cell, a Artifact, key GeometryKey) {
	c.state = State{Phase: PhaseRunning}
	c.spawns.Add(1)

	p := n.pipeline
	go func() {
		blob, err := p.Render(a, key)

		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			c.state = failed(err)
			return
		}
		c.cache.Put(key, blob)
		c.state = ready(a)
	}()
}

// State returns a snapshot of the generation state.
func (n *Node) State() State {
	c := n.cell
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Spawns returns how many background stages this node has started since
// creation or the last Reset.
func (n *Node) Spawns() int64 {
	return n.cell.spawns.Load()
}

// CachedGeometries returns the number of cached blobs.
func (n *Node) CachedGeometries() int {
	return n.cell.cache.Len()
}

// Reset discards the generation state and cache, as if the node had been
// destroyed and created again. A stage still running finishes into the
// abandoned cell.
func (n *Node) Reset() {
	n.cell = newCell()
	n.adoptPersisted()
}
