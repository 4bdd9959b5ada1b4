// Resource dependency graph for blast-radius computation.
//
// The graph records declared ownership relationships between opaque engine
// resource handles (a glyph atlas belongs to a font, a draw list belongs to
// a window). When a handle goes bad, FindDependents answers "what else is
// now suspect" so healing can be scoped to the affected subtree instead of
// the whole frame.
//
// Nodes live in an arena keyed by handle; parent and children are stored as
// handles, never as addresses, so a stale entry can dangle logically but
// can never dangle in memory.

package resilience

import (
	"sync"

	"github.com/kestrelui/renderguard/internal/engine"
)

// graphNode is one arena entry. children preserves attachment order so
// traversal results are deterministic.
type graphNode struct {
	parent   engine.Handle
	name     string
	children []engine.Handle
}

// Graph tracks dependency relations between live resource handles. It
// models declared relationships, not enforced ownership: untracking a node
// does not cascade to its children, which stay tracked with a dangling
// logical parent until the caller re-homes or untracks them.
//
// Complexity is linear in node count per call; graphs are expected to stay
// small (tens to low hundreds of live UI resources per frame).
//
// Thread Safety: Graph is safe for concurrent use. Instances are
// per-worker, but auxiliary loader goroutines may report into them.
type Graph struct {
	mu    sync.RWMutex
	nodes map[engine.Handle]*graphNode
}

// NewGraph creates an empty dependency graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[engine.Handle]*graphNode),
	}
}

// Track inserts a handle into the graph. It is a no-op when the handle is
// null or already tracked. If parent is non-null and currently tracked,
// the handle is attached to the parent's children. Orphans that already
// declared this handle as their parent are adopted, keeping parent links
// and children sets mutually consistent across any call sequence.
func (g *Graph) Track(h, parent engine.Handle, name string) {
	if h.IsNull() {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[h]; ok {
		return
	}

	g.nodes[h] = &graphNode{parent: parent, name: name}

	if p, ok := g.nodes[parent]; ok && !parent.IsNull() {
		p.children = append(p.children, h)
	}

	// Adopt orphans whose declared parent just became tracked.
	for child, node := range g.nodes {
		if child != h && node.parent == h {
			g.nodes[h].children = append(g.nodes[h].children, child)
		}
	}
}

// Untrack removes a handle from the graph and from its parent's children.
// It is a no-op for null or untracked handles. Children are not untracked:
// they keep their (now dangling) parent reference per the declared-
// relationship model.
func (g *Graph) Untrack(h engine.Handle) {
	if h.IsNull() {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	node, ok := g.nodes[h]
	if !ok {
		return
	}

	if p, ok := g.nodes[node.parent]; ok {
		p.children = removeHandle(p.children, h)
	}

	delete(g.nodes, h)
}

// UpdateDependency re-parents a tracked handle: it atomically detaches the
// handle from its old parent and attaches it to newParent. An untracked
// handle is simply tracked under newParent.
func (g *Graph) UpdateDependency(h, newParent engine.Handle) {
	if h.IsNull() {
		return
	}

	g.mu.Lock()

	node, ok := g.nodes[h]
	if !ok {
		g.mu.Unlock()
		g.Track(h, newParent, "")
		return
	}

	if p, ok := g.nodes[node.parent]; ok {
		p.children = removeHandle(p.children, h)
	}

	node.parent = newParent

	if p, ok := g.nodes[newParent]; ok && !newParent.IsNull() {
		p.children = append(p.children, h)
	}

	g.mu.Unlock()
}

// FindDependents returns every handle transitively reachable from root by
// following child links, exactly once, in breadth-first discovery order.
// The root itself is excluded. A null, untracked, or leaf root yields an
// empty result.
func (g *Graph) FindDependents(root engine.Handle) []engine.Handle {
	if root.IsNull() {
		return nil
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	var dependents []engine.Handle
	visited := map[engine.Handle]bool{root: true}
	queue := []engine.Handle{root}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		node, ok := g.nodes[current]
		if !ok {
			continue
		}
		for _, child := range node.children {
			if visited[child] {
				continue
			}
			visited[child] = true
			dependents = append(dependents, child)
			queue = append(queue, child)
		}
	}

	return dependents
}

// IsTracked reports whether the handle has a node in the graph.
func (g *Graph) IsTracked(h engine.Handle) bool {
	if h.IsNull() {
		return false
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[h]
	return ok
}

// Parent returns the recorded parent of a tracked handle and whether the
// handle is tracked at all. The parent may itself be untracked (dangling).
func (g *Graph) Parent(h engine.Handle) (engine.Handle, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	node, ok := g.nodes[h]
	if !ok {
		return engine.NullHandle, false
	}
	return node.parent, true
}

// Name returns the recorded name of a tracked handle, if any.
func (g *Graph) Name(h engine.Handle) string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if node, ok := g.nodes[h]; ok {
		return node.name
	}
	return ""
}

// Len returns the number of tracked handles.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

func removeHandle(s []engine.Handle, h engine.Handle) []engine.Handle {
	for i, v := range s {
		if v == h {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
