package definition

import "iter"

// ArenaEntry is one node of a job, addressed by its handle.
type ArenaEntry struct {
	Handle NodeHandle
	Node   *Node
	// Container is the graph that declares the node.
	Container *GraphDefinition
	// Children holds the handles of the inner nodes of a graph node.
	Children []NodeHandle
}

// HasUpstream reports whether input of the entry's node is fed inside its
// container graph, by a sibling output or a graph input mapping.
func (e *ArenaEntry) HasUpstream(input string) bool {
	return e.Container.HasUpstream(e.Node.Name, input)
}

// Arena stores every node of a graph, nested graphs included, keyed by
// handle. Traversals go through handles rather than node pointers, so the
// same definition used at two places stays two distinct entries.
type Arena struct {
	root    *GraphDefinition
	entries map[NodeHandle]*ArenaEntry
	roots   []NodeHandle
	order   []NodeHandle
}

// NewArena indexes root and every graph nested below it.
func NewArena(root *GraphDefinition) *Arena {
	a := &Arena{root: root, entries: make(map[NodeHandle]*ArenaEntry)}
	a.roots = a.add(NodeHandle{}, root)
	return a
}

func (a *Arena) add(parent NodeHandle, g *GraphDefinition) []NodeHandle {
	handles := make([]NodeHandle, 0, len(g.Nodes()))
	for _, n := range g.Nodes() {
		h := NewHandle(parent, n.Name)
		entry := &ArenaEntry{Handle: h, Node: n, Container: g}
		a.entries[h] = entry
		a.order = append(a.order, h)
		if inner, ok := n.Definition.(*GraphDefinition); ok {
			entry.Children = a.add(h, inner)
		}
		handles = append(handles, h)
	}
	return handles
}

// Root returns the indexed graph.
func (a *Arena) Root() *GraphDefinition { return a.root }

// Roots returns the handles of the top-level nodes in declaration order.
func (a *Arena) Roots() []NodeHandle { return a.roots }

// Get returns the entry at h.
func (a *Arena) Get(h NodeHandle) (*ArenaEntry, bool) {
	e, ok := a.entries[h]
	return e, ok
}

// Children returns the inner node handles of the graph node at h. The root
// handle returns the top-level nodes.
func (a *Arena) Children(h NodeHandle) []NodeHandle {
	if h.IsRoot() {
		return a.roots
	}
	if e, ok := a.entries[h]; ok {
		return e.Children
	}
	return nil
}

// Len returns the number of indexed nodes.
func (a *Arena) Len() int { return len(a.entries) }

// All yields every entry in pre-order.
func (a *Arena) All() iter.Seq[*ArenaEntry] {
	return func(yield func(*ArenaEntry) bool) {
		for _, h := range a.order {
			if !yield(a.entries[h]) {
				return
			}
		}
	}
}

// Below yields the entry at h and every entry nested under it, pre-order.
func (a *Arena) Below(h NodeHandle) iter.Seq[*ArenaEntry] {
	return func(yield func(*ArenaEntry) bool) {
		var walk func(NodeHandle) bool
		walk = func(h NodeHandle) bool {
			e, ok := a.entries[h]
			if !ok {
				return true
			}
			if !yield(e) {
				return false
			}
			for _, c := range e.Children {
				if !walk(c) {
					return false
				}
			}
			return true
		}
		walk(h)
	}
}
