package definition

import "strings"

// NodeHandle addresses a node by its path of names from the job's root
// graph. The zero value is the root itself.
type NodeHandle struct {
	path string
}

// NewHandle returns the handle of the node called name inside parent.
func NewHandle(parent NodeHandle, name string) NodeHandle {
	if parent.path == "" {
		return NodeHandle{path: name}
	}
	return NodeHandle{path: parent.path + "." + name}
}

// ParseHandle parses a dotted path such as "outer.inner.op".
func ParseHandle(s string) NodeHandle {
	return NodeHandle{path: strings.Trim(s, ".")}
}

// String renders the handle as a dotted path.
func (h NodeHandle) String() string { return h.path }

// IsRoot reports whether h is the root graph handle.
func (h NodeHandle) IsRoot() bool { return h.path == "" }

// Name returns the last path segment.
func (h NodeHandle) Name() string {
	if i := strings.LastIndexByte(h.path, '.'); i >= 0 {
		return h.path[i+1:]
	}
	return h.path
}

// Parent returns the handle of the enclosing graph node. The parent of a
// top-level node is the root handle.
func (h NodeHandle) Parent() NodeHandle {
	if i := strings.LastIndexByte(h.path, '.'); i >= 0 {
		return NodeHandle{path: h.path[:i]}
	}
	return NodeHandle{}
}

// Path returns the handle's names from the root.
func (h NodeHandle) Path() []string {
	if h.path == "" {
		return nil
	}
	return strings.Split(h.path, ".")
}

// Depth returns the number of names in the handle.
func (h NodeHandle) Depth() int { return len(h.Path()) }
