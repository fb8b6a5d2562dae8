package definition

import (
	"fmt"

	"github.com/unlearnai/dagster/schema"
)

// NodeKind is the closed set of node definition variants.
type NodeKind int

const (
	// KindOp is a leaf computation.
	KindOp NodeKind = iota + 1
	// KindGraph is a graph whose inner nodes are configured individually.
	KindGraph
	// KindMappedGraph is a graph configured through a config mapping.
	KindMappedGraph
)

// String returns the kind name.
func (k NodeKind) String() string {
	switch k {
	case KindOp:
		return "op"
	case KindGraph:
		return "graph"
	case KindMappedGraph:
		return "mapped_graph"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

// NodeDefinition is implemented by *OpDefinition and *GraphDefinition.
type NodeDefinition interface {
	// Name returns the definition name.
	Name() string
	// Kind reports which variant the definition is.
	Kind() NodeKind
	// ConfigField returns the schema of the node's "config" entry: the op's
	// config or a graph's config mapping schema. Nil for plain graphs and
	// unconfigured ops.
	ConfigField() *schema.Field
	// Inputs returns the declared inputs in declaration order.
	Inputs() []*InputDefinition
	// Outputs returns the declared outputs in declaration order.
	Outputs() []*OutputDefinition
}

// Node is a use of a definition inside a graph under a node name.
type Node struct {
	Name       string         `validate:"required,identifier"`
	Definition NodeDefinition `validate:"required"`
}

// NewNode creates a node named name. An empty name uses the definition name.
func NewNode(name string, def NodeDefinition) *Node {
	if name == "" && def != nil {
		name = def.Name()
	}
	return &Node{Name: name, Definition: def}
}

// Input returns the input called name.
func (n *Node) Input(name string) (*InputDefinition, bool) {
	return findInput(n.Definition.Inputs(), name)
}

// Output returns the output called name.
func (n *Node) Output(name string) (*OutputDefinition, bool) {
	return findOutput(n.Definition.Outputs(), name)
}

// DefaultOutputName is the output an op gets when it declares none.
const DefaultOutputName = "result"

// DefaultIOManagerKey is the resource key an output is handled by when it
// names no io manager.
const DefaultIOManagerKey = "io_manager"

// InputDefinition declares an op or graph input.
type InputDefinition struct {
	Name        string `validate:"required,identifier"`
	Description string
	// Type is the input value type. Nil means Any.
	Type *RuntimeType
	// RootManagerKey names a resource implementing the input-manager
	// capability that loads the input when it has no upstream output.
	RootManagerKey string
	// Default is used when the input has no upstream output and no config.
	Default    any
	HasDefault bool
}

// RuntimeType returns the input type, Any when unset.
func (d *InputDefinition) RuntimeType() *RuntimeType { return orAny(d.Type) }

// OutputDefinition declares an op or graph output.
type OutputDefinition struct {
	Name        string `validate:"required,identifier"`
	Description string
	// Type is the output value type. Nil means Any.
	Type *RuntimeType
	// IOManagerKey names the resource that stores the output. Empty means
	// DefaultIOManagerKey.
	IOManagerKey string
}

// RuntimeType returns the output type, Any when unset.
func (d *OutputDefinition) RuntimeType() *RuntimeType { return orAny(d.Type) }

// ManagerKey returns the io manager resource key of the output.
func (d *OutputDefinition) ManagerKey() string {
	if d.IOManagerKey == "" {
		return DefaultIOManagerKey
	}
	return d.IOManagerKey
}

func findInput(inputs []*InputDefinition, name string) (*InputDefinition, bool) {
	for _, in := range inputs {
		if in.Name == name {
			return in, true
		}
	}
	return nil, false
}

func findOutput(outputs []*OutputDefinition, name string) (*OutputDefinition, bool) {
	for _, out := range outputs {
		if out.Name == name {
			return out, true
		}
	}
	return nil, false
}
