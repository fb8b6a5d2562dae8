package definition

import "github.com/unlearnai/dagster/schema"

// RuntimeType is the value type of an input or output. A Loader schema
// lets an unconnected input be hydrated from run config; a Materializer
// schema lets an output be persisted according to run config.
type RuntimeType struct {
	Name         string
	Description  string
	Loader       *schema.Field
	Materializer *schema.Field
}

// HasLoader reports whether inputs of this type can be loaded from config.
func (t *RuntimeType) HasLoader() bool { return t != nil && t.Loader != nil }

// HasMaterializer reports whether outputs of this type accept
// materialization config.
func (t *RuntimeType) HasMaterializer() bool { return t != nil && t.Materializer != nil }

// Builtin runtime types.
var (
	AnyType     = builtinRuntimeType("Any", schema.Any)
	BoolType    = builtinRuntimeType("Bool", schema.Bool)
	IntType     = builtinRuntimeType("Int", schema.Int)
	FloatType   = builtinRuntimeType("Float", schema.Float)
	StringType  = builtinRuntimeType("String", schema.String)
	NothingType = &RuntimeType{
		Name:        "Nothing",
		Description: "Marks a dependency that carries no value.",
	}
)

// RuntimeBuiltins returns every builtin runtime type.
func RuntimeBuiltins() []*RuntimeType {
	return []*RuntimeType{AnyType, BoolType, IntType, FloatType, StringType, NothingType}
}

// RuntimeBuiltin looks a builtin runtime type up by name.
func RuntimeBuiltin(name string) (*RuntimeType, bool) {
	for _, t := range RuntimeBuiltins() {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// builtinRuntimeType gives scalar types a loader selecting between an
// inline value and a file, and a materializer writing to a file.
func builtinRuntimeType(name string, value schema.ConfigType) *RuntimeType {
	pathShape := func() *schema.Field {
		return schema.NewField(schema.NewShape(schema.Fields{"path": schema.NewField(schema.Path)}))
	}
	loader := schema.NewSelector(schema.Fields{
		"value":  schema.NewField(value),
		"json":   pathShape(),
		"pickle": pathShape(),
	}, schema.WithName(name+".InputHydrationConfig"))
	materializer := schema.NewSelector(schema.Fields{
		"json":   pathShape(),
		"pickle": pathShape(),
	}, schema.WithName(name+".MaterializationSchema"))
	return &RuntimeType{
		Name:         name,
		Loader:       schema.NewField(loader),
		Materializer: schema.NewField(materializer),
	}
}

func orAny(t *RuntimeType) *RuntimeType {
	if t == nil {
		return AnyType
	}
	return t
}
