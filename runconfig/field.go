package runconfig

import (
	"reflect"

	"github.com/unlearnai/dagster/schema"
)

// Configurable is a definition that may carry a config schema: ops, graphs
// with a config mapping, resources, loggers, executors and storages.
type Configurable interface {
	ConfigField() *schema.Field
}

// FieldFor wraps the config schema of c in a {config: ...} envelope. It
// returns nil when c has no config schema and required is nil. A non-nil
// required states the requiredness of the envelope; otherwise it is
// inferred from the wrapped schema.
func FieldFor(c Configurable, required *bool) *schema.Field {
	cf := configFieldOf(c)
	if cf == nil && required == nil {
		return nil
	}
	fields := schema.Fields{}
	if cf != nil {
		fields["config"] = cf
	}
	shape := schema.NewShape(fields)
	if required != nil {
		return schema.NewField(shape, schema.IsRequired(*required))
	}
	return schema.NewField(shape)
}

// choiceField is the envelope of a selector choice. Choices without a
// config schema still appear, as an empty record.
func choiceField(c Configurable) *schema.Field {
	if f := FieldFor(c, nil); f != nil {
		return f
	}
	return schema.NewField(schema.NewShape(nil))
}

func configFieldOf(c Configurable) *schema.Field {
	if c == nil {
		return nil
	}
	if rv := reflect.ValueOf(c); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil
	}
	return c.ConfigField()
}
