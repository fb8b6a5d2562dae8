package schema

import "strings"

// Describe renders a compact, human-readable description of t for error
// messages. Named types render as their name.
func Describe(t ConfigType) string {
	if t == nil {
		return "<nil>"
	}
	if name := t.GivenName(); name != "" {
		return name
	}
	return Outline(t)
}

// Outline describes the structure of t itself, even when t is named.
// Nested named types still render as their name.
func Outline(t ConfigType) string {
	if t == nil {
		return "<nil>"
	}
	switch typed := t.(type) {
	case *Array:
		return "[" + Describe(typed.Inner()) + "]"
	case *Map:
		return "{[" + Describe(typed.KeyType()) + "]: " + Describe(typed.ValueType()) + "}"
	case RecordType:
		var b strings.Builder
		if t.Kind() == KindSelector {
			b.WriteString("Selector")
		}
		b.WriteString("{")
		for i, name := range typed.FieldNames() {
			if i > 0 {
				b.WriteString(", ")
			}
			f, _ := typed.Field(name)
			b.WriteString(name)
			if !f.IsRequired() {
				b.WriteString("?")
			}
			b.WriteString(": ")
			b.WriteString(Describe(f.Type()))
		}
		if t.Kind() == KindPermissive {
			if len(typed.FieldNames()) > 0 {
				b.WriteString(", ")
			}
			b.WriteString("...")
		}
		b.WriteString("}")
		return b.String()
	case *Scalar:
		return typed.GivenName()
	default:
		return t.Kind().String()
	}
}
