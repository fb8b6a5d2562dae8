package schema

import "github.com/mohae/deepcopy"

// Scaffold builds an example document for t. Defaults are used where
// present and placeholder values otherwise; selectors pick their first
// choice. Optional fields without a default are emitted only when
// includeOptional is set. Processing the result against t succeeds.
func Scaffold(t ConfigType, includeOptional bool) any {
	switch t.Kind() {
	case KindAny:
		return nil
	case KindScalar:
		switch t.Key() {
		case Int.Key():
			return 0
		case Float.Key():
			return 0.0
		case Bool.Key():
			return false
		default:
			return ""
		}
	case KindArray:
		return []any{}
	case KindMap:
		return map[string]any{}
	case KindShape, KindPermissive:
		r := t.(RecordType)
		out := make(map[string]any)
		for _, name := range r.FieldNames() {
			f, _ := r.Field(name)
			if v, ok := ScaffoldField(f, includeOptional); ok {
				out[name] = v
			}
		}
		return out
	case KindSelector:
		r := t.(RecordType)
		names := r.FieldNames()
		if len(names) == 0 {
			return map[string]any{}
		}
		f, _ := r.Field(names[0])
		v, ok := ScaffoldField(f, true)
		if !ok {
			v = nil
		}
		return map[string]any{names[0]: v}
	default:
		return nil
	}
}

// ScaffoldField returns the example value of a field and whether the field
// should appear in the scaffold at all.
func ScaffoldField(f *Field, includeOptional bool) (any, bool) {
	if def, ok := f.DefaultValue(); ok {
		return deepcopy.Copy(def), true
	}
	if f.IsRequired() || includeOptional {
		return Scaffold(f.Type(), includeOptional), true
	}
	return nil, false
}
