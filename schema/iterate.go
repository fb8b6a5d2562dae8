package schema

import "iter"

// Iterate yields t and every type nested inside it, depth first, parents
// before children. Types reachable through several paths are yielded once
// per path.
func Iterate(t ConfigType) iter.Seq[ConfigType] {
	return func(yield func(ConfigType) bool) {
		walk(t, yield)
	}
}

func walk(t ConfigType, yield func(ConfigType) bool) bool {
	if t == nil {
		return true
	}
	if !yield(t) {
		return false
	}
	for _, child := range t.TypeParams() {
		if !walk(child, yield) {
			return false
		}
	}
	return true
}

// IterateField yields the types nested in a field, or nothing for a nil
// field.
func IterateField(f *Field) iter.Seq[ConfigType] {
	return func(yield func(ConfigType) bool) {
		if f != nil {
			walk(f.Type(), yield)
		}
	}
}
