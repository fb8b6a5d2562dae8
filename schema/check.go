package schema

import (
	"strings"

	apperrors "github.com/unlearnai/dagster/errors"
)

// Check verifies that t is a well formed definition: no field is both
// explicitly required and defaulted, every default is a valid value of its
// field type, and map keys are scalars. It returns the first problem found
// as an INVALID_DEFINITION error.
func Check(t ConfigType) error {
	for ct := range Iterate(t) {
		switch typed := ct.(type) {
		case *Map:
			if k := typed.KeyType().Kind(); k != KindScalar {
				return apperrors.InvalidDefinition(
					"Map key type must be a scalar, got %s.", Describe(typed.KeyType()))
			}
		case RecordType:
			for _, name := range typed.FieldNames() {
				f, _ := typed.Field(name)
				if err := checkField(name, f); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// CheckField runs Check on the type of f and validates f itself.
func CheckField(name string, f *Field) error {
	if f == nil {
		return nil
	}
	if err := checkField(name, f); err != nil {
		return err
	}
	return Check(f.Type())
}

func checkField(name string, f *Field) error {
	if f.requiredSet && f.required && f.hasDefault {
		return apperrors.InvalidDefinition(
			"Field %q is marked required but also provides a default value.", name).
			WithDetail("field", name)
	}
	if !f.hasDefault {
		return nil
	}
	res := Process(f.Type(), f.defaultValue)
	if res.Success {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors))
	for _, e := range res.Errors {
		msgs = append(msgs, e.Error())
	}
	return apperrors.InvalidDefinition(
		"Default value of field %q does not match its type: %s", name, strings.Join(msgs, "; ")).
		WithDetail("field", name)
}
