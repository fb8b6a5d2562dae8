package definition

import (
	"github.com/unlearnai/dagster/errors"
	"github.com/unlearnai/dagster/schema"
	"github.com/unlearnai/dagster/validation"
)

// validateDefinition runs struct tag validation and reports failures as an
// INVALID_DEFINITION error for the named definition.
func validateDefinition(kind, name string, cfg any) error {
	err := validation.Validate(cfg)
	if err == nil {
		return nil
	}
	appErr := errors.InvalidDefinition("Invalid %s definition %q: %v", kind, name, messageOf(err)).WithCause(err)
	if inner, ok := errors.AsAppError(err); ok {
		if fields, ok := inner.Details["fields"]; ok {
			appErr.WithDetail("fields", fields)
		}
	}
	return appErr
}

// collected converts the errors gathered by v into an INVALID_DEFINITION
// error, or returns nil.
func collected(kind, name string, v *validation.Validator) error {
	if !v.HasErrors() {
		return nil
	}
	return errors.InvalidDefinition("Invalid %s definition %q: %v", kind, name, messageOf(v.Validate())).
		WithDetail("fields", v.Errors())
}

// checkConfig validates a config schema attached to a definition.
func checkConfig(kind, name string, f *schema.Field) error {
	if err := schema.CheckField("config", f); err != nil {
		return errors.InvalidDefinition("Invalid config schema for %s %q: %v", kind, name, messageOf(err)).
			WithCause(err)
	}
	return nil
}

func messageOf(err error) string {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr.Message
	}
	return err.Error()
}
