package validation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/unlearnai/dagster/errors"
)

// FieldError is one problem found with one field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) String() string { return e.Field + ": " + e.Message }

// Validator accumulates field problems so a definition reports all of
// them at once. Checks chain.
type Validator struct {
	problems []FieldError
}

func New() *Validator { return &Validator{} }

// AddError records a problem with field.
func (v *Validator) AddError(field, message string) {
	v.problems = append(v.problems, FieldError{Field: field, Message: message})
}

func (v *Validator) HasErrors() bool { return len(v.problems) > 0 }

func (v *Validator) Errors() []FieldError { return v.problems }

// Validate returns an INVALID_INPUT error listing every recorded problem,
// or nil. The problems are served under the "fields" detail.
func (v *Validator) Validate() error {
	if !v.HasErrors() {
		return nil
	}
	return errors.Validation(joinProblems(v.problems)).WithDetail("fields", v.problems)
}

func joinProblems(problems []FieldError) string {
	var b strings.Builder
	for i, p := range problems {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(p.String())
	}
	return b.String()
}

// Identifier checks that value can name a node, resource, logger or input.
func (v *Validator) Identifier(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	} else if !IsIdentifier(value) {
		v.AddError(field, fmt.Sprintf("%q %s", value, identifierRule))
	}
	return v
}

// Unique records one problem per name given more than once.
func (v *Validator) Unique(field string, names []string) *Validator {
	count := make(map[string]int, len(names))
	for _, name := range names {
		if count[name]++; count[name] == 2 {
			v.AddError(field, fmt.Sprintf("duplicate name %q", name))
		}
	}
	return v
}

// OneOf checks that a non-empty value is one of allowed.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	if value != "" && !slices.Contains(allowed, value) {
		v.AddError(field, "must be one of: "+strings.Join(allowed, " "))
	}
	return v
}

// OptionalUUID checks that a non-blank value parses as a non-nil UUID.
func (v *Validator) OptionalUUID(field, value string) *Validator {
	value = strings.TrimSpace(value)
	if value == "" {
		return v
	}
	if id, err := uuid.Parse(value); err != nil || id == uuid.Nil {
		v.AddError(field, "must be a valid UUID")
	}
	return v
}

// Custom records message against field unless ok holds.
func (v *Validator) Custom(ok bool, field, message string) *Validator {
	if !ok {
		v.AddError(field, message)
	}
	return v
}
