package validation

import (
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/unlearnai/dagster/errors"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

const identifierRule = "must start with a letter or underscore and contain only letters, digits and underscores"

// IsIdentifier reports whether s can be used as a node, resource, logger or
// executor name. Names become keys of the run config document.
func IsIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// structValidator is built once; go-playground caches struct metadata on it.
var structValidator = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(configKey)
	_ = v.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
		return IsIdentifier(fl.Field().String())
	})
	return v
})

// configKey names a struct field by the key users write in config files.
func configKey(f reflect.StructField) string {
	for _, tag := range []string{"mapstructure", "yaml", "json"} {
		if name, _, _ := strings.Cut(f.Tag.Get(tag), ","); name != "" && name != "-" {
			return name
		}
	}
	return toSnakeCase(f.Name)
}

// Validate checks s against its `validate` struct tags.
func Validate(s any) error {
	err := structValidator().Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Validation("validation failed").WithCause(err)
	}
	problems := make([]FieldError, len(verrs))
	for i, e := range verrs {
		problems[i] = FieldError{Field: dropRoot(e.Namespace()), Message: describe(e)}
	}
	return errors.Validation(joinProblems(problems)).WithDetail("fields", problems)
}

// dropRoot strips the root struct name from a validator namespace.
func dropRoot(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func describe(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "required_if":
		return "is required"
	case "identifier":
		return identifierRule
	case "min":
		if k := e.Kind(); k == reflect.Slice || k == reflect.Map {
			return "must contain at least " + e.Param() + " entries"
		}
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	case "hostname_port":
		return "must be a host:port address"
	case "url":
		return "must be a valid URL"
	case "unique":
		return "must not contain duplicates"
	}
	return "is invalid"
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
