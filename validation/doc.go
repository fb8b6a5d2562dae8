// Package validation checks definition names, manifests and service
// configuration.
//
// Struct tag validation uses go-playground/validator with an extra
// "identifier" tag for names that become config keys:
//
//	type NodeSpec struct {
//	    Name string `yaml:"name" validate:"required,identifier"`
//	}
//	err := validation.Validate(spec)
//
// Programmatic validation collects every problem before failing:
//
//	v := validation.New()
//	v.Identifier("nodes[0].name", name).Unique("nodes", names)
//	err := v.Validate()
package validation
