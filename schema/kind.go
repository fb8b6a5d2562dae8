package schema

// Kind identifies the structural family of a config type.
type Kind int

const (
	KindAny Kind = iota
	KindScalar
	KindArray
	KindMap
	KindShape
	KindPermissive
	KindSelector
)

var kindNames = map[Kind]string{
	KindAny:        "Any",
	KindScalar:     "Scalar",
	KindArray:      "Array",
	KindMap:        "Map",
	KindShape:      "Shape",
	KindPermissive: "Permissive",
	KindSelector:   "Selector",
}

// String returns the kind name used in type keys.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// IsRecord reports whether values of this kind are string-keyed records
// whose entries are declared as fields.
func (k Kind) IsRecord() bool {
	return k == KindShape || k == KindPermissive || k == KindSelector
}

// ConfigType is implemented by every config type.
type ConfigType interface {
	// Kind returns the structural family of the type.
	Kind() Kind
	// Key returns the structural identity of the type.
	Key() string
	// GivenName returns the user supplied name, or "" for anonymous types.
	GivenName() string
	// Description returns the human-readable description, if any.
	Description() string
	// TypeParams returns the directly nested types.
	TypeParams() []ConfigType
}

// RecordType is implemented by Shape, Permissive and Selector types.
type RecordType interface {
	ConfigType
	// FieldNames returns the canonical field names in sorted order.
	FieldNames() []string
	// Field returns the field declared under the canonical name.
	Field(name string) (*Field, bool)
	// Canonical resolves a document key, which may be an alias, to the
	// canonical field name.
	Canonical(key string) (string, bool)
	// Aliases returns a copy of the canonical name to alias table.
	Aliases() map[string]string
}
