package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/mohae/deepcopy"

	"github.com/unlearnai/dagster/util"
)

// ErrorReason classifies a validation error.
type ErrorReason string

const (
	ReasonMissingRequiredField ErrorReason = "MISSING_REQUIRED_FIELD"
	ReasonFieldNotDefined      ErrorReason = "FIELD_NOT_DEFINED"
	ReasonSelectorFieldError   ErrorReason = "SELECTOR_FIELD_ERROR"
	ReasonRuntimeTypeMismatch  ErrorReason = "RUNTIME_TYPE_MISMATCH"
	ReasonFieldAliasCollision  ErrorReason = "FIELD_ALIAS_COLLISION"
)

// ValidationError describes one problem found in a configuration document.
type ValidationError struct {
	// Path locates the offending entry, e.g. "ops.A.config.config" or
	// "resources.db.config.hosts[2]". The document root renders as "root".
	Path     string      `json:"path"`
	Reason   ErrorReason `json:"reason"`
	Message  string      `json:"message"`
	Expected string      `json:"expected,omitempty"`
	Actual   any         `json:"actual,omitempty"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s at %s: %s", e.Reason, e.Path, e.Message)
}

// Result is the outcome of processing a document. On success Value holds
// the normalized document; otherwise Errors lists every problem found.
type Result struct {
	Success bool               `json:"success"`
	Value   any                `json:"value,omitempty"`
	Errors  []*ValidationError `json:"errors,omitempty"`
}

// Process validates value against t and returns the normalized value:
// defaults filled in, aliases resolved to canonical field names, omitted
// all-optional records materialized. Errors are accumulated, not
// short-circuited. Process never mutates t or value.
func Process(t ConfigType, value any) *Result {
	p := &processor{}
	out := p.evaluate(t, value, nil)
	return p.result(out)
}

// ProcessField processes a document held by a field. When present is false
// the document is treated as omitted and the field's default, requiredness
// and all-optional rules apply.
func ProcessField(f *Field, value any, present bool) *Result {
	p := &processor{}
	if present && (value != nil || f.Type().Kind() == KindAny) {
		return p.result(p.evaluate(f.Type(), value, nil))
	}
	out, _ := p.fill(f, "", nil)
	return p.result(out)
}

type processor struct {
	errs []*ValidationError
}

func (p *processor) result(out any) *Result {
	if len(p.errs) > 0 {
		return &Result{Success: false, Errors: p.errs}
	}
	return &Result{Success: true, Value: out}
}

func (p *processor) fail(path []string, reason ErrorReason, msg string, expected ConfigType, actual any) {
	e := &ValidationError{Path: renderPath(path), Reason: reason, Message: msg, Actual: actual}
	if expected != nil {
		e.Expected = Describe(expected)
	}
	p.errs = append(p.errs, e)
}

func (p *processor) evaluate(t ConfigType, v any, path []string) any {
	switch t.Kind() {
	case KindAny:
		return v
	case KindScalar:
		return p.scalar(t, v, path)
	case KindArray:
		return p.array(t.(*Array), v, path)
	case KindMap:
		return p.mapping(t.(*Map), v, path)
	case KindShape, KindPermissive:
		return p.shape(t.(RecordType), v, path)
	case KindSelector:
		return p.selector(t.(RecordType), v, path)
	default:
		p.fail(path, ReasonRuntimeTypeMismatch,
			fmt.Sprintf("Unsupported config type kind %s at %s.", t.Kind(), renderPath(path)), t, v)
		return nil
	}
}

func (p *processor) scalar(t ConfigType, v any, path []string) any {
	var (
		out any
		ok  bool
	)
	switch t.Key() {
	case Int.Key():
		out, ok = toInt(v)
	case Float.Key():
		out, ok = toFloat(v)
	case Bool.Key():
		out, ok = v.(bool)
	case String.Key(), Path.Key():
		out, ok = toString(v)
	}
	if !ok {
		p.fail(path, ReasonRuntimeTypeMismatch,
			fmt.Sprintf("Invalid scalar at path %s. Value %s of type %q is not valid for expected type %q.",
				renderPath(path), formatValue(v), typeName(v), t.GivenName()), t, v)
		return nil
	}
	return out
}

func (p *processor) array(t *Array, v any, path []string) any {
	rv := reflect.ValueOf(v)
	if v == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		p.fail(path, ReasonRuntimeTypeMismatch,
			fmt.Sprintf("Value at path %s must be a list. Expected: %s. Got %s.",
				renderPath(path), Describe(t), formatValue(v)), t, v)
		return nil
	}
	out := make([]any, rv.Len())
	for i := range rv.Len() {
		out[i] = p.evaluate(t.Inner(), rv.Index(i).Interface(), child(path, fmt.Sprintf("[%d]", i)))
	}
	return out
}

func (p *processor) mapping(t *Map, v any, path []string) any {
	rv := reflect.ValueOf(v)
	if v == nil || rv.Kind() != reflect.Map {
		p.fail(path, ReasonRuntimeTypeMismatch,
			fmt.Sprintf("Value at path %s must be a dict. Expected: %s. Got %s.",
				renderPath(path), Describe(t), formatValue(v)), t, v)
		return nil
	}
	// Keys are validated against the key type but stored stringified so the
	// normalized document stays JSON encodable.
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		rawKey := iter.Key().Interface()
		seg := fmt.Sprint(rawKey)
		key := p.evaluate(t.KeyType(), rawKey, child(path, seg))
		val := p.evaluate(t.ValueType(), iter.Value().Interface(), child(path, seg))
		if key != nil {
			out[fmt.Sprint(key)] = val
		}
	}
	return out
}

func (p *processor) shape(r RecordType, v any, path []string) any {
	entries, ok := p.entries(r, v, path)
	if !ok {
		return nil
	}
	out := make(map[string]any, len(entries))
	provided := make(map[string]any, len(entries))
	usedKey := make(map[string]string, len(entries))
	for _, key := range util.SortedKeys(entries) {
		canonical, declared := r.Canonical(key)
		if !declared {
			if r.Kind() == KindPermissive {
				out[key] = entries[key]
				continue
			}
			p.fail(child(path, key), ReasonFieldNotDefined,
				fmt.Sprintf("Received unexpected config entry %q at %s. Expected: %q.",
					key, renderPath(path), Describe(r)), r, entries[key])
			continue
		}
		if prev, dup := usedKey[canonical]; dup {
			p.fail(child(path, canonical), ReasonFieldAliasCollision,
				fmt.Sprintf("Received both field %q and its alias %q at %s. Provide only one of them.",
					prev, key, renderPath(path)), r, nil)
			continue
		}
		usedKey[canonical] = key
		provided[canonical] = entries[key]
	}
	for _, name := range r.FieldNames() {
		f, _ := r.Field(name)
		raw, ok := provided[name]
		if ok && (raw != nil || f.Type().Kind() == KindAny) {
			out[name] = p.evaluate(f.Type(), raw, child(path, name))
			continue
		}
		if val, filled := p.fill(f, name, path); filled {
			out[name] = val
		}
	}
	return out
}

func (p *processor) selector(r RecordType, v any, path []string) any {
	entries, ok := p.entries(r, v, path)
	if !ok {
		return nil
	}
	names := r.FieldNames()
	switch len(entries) {
	case 0:
		if len(names) == 1 {
			if f, _ := r.Field(names[0]); !f.IsRequired() {
				val, _ := p.fill(f, names[0], path)
				return map[string]any{names[0]: val}
			}
		}
		p.fail(path, ReasonSelectorFieldError,
			fmt.Sprintf("Must specify exactly one field at path %s. Defined fields: %s.",
				renderPath(path), quoteList(names)), r, v)
		return nil
	case 1:
		var key string
		for k := range entries {
			key = k
		}
		canonical, declared := r.Canonical(key)
		if !declared {
			p.fail(child(path, key), ReasonFieldNotDefined,
				fmt.Sprintf("Received unexpected config entry %q at %s. Expected one of: %s.",
					key, renderPath(path), quoteList(names)), r, entries[key])
			return nil
		}
		f, _ := r.Field(canonical)
		raw := entries[key]
		if raw == nil && f.Type().Kind() != KindAny {
			val, _ := p.fill(f, canonical, path)
			return map[string]any{canonical: val}
		}
		return map[string]any{canonical: p.evaluate(f.Type(), raw, child(path, canonical))}
	default:
		p.fail(path, ReasonSelectorFieldError,
			fmt.Sprintf("You can only specify a single field at path %s. You specified %s. The available fields are %s.",
				renderPath(path), quoteList(util.SortedKeys(entries)), quoteList(names)), r, v)
		return nil
	}
}

// fill produces the value of a field the document omitted. The bool result
// is false when the field contributes nothing to the normalized document.
func (p *processor) fill(f *Field, name string, parent []string) (any, bool) {
	path := parent
	if name != "" {
		path = child(parent, name)
	}
	t := f.Type()
	if def, ok := f.DefaultValue(); ok {
		return p.evaluate(t, deepcopy.Copy(def), path), true
	}
	isShape := t.Kind() == KindShape || t.Kind() == KindPermissive
	if f.IsRequired() {
		if isShape {
			before := len(p.errs)
			val := p.evaluate(t, nil, path)
			if len(p.errs) > before {
				return val, true
			}
		}
		msg := fmt.Sprintf("Missing required config entry at %s.", renderPath(path))
		if name != "" {
			msg = fmt.Sprintf("Missing required config entry %q at %s.", name, renderPath(parent))
		}
		p.fail(path, ReasonMissingRequiredField, msg, t, nil)
		return nil, false
	}
	if isShape && AllOptional(t) {
		return p.evaluate(t, nil, path), true
	}
	return nil, false
}

// entries returns the string-keyed entries of a record document. A nil
// document is an empty record.
func (p *processor) entries(r RecordType, v any, path []string) (map[string]any, bool) {
	if v == nil {
		return map[string]any{}, true
	}
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		p.fail(path, ReasonRuntimeTypeMismatch,
			fmt.Sprintf("Value at path %s must be a dict. Expected: %s. Got %s.",
				renderPath(path), Describe(r), formatValue(v)), r, v)
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[fmt.Sprint(iter.Key().Interface())] = iter.Value().Interface()
	}
	return out, true
}

func child(path []string, seg string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, seg)
}

func renderPath(path []string) string {
	if len(path) == 0 {
		return "root"
	}
	var b strings.Builder
	for i, seg := range path {
		if i > 0 && !strings.HasPrefix(seg, "[") {
			b.WriteByte('.')
		}
		b.WriteString(seg)
	}
	return b.String()
}

func quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func toInt(v any) (int, bool) {
	if n, ok := v.(json.Number); ok {
		i, err := n.Int64()
		return int(i), err == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i := rv.Int()
		if i < math.MinInt || i > math.MaxInt {
			return 0, false
		}
		return int(i), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		// YAML decodes integers above MaxInt64 as uint64.
		u := rv.Uint()
		if u > math.MaxInt {
			return 0, false
		}
		return int(u), true
	case reflect.Float32, reflect.Float64:
		// float64(math.MaxInt) rounds up to 2^63, itself out of range.
		f := rv.Float()
		if math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) ||
			f < math.MinInt || f >= math.MaxInt {
			return 0, false
		}
		return int(f), true
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()
		return f, err == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

func toString(v any) (string, bool) {
	if _, ok := v.(json.Number); ok {
		return "", false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}

func typeName(v any) string {
	if v == nil {
		return "null"
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Bool:
		return "bool"
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "int"
	case reflect.Float32, reflect.Float64:
		return "float"
	case reflect.Slice, reflect.Array:
		return "list"
	case reflect.Map:
		return "dict"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%v", v)
}
