package errors

import (
	"fmt"
	"strings"
)

// AppError is the error returned across package boundaries. Code selects
// the HTTP status; Details are served to clients, Cause is not.
type AppError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
}

func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, " (cause: %v)", e.Cause)
	}
	return b.String()
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause attaches the underlying error.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets one detail.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

// newError builds an AppError whose status follows from code. kv are
// detail key/value pairs.
func newError(code ErrorCode, msg string, kv ...any) *AppError {
	e := &AppError{Code: code, Message: msg, HTTPStatus: code.Status()}
	for i := 0; i+1 < len(kv); i += 2 {
		e.WithDetail(kv[i].(string), kv[i+1])
	}
	return e
}

// InvalidDefinition reports a malformed op, graph, job, manifest or field.
func InvalidDefinition(format string, args ...any) *AppError {
	return newError(ErrCodeInvalidDefinition, fmt.Sprintf(format, args...))
}

// ResourceNotFound reports a manager key with no matching resource
// definition. kind is "root_manager_key" or "io_manager_key".
func ResourceNotFound(subject, kind, key string) *AppError {
	return newError(ErrCodeResourceNotFound,
		fmt.Sprintf("%s requires %s %q, but no resource has been provided. "+
			"Please include a resource definition for that key in the provided resource definitions.", subject, kind, key),
		"subject", subject, "key", key, "kind", kind)
}

// ResourceCapability reports a resource that is not the input or output
// manager an input or output asks for.
func ResourceCapability(subject, kind, key, capability string) *AppError {
	return newError(ErrCodeResourceCapability,
		fmt.Sprintf("%s requires %s %q, but the resource definition provided is not an %s.", subject, kind, key, capability),
		"subject", subject, "key", key, "capability", capability)
}

// TypeNameCollision reports two different config types built under one name.
func TypeNameCollision(name string) *AppError {
	return newError(ErrCodeTypeNameCollision,
		fmt.Sprintf("Type names must be unique. You have constructed two different "+
			"instances of types with the same name %q.", name),
		"name", name)
}

// UnexpectedNodeKind reports a node definition outside the closed set of kinds.
func UnexpectedNodeKind(node string, kind any) *AppError {
	return newError(ErrCodeUnexpectedNodeKind,
		fmt.Sprintf("Unexpected node definition kind %v for node %q.", kind, node), "node", node)
}

// DependencyCycle reports a cycle in the dependency structure of graph.
func DependencyCycle(graph string, cause error) *AppError {
	return newError(ErrCodeDependencyCycle,
		fmt.Sprintf("Graph %q has circular dependencies.", graph), "graph", graph).WithCause(cause)
}

// InvalidRunConfig is returned for a document that failed validation. errs
// is served under the "errors" detail.
func InvalidRunConfig(job string, count int, errs any) *AppError {
	return newError(ErrCodeInvalidRunConfig,
		fmt.Sprintf("Run config for job %q is invalid: %d error(s) found.", job, count),
		"job", job, "errors", errs)
}

// InvalidInput reports a bad request value. field may be empty.
func InvalidInput(field, reason string) *AppError {
	e := newError(ErrCodeInvalidInput, "Invalid input: "+reason)
	if field != "" {
		e.WithDetail("field", field)
	}
	return e
}

// Validation wraps the combined message of a failed input validation.
func Validation(message string) *AppError {
	return newError(ErrCodeInvalidInput, message)
}

// NotFound reports an unknown job, mode or manifest. id may be empty.
func NotFound(resource, id string) *AppError {
	if id == "" {
		return newError(ErrCodeNotFound, fmt.Sprintf("The requested %s was not found.", resource), "resource", resource)
	}
	return newError(ErrCodeNotFound, fmt.Sprintf("The requested %s %q was not found.", resource, id),
		"resource", resource, "id", id)
}

// AlreadyExists reports a registration under a taken name.
func AlreadyExists(resource, id string) *AppError {
	return newError(ErrCodeAlreadyExists, fmt.Sprintf("A %s named %q is already registered.", resource, id),
		"resource", resource, "id", id)
}

// Internal hides cause behind a generic message.
func Internal(cause error) *AppError {
	return newError(ErrCodeInternal, "An unexpected error occurred.").WithCause(cause)
}
