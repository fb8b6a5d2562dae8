package errors

import "net/http"

// ErrorCode is the machine-readable kind of an AppError.
type ErrorCode string

// Definition errors abort schema construction. No partial schema survives
// one of them.
const (
	ErrCodeInvalidDefinition  ErrorCode = "INVALID_DEFINITION"
	ErrCodeResourceNotFound   ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeResourceCapability ErrorCode = "RESOURCE_CAPABILITY"
	ErrCodeTypeNameCollision  ErrorCode = "TYPE_NAME_COLLISION"
	ErrCodeUnexpectedNodeKind ErrorCode = "UNEXPECTED_NODE_KIND"
	ErrCodeDependencyCycle    ErrorCode = "DEPENDENCY_CYCLE"
)

// Request errors.
const (
	// ErrCodeInvalidRunConfig is a document rejected by a run-config schema.
	ErrCodeInvalidRunConfig ErrorCode = "INVALID_RUN_CONFIG"
	// ErrCodeInvalidInput is a malformed request or configuration value.
	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
)

// statusByCode is the HTTP status each code is served with.
var statusByCode = map[ErrorCode]int{
	ErrCodeInvalidDefinition:  http.StatusUnprocessableEntity,
	ErrCodeResourceNotFound:   http.StatusUnprocessableEntity,
	ErrCodeResourceCapability: http.StatusUnprocessableEntity,
	ErrCodeTypeNameCollision:  http.StatusUnprocessableEntity,
	ErrCodeUnexpectedNodeKind: http.StatusInternalServerError,
	ErrCodeDependencyCycle:    http.StatusUnprocessableEntity,
	ErrCodeInvalidRunConfig:   http.StatusUnprocessableEntity,
	ErrCodeInvalidInput:       http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeAlreadyExists:      http.StatusConflict,
	ErrCodeInternal:           http.StatusInternalServerError,
}

// Status returns the HTTP status of code, 500 for unknown codes.
func (c ErrorCode) Status() int {
	if s, ok := statusByCode[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// IsDefinitionCode reports whether code belongs to the definition-error family.
func IsDefinitionCode(code ErrorCode) bool {
	switch code {
	case ErrCodeInvalidDefinition, ErrCodeResourceNotFound, ErrCodeResourceCapability,
		ErrCodeTypeNameCollision, ErrCodeUnexpectedNodeKind, ErrCodeDependencyCycle:
		return true
	}
	return false
}
