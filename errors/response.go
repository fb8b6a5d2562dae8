package errors

import stderrors "errors"

// Body is the JSON document served for a failed request.
type Body struct {
	Error Problem `json:"error"`
}

// Problem is the client view of an AppError.
type Problem struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ToResponse returns the client view of e.
func (e *AppError) ToResponse() Body {
	return Body{Error: Problem{Code: e.Code, Message: e.Message, Details: e.Details}}
}

// AsAppError finds the first AppError in the chain of err.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := stderrors.As(err, &appErr)
	return appErr, ok
}

// HasCode reports whether err is, or wraps, an AppError carrying code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
