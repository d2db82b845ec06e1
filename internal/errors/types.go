// Package errors defines the error taxonomy shared by the waha server and CLI.
//
// Every failure the server can report maps to one ErrorType, and every
// ErrorType maps to exactly one HTTP status through StatusCode. Nothing in
// the taxonomy is retried.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	// ErrorTypeRender is a Render Sink failure.
	ErrorTypeRender ErrorType = "render"
	// ErrorTypeDecode is a malformed or incomplete request body.
	ErrorTypeDecode ErrorType = "decode"
	// ErrorTypeInternal covers panics, including one raised while the todo
	// store lock was held.
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeConfig is an invalid configuration at start-up.
	ErrorTypeConfig ErrorType = "config"
)

// Common error codes.
const (
	ErrCodeRenderFailed     = "ERR_RENDER_FAILED"
	ErrCodeUnknownTemplate  = "ERR_UNKNOWN_TEMPLATE"
	ErrCodeMalformedBody    = "ERR_MALFORMED_BODY"
	ErrCodeUnsupportedMedia = "ERR_UNSUPPORTED_MEDIA_TYPE"
	ErrCodeMissingField     = "ERR_MISSING_FIELD"
	ErrCodeDuplicateField   = "ERR_DUPLICATE_FIELD"
	ErrCodePanic            = "ERR_PANIC"
	ErrCodeConfigInvalid    = "ERR_CONFIG_INVALID"
	ErrCodeServerStart      = "ERR_SERVER_START"
	ErrCodeTelemetryInit    = "ERR_TELEMETRY_INIT"
)

// AppError is a structured error type with context.
type AppError struct {
	Type    ErrorType
	Code    string
	Message string
	Status  int
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *AppError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	parts = append(parts, e.Message)
	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches another AppError with the same type and code.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// NewRenderError wraps a Render Sink failure for the named template.
func NewRenderError(template string, cause error) *AppError {
	return (&AppError{
		Type:    ErrorTypeRender,
		Code:    ErrCodeRenderFailed,
		Message: fmt.Sprintf("render %q", template),
		Status:  http.StatusInternalServerError,
		Cause:   cause,
	}).WithContext("template", template)
}

// NewUnknownTemplateError reports a template name with no registered component.
func NewUnknownTemplateError(template string) *AppError {
	return (&AppError{
		Type:    ErrorTypeRender,
		Code:    ErrCodeUnknownTemplate,
		Message: fmt.Sprintf("template %q is not registered", template),
		Status:  http.StatusInternalServerError,
	}).WithContext("template", template)
}

// NewDecodeError creates a client error for a request body that cannot be
// decoded. status must be a 4xx code.
func NewDecodeError(code string, status int, message string, cause error) *AppError {
	return &AppError{
		Type:    ErrorTypeDecode,
		Code:    code,
		Message: message,
		Status:  status,
		Cause:   cause,
	}
}

// NewPanicError converts a recovered panic value into an internal error.
func NewPanicError(recovered interface{}) *AppError {
	cause, ok := recovered.(error)
	if !ok {
		cause = fmt.Errorf("%v", recovered)
	}

	return &AppError{
		Type:    ErrorTypeInternal,
		Code:    ErrCodePanic,
		Message: "handler panicked",
		Status:  http.StatusInternalServerError,
		Cause:   cause,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(message string, cause error) *AppError {
	return &AppError{
		Type:    ErrorTypeConfig,
		Code:    ErrCodeConfigInvalid,
		Message: message,
		Cause:   cause,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Status:  http.StatusInternalServerError,
		Cause:   cause,
	}
}

// StatusCode returns the HTTP status for err. Errors outside the taxonomy
// map to 500.
func StatusCode(err error) int {
	var ae *AppError
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}

	return http.StatusInternalServerError
}

// IsRenderError checks if an error came from the Render Sink.
func IsRenderError(err error) bool {
	return isType(err, ErrorTypeRender)
}

// IsDecodeError checks if an error is a request decoding failure.
func IsDecodeError(err error) bool {
	return isType(err, ErrorTypeDecode)
}

func isType(err error, t ErrorType) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Type == t
	}

	return false
}
