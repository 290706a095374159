package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents an application error with HTTP status
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	CodeManifestMissing   = "MANIFEST_MISSING"
	CodeManifestMalformed = "MANIFEST_MALFORMED"
	CodePluginNotFound    = "PLUGIN_NOT_FOUND"
	CodePluginExecution   = "PLUGIN_EXECUTION_ERROR"
	CodePersistence       = "PERSISTENCE_ERROR"
	CodeUnauthenticated   = "UNAUTHENTICATED"
	CodeForbidden         = "FORBIDDEN"
	CodeBadRequest        = "BAD_REQUEST"
	CodeInternalError     = "INTERNAL_ERROR"
)

// Common application errors
var (
	ErrManifestMissing   = &AppError{Code: CodeManifestMissing, Message: "plugin manifest not found", Status: http.StatusUnprocessableEntity}
	ErrManifestMalformed = &AppError{Code: CodeManifestMalformed, Message: "plugin manifest is malformed", Status: http.StatusUnprocessableEntity}
	ErrPluginNotFound    = &AppError{Code: CodePluginNotFound, Message: "plugin not found", Status: http.StatusNotFound}
	ErrPluginExecution   = &AppError{Code: CodePluginExecution, Message: "plugin execution failed", Status: http.StatusUnprocessableEntity}
	ErrPersistence       = &AppError{Code: CodePersistence, Message: "persistence failure", Status: http.StatusBadGateway}
	ErrUnauthenticated   = &AppError{Code: CodeUnauthenticated, Message: "authentication required", Status: http.StatusUnauthorized}
	ErrForbidden         = &AppError{Code: CodeForbidden, Message: "forbidden", Status: http.StatusForbidden}
	ErrBadRequest        = &AppError{Code: CodeBadRequest, Message: "bad request", Status: http.StatusBadRequest}
	ErrInternalError     = &AppError{Code: CodeInternalError, Message: "internal server error", Status: http.StatusInternalServerError}
)

// New creates a new AppError
func New(code string, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
	}
}

// Wrap wraps an error with an AppError
func Wrap(err error, appErr *AppError) *AppError {
	return &AppError{
		Code:    appErr.Code,
		Message: appErr.Message,
		Status:  appErr.Status,
		Err:     err,
	}
}

// WithMessage returns a new AppError with a custom message
func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: message,
		Status:  e.Status,
		Err:     e.Err,
	}
}

// WithError returns a new AppError with a wrapped error
func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Status:  e.Status,
		Err:     err,
	}
}

// Is checks if the error is a specific AppError
func Is(err error, target *AppError) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == target.Code
	}
	return false
}

// GetStatus returns the HTTP status from an error
func GetStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// GetCode returns the error code carried by an error, or INTERNAL_ERROR
func GetCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternalError
}
