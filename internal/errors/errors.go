package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Error codes
const (
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeDuplicateAttempt = "DUPLICATE_ATTEMPT"
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// AppError represents an application error with HTTP status code and error code
type AppError struct {
	Code    string            // Error code (e.g., "NOT_FOUND", "VALIDATION_ERROR")
	Message string            // Human-readable error message
	Status  int               // HTTP status code
	Details map[string]string // Field-level detail for validation failures
	Err     error             // Wrapped underlying error (optional)
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error wrapping support
func (e *AppError) Unwrap() error {
	return e.Err
}

// As extracts an *AppError from err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code string) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// NewUnauthorizedError creates a new UNAUTHORIZED error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeUnauthorized,
		Message: message,
		Status:  http.StatusUnauthorized,
	}
}

// NewForbiddenError creates a new FORBIDDEN error
func NewForbiddenError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeForbidden,
		Message: fmt.Sprintf("%s %v does not belong to the caller", resource, id),
		Status:  http.StatusForbidden,
	}
}

// NewNotFoundError creates a new NOT_FOUND error
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %v", resource, id),
		Status:  http.StatusNotFound,
	}
}

// NewValidationError creates a new VALIDATION_ERROR
func NewValidationError(field string, reason string) *AppError {
	return NewFieldValidationError(map[string]string{field: reason})
}

// NewFieldValidationError creates a VALIDATION_ERROR carrying one reason per field.
func NewFieldValidationError(details map[string]string) *AppError {
	fields := make([]string, 0, len(details))
	for f := range details {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return &AppError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf("validation failed for %s", strings.Join(fields, ", ")),
		Status:  http.StatusBadRequest,
		Details: details,
	}
}

// NewDuplicateAttemptError is returned when a puzzle already has an attempt in the cycle.
func NewDuplicateAttemptError(cycleID, puzzleInSetID int64) *AppError {
	return &AppError{
		Code:    ErrCodeDuplicateAttempt,
		Message: fmt.Sprintf("attempt already recorded for puzzle %d in cycle %d", puzzleInSetID, cycleID),
		Status:  http.StatusBadRequest,
	}
}

// NewInternalError creates a new INTERNAL_ERROR
func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: "internal server error",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// NewBadRequestError creates a new BAD_REQUEST error
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeBadRequest,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}
