package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard error types
var (
	ErrNotFound        = errors.New("resource not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrBadRequest      = errors.New("bad request")
	ErrInternal        = errors.New("internal server error")
	ErrValidation      = errors.New("validation error")
	ErrTokenInvalid    = errors.New("invalid token")
	ErrTokenExpired    = errors.New("token expired")
	ErrDatastore       = errors.New("datastore error")
	ErrTooManyRequests = errors.New("too many requests")
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code string, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Common error constructors

func NotFound(resource string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthorized,
		Code:       "UNAUTHORIZED",
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Err:        ErrForbidden,
		Code:       "FORBIDDEN",
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Err:        ErrInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func Validation(details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       "VALIDATION_ERROR",
		Message:    "validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

func TokenInvalid() *AppError {
	return &AppError{
		Err:        ErrTokenInvalid,
		Code:       "TOKEN_INVALID",
		Message:    "invalid token",
		StatusCode: http.StatusUnauthorized,
	}
}

func TokenExpired() *AppError {
	return &AppError{
		Err:        ErrTokenExpired,
		Code:       "TOKEN_EXPIRED",
		Message:    "token has expired",
		StatusCode: http.StatusUnauthorized,
	}
}

func TooManyRequests() *AppError {
	return &AppError{
		Err:        ErrTooManyRequests,
		Code:       "TOO_MANY_REQUESTS",
		Message:    "rate limit exceeded",
		StatusCode: http.StatusTooManyRequests,
	}
}

// Administrative data-management errors. All of them are caller-correctable
// and are raised before any datastore call is made.

func TableNotAllowed(table string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "TABLE_NOT_ALLOWED",
		Message:    fmt.Sprintf("Table not allowed: %s", table),
		StatusCode: http.StatusBadRequest,
	}
}

func TableReadOnly(table string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "TABLE_READ_ONLY",
		Message:    fmt.Sprintf("Table is read-only: %s", table),
		StatusCode: http.StatusBadRequest,
	}
}

func InvalidIdentifier(name string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "INVALID_IDENTIFIER",
		Message:    fmt.Sprintf("Invalid identifier: %q", name),
		StatusCode: http.StatusBadRequest,
	}
}

func InvalidColumnType(columnType string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "INVALID_COLUMN_TYPE",
		Message:    fmt.Sprintf("Invalid column type: %s", columnType),
		StatusCode: http.StatusBadRequest,
	}
}

func InvalidEnumValue(value string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "INVALID_ENUM_VALUE",
		Message:    fmt.Sprintf("Invalid enum value: %q", value),
		StatusCode: http.StatusBadRequest,
	}
}

func InvalidDefaultValue() *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "INVALID_DEFAULT_VALUE",
		Message:    "Default value rejected",
		StatusCode: http.StatusBadRequest,
	}
}

func ProtectedColumn(column string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "PROTECTED_COLUMN",
		Message:    fmt.Sprintf("Cannot delete protected column: %s", column),
		StatusCode: http.StatusBadRequest,
	}
}

func ColumnAddFailed(err error) *AppError {
	return &AppError{
		Err:        err,
		Code:       "COLUMN_ADD_FAILED",
		Message:    "Failed to add column",
		StatusCode: http.StatusBadRequest,
	}
}

func UnknownAction(action string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "UNKNOWN_ACTION",
		Message:    fmt.Sprintf("Unknown action: %s", action),
		StatusCode: http.StatusBadRequest,
	}
}

func RowNotFound(table, id string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Code:       "ROW_NOT_FOUND",
		Message:    fmt.Sprintf("No row with id %s in %s", id, table),
		StatusCode: http.StatusBadRequest,
	}
}

// Tenant backend errors

func RequiresEnhancedSchema(operation string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "ENHANCED_SCHEMA_REQUIRED",
		Message:    fmt.Sprintf("%s requires the enhanced tenant schema", operation),
		StatusCode: http.StatusConflict,
	}
}

// Datastore wraps an underlying store failure. The message is what callers
// see; err keeps the full driver error for server-side logging.
func Datastore(err error, message string) *AppError {
	if message == "" {
		message = "database operation failed"
	}
	return &AppError{
		Err:        fmt.Errorf("%w: %v", ErrDatastore, err),
		Code:       "DATASTORE_ERROR",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}
