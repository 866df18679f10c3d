package domain

import (
	"errors"
	"net/http"
	"strings"

	apperrors "github.com/tenantdesk/tenantdesk-backend/pkg/errors"
)

// Result is the envelope every backend method returns. Degraded marks data
// that is placeholder content rather than read from the datastore.
type Result[T any] struct {
	Success    bool   `json:"success"`
	Data       *T     `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
	Message    string `json:"message,omitempty"`
	Degraded   bool   `json:"degraded,omitempty"`
	StatusCode int    `json:"-"`
}

// OK wraps data in a successful result
func OK[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: &data, StatusCode: http.StatusOK}
}

// Placeholder wraps non-authoritative data with an explanation
func Placeholder[T any](data T, message string) Result[T] {
	return Result[T]{Success: true, Data: &data, Message: message, Degraded: true, StatusCode: http.StatusOK}
}

// Fail builds a failed result. AppErrors keep their message and status;
// anything else is reported generically.
func Fail[T any](err error) Result[T] {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return Result[T]{Error: appErr.Message, StatusCode: appErr.StatusCode}
	}
	return Result[T]{Error: "internal error", StatusCode: http.StatusInternalServerError}
}

// WithMessage appends a note to the result message
func (r Result[T]) WithMessage(msg string) Result[T] {
	if msg == "" {
		return r
	}
	if r.Message == "" {
		r.Message = msg
	} else {
		r.Message = strings.Join([]string{r.Message, msg}, "; ")
	}
	return r
}
