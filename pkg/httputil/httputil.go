package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/tenantdesk/tenantdesk-backend/pkg/errors"
)

// Response is the envelope used by the health and auth endpoints
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody represents an error in the response
type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// JSON sends data inside the Response envelope
func JSON(w http.ResponseWriter, statusCode int, data any) {
	Raw(w, statusCode, Response{
		Success: statusCode >= 200 && statusCode < 300,
		Data:    data,
	})
}

// Error sends an enveloped error. Errors that are not AppErrors become a
// generic 500.
func Error(w http.ResponseWriter, err error) {
	var appErr *errors.AppError
	if !errors.As(err, &appErr) {
		appErr = errors.Internal("an unexpected error occurred")
	}

	Raw(w, appErr.StatusCode, Response{
		Error: &ErrorBody{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		},
	})
}

// ErrorObject writes the flat {"error": message} body used by the
// database-management endpoint. Errors that are not AppErrors are rendered
// with fallbackStatus and fallbackMessage so driver text never leaks.
func ErrorObject(w http.ResponseWriter, err error, fallbackStatus int, fallbackMessage string) {
	status := fallbackStatus
	message := fallbackMessage

	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		status = appErr.StatusCode
		message = appErr.Message
	}

	Raw(w, status, map[string]string{"error": message})
}

// Raw sends v as the whole JSON body
func Raw(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON decodes the request body into the provided struct. Numbers in
// untyped fields are kept as json.Number so no precision is lost.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return errors.BadRequest("invalid JSON body")
	}
	return nil
}
