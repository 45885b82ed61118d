package httpserver

import (
	"fmt"
	"net/http"
)

// Errors returned by the admin API
var (
	ErrEventNotFound = NewApiError("EVENT_NOT_FOUND", http.StatusNotFound, "No event is registered with the given name")
	ErrLoopStopped   = NewApiError("LOOP_STOPPED", http.StatusServiceUnavailable, "The event loop is stopped")
	ErrInternal      = NewApiError("INTERNAL", http.StatusInternalServerError, "Internal error")
)

// ApiError represents a structured API error response that can be serialized to JSON.
type ApiError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	InnerError string            `json:"innerError,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`

	httpStatus int
}

// NewApiError creates a new ApiError with the specified code, HTTP status, and message.
func NewApiError(code string, httpStatus int, message string) *ApiError {
	return &ApiError{
		Code:       code,
		Message:    message,
		httpStatus: httpStatus,
	}
}

// HTTPStatus returns the status code for the response.
func (e ApiError) HTTPStatus() int {
	return e.httpStatus
}

// WriteResponse writes the ApiError as a JSON response.
func (e ApiError) WriteResponse(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, r, e.httpStatus, e)
}

// Clone returns a copy of the ApiError with the given modifications applied.
// Predefined errors must be cloned before being customized.
func (e ApiError) Clone(with ...func(*ApiError)) *ApiError {
	cloned := &ApiError{
		Code:       e.Code,
		Message:    e.Message,
		httpStatus: e.httpStatus,
	}

	for _, w := range with {
		w(cloned)
	}

	return cloned
}

// WithInnerError sets the message of the underlying error.
func WithInnerError(innerError error) func(*ApiError) {
	return func(e *ApiError) {
		if innerError != nil {
			e.InnerError = innerError.Error()
		}
	}
}

// WithMetadata sets additional context for the error.
func WithMetadata(metadata map[string]string) func(*ApiError) {
	return func(e *ApiError) {
		e.Metadata = metadata
	}
}

// Error implements the error interface.
func (e ApiError) Error() string {
	return fmt.Sprintf("API error (%s): %s", e.Code, e.Message)
}

// Is allows comparing API errors with errors.Is based on their code.
func (e ApiError) Is(target error) bool {
	switch t := target.(type) {
	case ApiError:
		return t.Code == e.Code
	case *ApiError:
		return t != nil && t.Code == e.Code
	default:
		return false
	}
}
