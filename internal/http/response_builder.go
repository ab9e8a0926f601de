package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/middleware/trace"
	"expensetracker/internal/services"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil && b.statusCode == http.StatusNoContent {
		w.WriteHeader(b.statusCode)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if b.body != nil {
		_ = json.NewEncoder(w).Encode(b.body)
	}
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse creates a standard JSON error response.
func ErrorResponse(r *http.Request, statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(errorBody{Error: message, RequestID: trace.GetRequestID(r.Context())})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(r *http.Request, message string) *JSONResponseBuilder {
	return ErrorResponse(r, http.StatusBadRequest, message)
}

// UnprocessableEntityError creates a 422 Unprocessable Entity error response.
func UnprocessableEntityError(r *http.Request, message string) *JSONResponseBuilder {
	return ErrorResponse(r, http.StatusUnprocessableEntity, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(r *http.Request, message string) *JSONResponseBuilder {
	return ErrorResponse(r, http.StatusNotFound, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(r *http.Request) *JSONResponseBuilder {
	return ErrorResponse(r, http.StatusInternalServerError, "internal error")
}

// writeServiceError maps a service error onto a status code. Unexpected
// errors are logged and hidden from the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case core.IsValidationError(err):
		UnprocessableEntityError(r, err.Error()).Write(w)
	case errors.Is(err, services.ErrNotFound):
		NotFoundError(r, "not found").Write(w)
	case errors.Is(err, services.ErrNotEligible):
		ErrorResponse(r, http.StatusConflict, err.Error()).Write(w)
	default:
		fields := log.NewFields()
		if u := currentUser(r.Context()); u.ID != 0 {
			fields = fields.WithUser(u.ID)
		}
		structured := log.NewStructuredLogger(log.FromContext(r.Context()))
		structured.LogError(r.Context(), "Request failed", err, op, fields)
		InternalServerError(r).Write(w)
	}
}
