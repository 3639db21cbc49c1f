// Package errors provides the API error model for the DATRAS client
// service: structured APIError values for the handlers, RFC 7807 problem
// details on the wire, and a centralized handler that converts between
// the two.
package errors

import (
	"net/http"

	"github.com/go-chi/render"
)

// APIError represents a structured API error response
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// ValidationError represents a single field validation failure
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New creates a new APIError with the given parameters
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates a new APIError with additional details
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// Predefined error types for common scenarios
var (
	// 400 Bad Request
	ErrInvalidRequest   = New(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")
	ErrValidationFailed = New(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed")
	ErrMissingParameter = New(http.StatusBadRequest, "MISSING_PARAMETER", "Required parameter is missing")
	ErrInvalidParameter = New(http.StatusBadRequest, "INVALID_PARAMETER", "Invalid parameter value")

	// 404 Not Found
	ErrNotFound        = New(http.StatusNotFound, "NOT_FOUND", "Resource not found")
	ErrDatasetNotFound = New(http.StatusNotFound, "DATASET_NOT_FOUND", "No data for the requested combinations")
	ErrExportNotFound  = New(http.StatusNotFound, "EXPORT_NOT_FOUND", "Export file not found")

	// 422 Unprocessable Entity
	ErrDownloadLimit = New(http.StatusUnprocessableEntity, "DOWNLOAD_LIMIT_EXCEEDED", "Requested combinations exceed the download limit")

	// 500 Internal Server Error
	ErrInternalServer = New(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
	ErrExportFailed   = New(http.StatusInternalServerError, "EXPORT_FAILED", "Dataset export failed")

	// 502 Bad Gateway
	ErrUpstreamFault = New(http.StatusBadGateway, "UPSTREAM_FAULT", "The DATRAS web service reported a fault")

	// 503 Service Unavailable
	ErrServiceUnavailable  = New(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Service temporarily unavailable")
	ErrUpstreamUnavailable = New(http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "The DATRAS web service is unreachable")
)

// InvalidRequestWithError creates an invalid request error with details
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format", err.Error())
}

// ErrValidation creates a validation error for a specific field
func ErrValidation(field, message string) *APIError {
	return NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed",
		[]ValidationError{{Field: field, Message: message}})
}

// NewValidationErrors creates a validation error carrying multiple field
// failures
func NewValidationErrors(errs []ValidationError) *APIError {
	return NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed", errs)
}

// DownloadLimitExceeded creates a download-limit error carrying the
// requested and allowed combination counts
func DownloadLimitExceeded(requested, limit int) *APIError {
	return NewWithDetails(http.StatusUnprocessableEntity, "DOWNLOAD_LIMIT_EXCEEDED",
		"Requested combinations exceed the download limit",
		map[string]int{"requested": requested, "limit": limit})
}
