package apierror

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error codes returned in the "error.code" field.
const (
	CodeBadRequest     = "BAD_REQUEST"
	CodeValidation     = "VALIDATION_ERROR"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeNotFound       = "NOT_FOUND"
	CodeRecordNotFound = "RECORD_NOT_FOUND"
	CodeUnknownTable   = "UNKNOWN_TABLE"
	CodeAlreadyPending = "ALREADY_PENDING"
	CodeExportFailed   = "EXPORT_FAILED"
	CodeInternal       = "INTERNAL_ERROR"
)

// Error represents a structured API error response.
type Error struct {
	StatusCode int          `json:"-"`
	Code       string       `json:"code"`
	Message    string       `json:"message"`
	Details    []FieldError `json:"details,omitempty"`
}

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type envelope struct {
	Success bool   `json:"success"`
	Error   *Error `json:"error"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// ToJSON renders the error inside the standard failure envelope.
func (e *Error) ToJSON() []byte {
	data, _ := json.Marshal(envelope{Success: false, Error: e})
	return data
}

func newError(status int, code, message string) *Error {
	return &Error{StatusCode: status, Code: code, Message: message}
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(message string) *Error {
	return newError(http.StatusBadRequest, CodeBadRequest, message)
}

// ValidationError creates a 400 error with validation details.
func ValidationError(message string, details ...FieldError) *Error {
	e := newError(http.StatusBadRequest, CodeValidation, message)
	e.Details = details
	return e
}

// Unauthorized creates a 401 Unauthorized error.
func Unauthorized(message string) *Error {
	if message == "" {
		message = "Authentication required"
	}
	return newError(http.StatusUnauthorized, CodeUnauthorized, message)
}

// NotFound creates a 404 Not Found error.
func NotFound(message string) *Error {
	if message == "" {
		message = "Resource not found"
	}
	return newError(http.StatusNotFound, CodeNotFound, message)
}

// RecordNotFound reports a barcode with no record in cache or remote.
func RecordNotFound(barcode string) *Error {
	return newError(http.StatusNotFound, CodeRecordNotFound, fmt.Sprintf("no record for barcode %q", barcode))
}

// UnknownTable reports a cache table name that does not exist.
func UnknownTable(name string) *Error {
	return newError(http.StatusNotFound, CodeUnknownTable, fmt.Sprintf("unknown table %q", name))
}

// AlreadyPending reports a scanned barcode that is already waiting for submission.
func AlreadyPending(barcode string) *Error {
	return newError(http.StatusConflict, CodeAlreadyPending, fmt.Sprintf("barcode %s already pending", barcode))
}

// ExportFailed reports a workbook that could not be generated.
func ExportFailed(name string) *Error {
	return newError(http.StatusInternalServerError, CodeExportFailed, fmt.Sprintf("failed to generate %s workbook", name))
}

// InternalError creates a 500 Internal Server Error.
func InternalError(message string) *Error {
	if message == "" {
		message = "An unexpected error occurred"
	}
	return newError(http.StatusInternalServerError, CodeInternal, message)
}
