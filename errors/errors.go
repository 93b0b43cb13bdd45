package errors

import (
	"fmt"
	"net/http"
)

// AppError is the error type every recoverykit component returns across
// package boundaries. Its Code decides the failure Kind; Retryable is
// derived from the code unless a constructor says otherwise.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"` // safe to show to users
	// Retryable tells the retry executor whether another attempt can help.
	Retryable  bool           `json:"retryable"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is matches another *AppError by code, so errors.Is(err, RateLimited())
// holds for any rate-limit error regardless of message or details.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t != nil && t.Code == e.Code
}

// Kind returns the failure kind for the error's code.
func (e *AppError) Kind() Kind { return KindForCode(e.Code) }

// WithCause records the underlying error.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges details into the error.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	for k, v := range details {
		e.WithDetail(k, v)
	}
	return e
}

// WithDetail sets one detail key.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any, 1)
	}
	e.Details[key] = value
	return e
}

// New creates an AppError whose retryability follows its code.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

func withDetails(e *AppError, kv ...any) *AppError {
	for i := 0; i+1 < len(kv); i += 2 {
		e.WithDetail(kv[i].(string), kv[i+1])
	}
	return e
}

// ServiceUnavailable reports a backend that is up but refusing work, or a
// circuit breaker that is open in front of it.
func ServiceUnavailable(service string) *AppError {
	return withDetails(New(ErrCodeServiceUnavailable,
		fmt.Sprintf("The %s is temporarily unavailable. Please try again.", service),
		http.StatusServiceUnavailable), "service", service)
}

// ConnectionFailed reports a backend that could not be reached.
func ConnectionFailed(service string) *AppError {
	return withDetails(New(ErrCodeConnectionFailed,
		fmt.Sprintf("Unable to connect to %s. Please verify the service is running.", service),
		http.StatusServiceUnavailable), "service", service)
}

// Timeout reports an operation that ran out of time.
func Timeout(operation string) *AppError {
	return withDetails(New(ErrCodeTimeout, "The request took too long. Please try again.",
		http.StatusGatewayTimeout), "operation", operation)
}

func RateLimited() *AppError {
	return New(ErrCodeRateLimited, "Too many requests. Please wait a moment and try again.",
		http.StatusTooManyRequests)
}

// NotFound reports a resource the backend does not know, such as a model
// that was never pulled. id may be empty.
func NotFound(resource, id string) *AppError {
	e := withDetails(New(ErrCodeNotFound, fmt.Sprintf("The requested %s was not found.", resource),
		http.StatusNotFound), "resource", resource)
	if id != "" {
		e.WithDetail("id", id)
	}
	return e
}

// Conflict reports work for the same key that is already in flight.
func Conflict(reason string) *AppError {
	return New(ErrCodeConflict, reason, http.StatusConflict)
}

func InvalidInput(field, reason string) *AppError {
	e := New(ErrCodeInvalidInput, "Invalid input: "+reason, http.StatusBadRequest)
	e.Details = map[string]any{}
	if field != "" {
		e.WithDetail("field", field)
	}
	return e
}

func Validation(message string) *AppError {
	return New(ErrCodeInvalidInput, message, http.StatusBadRequest)
}

func MissingField(field string) *AppError {
	return withDetails(New(ErrCodeMissingField, "Missing required field: "+field,
		http.StatusBadRequest), "field", field)
}

// InvalidFormat reports data that could not be parsed, typically a
// malformed backend response.
func InvalidFormat(field, expectedFormat string) *AppError {
	return withDetails(New(ErrCodeInvalidFormat,
		fmt.Sprintf("Invalid format for %s. Expected: %s", field, expectedFormat),
		http.StatusBadRequest), "field", field, "expected_format", expectedFormat)
}

// UnsupportedFile reports an upload the file processor will not ingest.
// Retrying cannot help; the user has to pick another file.
func UnsupportedFile(name, reason string) *AppError {
	return withDetails(New(ErrCodeUnsupportedFile,
		fmt.Sprintf("The file %s cannot be processed: %s", name, reason),
		http.StatusUnprocessableEntity), "file", name)
}

// Internal wraps an unexpected failure.
func Internal(cause error) *AppError {
	return New(ErrCodeInternal, "An unexpected error occurred. Please try again.",
		http.StatusInternalServerError).WithCause(cause)
}

// ExternalServiceError wraps an error response from the backend.
func ExternalServiceError(service string, cause error) *AppError {
	return withDetails(New(ErrCodeExternalService,
		fmt.Sprintf("The %s service encountered an error. Please try again.", service),
		http.StatusBadGateway), "service", service).WithCause(cause)
}
