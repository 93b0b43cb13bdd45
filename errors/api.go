package errors

import (
	"fmt"
	"net/http"
)

// APIError is returned when the backend answers with a non-success HTTP status.
type APIError struct {
	Service    string
	Operation  string
	StatusCode int
	Body       string
}

// Error returns the string representation of the error.
func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Service, e.Operation, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s %s: unexpected status %d", e.Service, e.Operation, e.StatusCode)
}

// Kind maps the status code onto the failure taxonomy.
func (e *APIError) Kind() Kind {
	switch e.StatusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return KindTimeout
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return KindConnection
	default:
		return KindAPI
	}
}

// Retryable reports whether repeating the request can succeed.
func (e *APIError) Retryable() bool {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return false
	}
	return e.Kind().Retryable()
}
