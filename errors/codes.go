package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Connection/Availability errors (retryable)
const (
	// ErrCodeServiceUnavailable indicates the backend is temporarily unavailable.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeConnectionFailed indicates a failed connection to the backend.
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeRateLimited indicates the backend is throttling requests.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
)

// Input errors (never retried)
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
	// ErrCodeInvalidFormat indicates data could not be parsed.
	ErrCodeInvalidFormat ErrorCode = "INVALID_FORMAT"
	// ErrCodeUnsupportedFile indicates an ingested file type is not supported.
	ErrCodeUnsupportedFile ErrorCode = "UNSUPPORTED_FILE"
)

// Backend API errors
const (
	// ErrCodeExternalService indicates the backend returned an error.
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	// ErrCodeNotFound indicates the backend does not know the requested resource (e.g. a model).
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeConflict indicates work for the same key is already in flight.
	ErrCodeConflict ErrorCode = "CONFLICT"
)

// Internal errors
const (
	// ErrCodeInternal indicates an unexpected internal failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeConnectionFailed:   true,
	ErrCodeTimeout:            true,
	ErrCodeRateLimited:        true,
	ErrCodeExternalService:    true,
	ErrCodeInternal:           true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

// KindForCode maps an error code onto the failure taxonomy.
func KindForCode(code ErrorCode) Kind {
	switch code {
	case ErrCodeServiceUnavailable, ErrCodeConnectionFailed:
		return KindConnection
	case ErrCodeTimeout:
		return KindTimeout
	case ErrCodeInvalidInput, ErrCodeMissingField, ErrCodeUnsupportedFile:
		return KindValidation
	case ErrCodeInvalidFormat:
		return KindFormat
	case ErrCodeRateLimited, ErrCodeExternalService, ErrCodeNotFound, ErrCodeConflict:
		return KindAPI
	default:
		return KindUnknown
	}
}
