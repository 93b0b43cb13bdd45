package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_New_Success(t *testing.T) {
	err := New(ErrCodeNotFound, "not found", http.StatusNotFound)
	if err.Code != ErrCodeNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeNotFound, err.Code)
	}
	if err.Message != "not found" {
		t.Errorf("expected message 'not found', got %q", err.Message)
	}
	if err.HTTPStatus != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, err.HTTPStatus)
	}
	if err.Retryable {
		t.Error("NOT_FOUND should not be retryable")
	}
}

func TestAppError_New_Retryable(t *testing.T) {
	err := New(ErrCodeTimeout, "timed out", http.StatusGatewayTimeout)
	if !err.Retryable {
		t.Error("TIMEOUT should be retryable")
	}
}

func TestAppError_NotFound_Success(t *testing.T) {
	err := NotFound("model", "llama3")
	if err.Details["resource"] != "model" {
		t.Errorf("expected resource=model, got %v", err.Details["resource"])
	}
	if err.Details["id"] != "llama3" {
		t.Errorf("expected id=llama3, got %v", err.Details["id"])
	}
	if err.Retryable {
		t.Error("NotFound should not be retryable")
	}
}

func TestAppError_NotFound_EmptyID(t *testing.T) {
	err := NotFound("model", "")
	if _, ok := err.Details["id"]; ok {
		t.Error("expected no 'id' key in details when id is empty")
	}
}

func TestAppError_WithCause_Chain(t *testing.T) {
	cause := fmt.Errorf("dial tcp: refused")
	err := ConnectionFailed("ollama").WithCause(cause)
	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}

func TestAppError_WithDetails_Merge(t *testing.T) {
	err := ServiceUnavailable("ollama").WithDetails(map[string]any{"attempt": 2})
	if err.Details["service"] != "ollama" {
		t.Errorf("expected service detail to be kept, got %v", err.Details["service"])
	}
	if err.Details["attempt"] != 2 {
		t.Errorf("expected attempt=2, got %v", err.Details["attempt"])
	}
}

func TestAppError_WithDetail_NilMap(t *testing.T) {
	err := RateLimited().WithDetail("retry_after", "5s")
	if err.Details["retry_after"] != "5s" {
		t.Errorf("expected retry_after detail, got %v", err.Details)
	}
}

func TestAppError_Error_Format(t *testing.T) {
	err := Timeout("list_models")
	if err.Error() != "TIMEOUT: The request took too long. Please try again." {
		t.Errorf("unexpected error string %q", err.Error())
	}
	withCause := Internal(fmt.Errorf("boom"))
	if got := withCause.Error(); got != "INTERNAL_ERROR: An unexpected error occurred. Please try again. (cause: boom)" {
		t.Errorf("unexpected error string %q", got)
	}
}

func TestAppError_Kind_Table(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want Kind
	}{
		{"connection", ConnectionFailed("ollama"), KindConnection},
		{"unavailable", ServiceUnavailable("ollama"), KindConnection},
		{"timeout", Timeout("op"), KindTimeout},
		{"invalid input", InvalidInput("name", "empty"), KindValidation},
		{"missing field", MissingField("model"), KindValidation},
		{"unsupported file", UnsupportedFile("a.exe", "binary"), KindValidation},
		{"invalid format", InvalidFormat("body", "json"), KindFormat},
		{"external", ExternalServiceError("ollama", nil), KindAPI},
		{"rate limited", RateLimited(), KindAPI},
		{"internal", Internal(nil), KindUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.err.Kind(); got != tc.want {
				t.Errorf("expected kind %s, got %s", tc.want, got)
			}
		})
	}
}

func TestErrorCode_IsRetryableCode_Table(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want bool
	}{
		{ErrCodeServiceUnavailable, true},
		{ErrCodeConnectionFailed, true},
		{ErrCodeTimeout, true},
		{ErrCodeRateLimited, true},
		{ErrCodeExternalService, true},
		{ErrCodeInvalidInput, false},
		{ErrCodeInvalidFormat, false},
		{ErrCodeNotFound, false},
		{ErrCodeConflict, false},
	}

	for _, tc := range tests {
		if got := IsRetryableCode(tc.code); got != tc.want {
			t.Errorf("IsRetryableCode(%s) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestAppError_ToResponse_Success(t *testing.T) {
	resp := InvalidInput("service", "unknown service").ToResponse()
	if resp.Error.Code != ErrCodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %s", resp.Error.Code)
	}
	if resp.Error.Details["field"] != "service" {
		t.Errorf("expected field=service, got %v", resp.Error.Details["field"])
	}
}

func TestAsAppError_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Internal(nil))
	got, ok := AsAppError(wrapped)
	if !ok {
		t.Fatal("expected AsAppError to succeed for wrapped AppError")
	}
	if got.Code != ErrCodeInternal {
		t.Errorf("expected INTERNAL_ERROR, got %s", got.Code)
	}
	if _, ok := AsAppError(fmt.Errorf("not an app error")); ok {
		t.Error("expected AsAppError to return false for non-AppError")
	}
	if !IsAppError(wrapped) {
		t.Error("expected IsAppError to be true")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil) != nil {
		t.Error("Wrap(nil) should return nil")
	}

	orig := NotFound("model", "1")
	if Wrap(orig) != orig {
		t.Error("Wrap should return the original AppError unchanged")
	}

	plain := fmt.Errorf("something broke")
	got := Wrap(plain)
	if got.Code != ErrCodeInternal {
		t.Errorf("expected INTERNAL_ERROR, got %s", got.Code)
	}
	if got.Cause != plain {
		t.Error("expected cause to be the original error")
	}
}

func TestAPIError_KindAndRetryable(t *testing.T) {
	tests := []struct {
		status    int
		kind      Kind
		retryable bool
	}{
		{http.StatusBadRequest, KindValidation, false},
		{http.StatusUnprocessableEntity, KindValidation, false},
		{http.StatusUnauthorized, KindAPI, false},
		{http.StatusNotFound, KindAPI, false},
		{http.StatusGatewayTimeout, KindTimeout, true},
		{http.StatusServiceUnavailable, KindConnection, true},
		{http.StatusInternalServerError, KindAPI, true},
	}

	for _, tc := range tests {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			err := &APIError{Service: "ollama", Operation: "list_models", StatusCode: tc.status}
			if err.Kind() != tc.kind {
				t.Errorf("expected kind %s, got %s", tc.kind, err.Kind())
			}
			if err.Retryable() != tc.retryable {
				t.Errorf("expected retryable=%v, got %v", tc.retryable, err.Retryable())
			}
		})
	}
}

func TestSeverity_String(t *testing.T) {
	if SeverityCritical.String() != "critical" {
		t.Errorf("unexpected %s", SeverityCritical)
	}
	if Severity(42).String() != "unknown" {
		t.Errorf("unexpected %s", Severity(42))
	}
	b, _ := SeverityHigh.MarshalText()
	if string(b) != "high" {
		t.Errorf("expected high, got %s", b)
	}
}

func TestAppError_IsMatchesCode(t *testing.T) {
	err := fmt.Errorf("stream: %w", RateLimited().WithDetail("limit", 4))
	if !stderrors.Is(err, RateLimited()) {
		t.Error("expected errors.Is to match RATE_LIMITED by code")
	}
	if stderrors.Is(err, Timeout("x")) {
		t.Error("expected different codes not to match")
	}
}

func TestConstructors_Retryability(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want bool
	}{
		{"service unavailable", ServiceUnavailable("ollama"), true},
		{"connection failed", ConnectionFailed("ollama"), true},
		{"rate limited", RateLimited(), true},
		{"internal", Internal(nil), true},
		{"external", ExternalServiceError("ollama", nil), true},
		{"conflict", Conflict("busy"), false},
		{"missing field", MissingField("name"), false},
		{"invalid format", InvalidFormat("body", "json"), false},
		{"unsupported file", UnsupportedFile("a.exe", "bad extension"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Retryable != tt.want {
				t.Errorf("expected retryable=%v, got %v", tt.want, tt.err.Retryable)
			}
		})
	}
}
