package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net"
	"os"
	"strings"
	"syscall"
)

// Classification is the outcome of classifying a raw failure.
type Classification struct {
	Kind      Kind
	Severity  Severity
	Retryable bool
	// Message is a user-facing description; raw error text never ends up here.
	Message string
}

var friendlyMessages = map[Kind]string{
	KindConnection: "Unable to connect to the model server. Please check that it is running.",
	KindTimeout:    "The request took too long. Please try again.",
	KindValidation: "The request was rejected as invalid. Please check your input.",
	KindFormat:     "The response could not be read. The data may be malformed.",
	KindAPI:        "The model server returned an error. Please try again.",
	KindUnknown:    "An unexpected error occurred. Please try again.",
}

// FriendlyMessage returns the default user-facing message for a kind.
func FriendlyMessage(k Kind) string {
	if msg, ok := friendlyMessages[k]; ok {
		return msg
	}
	return friendlyMessages[KindUnknown]
}

// Classify maps err onto the failure taxonomy. It is deterministic for a
// given error value and never fails: unrecognized shapes are unknown and
// retryable.
func Classify(err error) Classification {
	if err == nil {
		return newClassification(KindUnknown, SeverityLow, false, FriendlyMessage(KindUnknown))
	}

	if appErr, ok := AsAppError(err); ok {
		kind := appErr.Kind()
		msg := appErr.Message
		if msg == "" {
			msg = FriendlyMessage(kind)
		}
		return newClassification(kind, severityFor(kind, 0), appErr.Retryable && kind.Retryable(), msg)
	}

	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		kind := apiErr.Kind()
		return newClassification(kind, severityFor(kind, apiErr.StatusCode), apiErr.Retryable(), FriendlyMessage(kind))
	}

	if stderrors.Is(err, context.Canceled) {
		return newClassification(KindUnknown, SeverityLow, false, "The operation was cancelled.")
	}

	kind := kindOf(err)
	return newClassification(kind, severityFor(kind, 0), kind.Retryable(), FriendlyMessage(kind))
}

// IsRetryable reports whether the classifier considers err worth retrying.
func IsRetryable(err error) bool {
	return Classify(err).Retryable
}

func newClassification(kind Kind, sev Severity, retryable bool, msg string) Classification {
	return Classification{Kind: kind, Severity: sev, Retryable: retryable, Message: msg}
}

func kindOf(err error) Kind {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, os.ErrDeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	if stderrors.Is(err, syscall.ECONNREFUSED) || stderrors.Is(err, syscall.ECONNRESET) ||
		stderrors.Is(err, syscall.EPIPE) || stderrors.Is(err, io.ErrUnexpectedEOF) {
		return KindConnection
	}
	var opErr *net.OpError
	if stderrors.As(err, &opErr) {
		return KindConnection
	}
	var dnsErr *net.DNSError
	if stderrors.As(err, &dnsErr) {
		return KindConnection
	}

	var syntaxErr *json.SyntaxError
	if stderrors.As(err, &syntaxErr) {
		return KindFormat
	}
	var typeErr *json.UnmarshalTypeError
	if stderrors.As(err, &typeErr) {
		return KindFormat
	}

	return kindFromMessage(err.Error())
}

// kindFromMessage is the last resort for errors that carry no type information.
func kindFromMessage(msg string) Kind {
	msg = strings.ToLower(msg)
	switch {
	case containsAny(msg, "connection refused", "connection reset", "no such host", "network is unreachable", "broken pipe"):
		return KindConnection
	case containsAny(msg, "timeout", "timed out", "deadline exceeded"):
		return KindTimeout
	case containsAny(msg, "invalid", "validation", "not allowed"):
		return KindValidation
	case containsAny(msg, "malformed", "unmarshal", "cannot parse", "unexpected end of json"):
		return KindFormat
	default:
		return KindUnknown
	}
}

func severityFor(kind Kind, status int) Severity {
	switch kind {
	case KindConnection:
		return SeverityHigh
	case KindValidation:
		return SeverityLow
	case KindAPI:
		if status >= 500 {
			return SeverityHigh
		}
		return SeverityMedium
	default:
		return SeverityMedium
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
