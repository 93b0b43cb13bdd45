package errors

// Kind is the failure class used to pick retry and recovery behavior.
type Kind string

const (
	KindConnection Kind = "connection"
	KindTimeout    Kind = "timeout"
	KindValidation Kind = "validation"
	KindFormat     Kind = "format"
	KindAPI        Kind = "api"
	KindUnknown    Kind = "unknown"
)

// Retryable reports the default retryability of a kind. Validation and
// format failures are never retried automatically.
func (k Kind) Retryable() bool {
	switch k {
	case KindValidation, KindFormat:
		return false
	default:
		return true
	}
}

// Severity ranks how much a failure affects the service that raised it.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// MarshalText renders the severity by name in JSON reports.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
