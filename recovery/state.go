package recovery

import (
	"time"

	"github.com/kbukum/recoverykit/errors"
)

// ServiceHealth is the health of one service.
type ServiceHealth string

const (
	HealthHealthy   ServiceHealth = "healthy"
	HealthDegraded  ServiceHealth = "degraded"
	HealthUnhealthy ServiceHealth = "unhealthy"
	HealthUnknown   ServiceHealth = "unknown"
)

// SystemHealth is the aggregate verdict over every service. It is never
// stored; the registry recomputes it on each call.
type SystemHealth string

const (
	SystemHealthy  SystemHealth = "healthy"
	SystemGood     SystemHealth = "good"
	SystemDegraded SystemHealth = "degraded"
	SystemCritical SystemHealth = "critical"
)

// ErrorState is the most recent unresolved failure of a service. A service
// has at most one; a newer failure replaces it.
type ErrorState struct {
	Service   string          `json:"service"`
	Kind      errors.Kind     `json:"kind"`
	Severity  errors.Severity `json:"severity"`
	Message   string          `json:"message"`
	Operation string          `json:"operation"`
	Timestamp time.Time       `json:"timestamp"`
	CanRetry  bool            `json:"can_retry"`
	Context   map[string]any  `json:"context,omitempty"`

	cause error
	seq   uint64
}

// IsRecent reports whether the failure happened less than window before now.
func (s ErrorState) IsRecent(now time.Time, window time.Duration) bool {
	return now.Sub(s.Timestamp) < window
}

// Cause returns the raw error the state was classified from.
func (s ErrorState) Cause() error { return s.cause }

// Result is the outcome of one recovery strategy run.
type Result struct {
	Success  bool           `json:"success"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata"`
}

// Succeeded builds a successful result. md may be nil.
func Succeeded(msg string, md map[string]any) Result {
	return Result{Success: true, Message: msg, Metadata: nonNil(md)}
}

// Failed builds a failed result. md may be nil.
func Failed(msg string, md map[string]any) Result {
	return Result{Success: false, Message: msg, Metadata: nonNil(md)}
}

func nonNil(md map[string]any) map[string]any {
	if md == nil {
		return map[string]any{}
	}
	return md
}
