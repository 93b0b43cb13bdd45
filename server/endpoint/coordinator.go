package endpoint

import (
	"context"

	"github.com/kbukum/recoverykit/health"
)

// Coordinator is the part of *health.Coordinator the handlers use.
type Coordinator interface {
	ServiceHealthStatus(ctx context.Context) map[string]any
	DetailedHealthReport(ctx context.Context) health.Report
	ErrorRecoveryStatus(ctx context.Context) map[string]any
	ResetAllServiceStates(ctx context.Context) []health.StepResult
	RecoverService(ctx context.Context, name string) bool
	ClearAllServiceErrors()
}
