package health

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kbukum/recoverykit/logger"
	"github.com/kbukum/recoverykit/observability"
	"github.com/kbukum/recoverykit/recovery"
)

var (
	serviceChat      = recovery.ServiceState.String()
	serviceStreaming = recovery.ServiceStreaming.String()
	serviceFiles     = recovery.ServiceFileProcessing.String()
	serviceTitles    = recovery.ServiceTitleGeneration.String()
)

// Coordinator aggregates registry state with service self-checks and
// orchestrates a coordinated reset.
type Coordinator struct {
	reg          *recovery.Registry
	svc          Services
	log          *logger.Logger
	metrics      *observability.Metrics
	checkTimeout time.Duration
	now          func() time.Time
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

// WithMetrics records resets into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithCheckTimeout bounds each self-check. A check that does not answer in
// time counts as invalid.
func WithCheckTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.checkTimeout = d }
}

// NewCoordinator creates a coordinator over reg and the given services.
func NewCoordinator(reg *recovery.Registry, svc Services, opts ...Option) *Coordinator {
	c := &Coordinator{
		reg:          reg,
		svc:          svc,
		checkTimeout: 2 * time.Second,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logger.ForComponent(c.log, logger.ComponentHealth)

	if svc.Chat != nil {
		reg.Track(serviceChat)
	}
	if svc.Streaming != nil {
		reg.Track(serviceStreaming)
	}
	if svc.Files != nil {
		reg.Track(serviceFiles)
	}
	if svc.Titles != nil {
		reg.Track(serviceTitles)
	}
	return c
}

type selfCheck struct {
	service string
	fn      func(ctx context.Context) bool
}

func (c *Coordinator) selfChecks() []selfCheck {
	var checks []selfCheck
	if c.svc.Chat != nil {
		checks = append(checks, selfCheck{serviceChat, c.svc.Chat.ValidateState})
	}
	if c.svc.Streaming != nil {
		checks = append(checks, selfCheck{serviceStreaming, c.svc.Streaming.ValidateStreamingState})
	}
	return checks
}

// validate runs every self-check concurrently.
func (c *Coordinator) validate(ctx context.Context) StateValidation {
	checks := c.selfChecks()
	results := make([]bool, len(checks))

	g, gctx := errgroup.WithContext(ctx)
	for i, chk := range checks {
		g.Go(func() error {
			results[i] = c.runCheck(gctx, chk)
			return nil
		})
	}
	_ = g.Wait()

	out := StateValidation{AllValid: true, Services: make(map[string]bool, len(checks))}
	for i, chk := range checks {
		out.Services[chk.service] = results[i]
		out.AllValid = out.AllValid && results[i]
	}
	return out
}

func (c *Coordinator) runCheck(ctx context.Context, chk selfCheck) bool {
	ctx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()

	done := make(chan bool, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.log.Error("self-check panicked", logger.Fields(logger.FieldTarget, chk.service, "panic", fmt.Sprint(r)))
				done <- false
			}
		}()
		done <- chk.fn(ctx)
	}()

	select {
	case ok := <-done:
		return ok
	case <-ctx.Done():
		c.log.Warn("self-check timed out", logger.Fields(logger.FieldTarget, chk.service))
		return false
	}
}

// ValidateAllServiceStates reports whether every service self-check passes.
// It changes nothing.
func (c *Coordinator) ValidateAllServiceStates(ctx context.Context) bool {
	return c.validate(ctx).AllValid
}

// snapshot is one consistent view of the registry and the self-checks.
type snapshot struct {
	validation StateValidation
	system     recovery.SystemHealth
	services   map[string]recovery.ServiceHealth
	errors     map[string]recovery.ErrorState
}

// observe runs the self-checks once and derives every health value from
// that single run. Verdicts are never written back to the registry.
func (c *Coordinator) observe(ctx context.Context) snapshot {
	v := c.validate(ctx)
	states := c.reg.ErrorStates()
	services := c.reg.HealthSnapshot()
	for service, ok := range v.Services {
		if _, failing := states[service]; failing {
			continue
		}
		if ok {
			services[service] = recovery.HealthHealthy
		} else {
			services[service] = recovery.HealthDegraded
		}
	}
	return snapshot{
		validation: v,
		system:     c.reg.SystemHealth(v.Services),
		services:   services,
		errors:     states,
	}
}

func (s snapshot) status() map[string]any {
	return map[string]any{
		"system_health": s.system,
		"active_errors": len(s.errors),
		"errors":        s.errors,
	}
}

// ResetAllServiceStates cancels in-flight work in every service before
// resetting any state, then clears the registry. Every step runs even if an
// earlier one fails.
func (c *Coordinator) ResetAllServiceStates(ctx context.Context) []StepResult {
	ctx, span := observability.StartSpan(ctx, observability.SpanResetAll)
	defer span.End()

	log := c.log.WithContext(ctx)
	log.Info("resetting all service state")

	var steps []StepResult
	run := func(name string, fn func(ctx context.Context) error) {
		res := c.step(ctx, name, fn)
		if !res.OK {
			log.Warn("reset step failed", logger.Fields("step", name, logger.FieldError, res.Error))
		}
		steps = append(steps, res)
	}

	if s := c.svc.Streaming; s != nil {
		run("cancel_streaming", s.CancelStreaming)
	}
	if f := c.svc.Files; f != nil {
		run("clear_file_processing", f.ClearProcessingState)
	}
	if t := c.svc.Titles; t != nil {
		run("clear_title_generation", t.ClearAllTitleGenerationState)
	}
	if ch := c.svc.Chat; ch != nil {
		run("reset_chat_state", ch.ResetState)
	}
	if s := c.svc.Streaming; s != nil {
		run("reset_streaming_state", s.ResetStreamingState)
	}
	run("clear_registry_errors", func(context.Context) error {
		c.reg.ClearAllErrors()
		return nil
	})

	c.metrics.RecordReset(ctx)
	c.metrics.RecordActiveErrors(ctx, c.reg.ErrorCount())
	log.Info("service state reset complete", logger.Fields("steps", len(steps)))
	return steps
}

func (c *Coordinator) step(ctx context.Context, name string, fn func(ctx context.Context) error) (res StepResult) {
	res.Step = name
	defer func() {
		if r := recover(); r != nil {
			res.OK = false
			res.Error = fmt.Sprintf("panic: %v", r)
		}
	}()
	if err := fn(ctx); err != nil {
		res.Error = err.Error()
		return res
	}
	res.OK = true
	return res
}

// RecoverService forces a fresh recovery attempt for name. It succeeds
// trivially when the service has no error, and otherwise reports whether a
// strategy ran.
func (c *Coordinator) RecoverService(ctx context.Context, name string) bool {
	ctx, span := observability.StartSpan(ctx, observability.SpanRecoverService)
	defer span.End()

	res, had := c.reg.RecoverService(ctx, name)
	if !had {
		return true
	}
	fields := logger.Fields(logger.FieldTarget, name, "resolved", res != nil)
	if res != nil {
		fields["success"] = res.Success
		fields["message"] = res.Message
	}
	c.log.WithContext(ctx).Info("manual recovery attempted", fields)
	return res != nil
}

// ErrorRecoveryStatus summarizes the registry, with the system verdict
// taken from a fresh run of the self-checks.
func (c *Coordinator) ErrorRecoveryStatus(ctx context.Context) map[string]any {
	return c.observe(ctx).status()
}

// ServiceHealthStatus runs the self-checks and returns per-service health.
func (c *Coordinator) ServiceHealthStatus(ctx context.Context) map[string]any {
	snap := c.observe(ctx)
	return map[string]any{
		"system_health": snap.system,
		"services":      snap.services,
		"state_valid":   snap.validation.AllValid,
	}
}

// DetailedHealthReport builds a full report. Recommendations are derived
// from the other fields of the same report.
func (c *Coordinator) DetailedHealthReport(ctx context.Context) Report {
	ctx, span := observability.StartSpan(ctx, observability.SpanHealthReport)
	defer span.End()

	snap := c.observe(ctx)
	return Report{
		ID:              uuid.NewString(),
		Timestamp:       c.now().UTC(),
		OverallHealth:   snap.system,
		Services:        snap.services,
		ErrorRecovery:   snap.status(),
		StateValidation: snap.validation,
		Recommendations: recommendations(len(snap.errors), snap.services, snap.validation.AllValid),
	}
}

// ClearAllServiceErrors drops every stored error.
func (c *Coordinator) ClearAllServiceErrors() {
	c.reg.ClearAllErrors()
	c.log.Info("all service errors cleared")
}
