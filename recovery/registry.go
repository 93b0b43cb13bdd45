package recovery

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/recoverykit/errors"
	"github.com/kbukum/recoverykit/logger"
	"github.com/kbukum/recoverykit/observability"
)

// Registry owns the per-service error states and health. It is safe for
// concurrent use; readers get copies.
type Registry struct {
	mu     sync.RWMutex
	errors map[string]ErrorState
	// health holds recovery outcomes only; self-check verdicts are never
	// stored here.
	health  map[string]ServiceHealth
	tracked map[string]struct{}
	seq     uint64
	// epoch changes on every clear; recoveries started in an older epoch
	// do not write their outcome.
	epoch uint64

	resolver Resolver
	config   Config
	metrics  *observability.Metrics
	log      *logger.Logger
	now      func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithResolver sets the strategy resolver, usually a *Factory.
func WithResolver(r Resolver) Option {
	return func(reg *Registry) { reg.resolver = r }
}

// WithConfig sets the registry configuration.
func WithConfig(cfg Config) Option {
	return func(reg *Registry) { reg.config = cfg }
}

// WithMetrics records errors and recoveries into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(reg *Registry) { reg.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(reg *Registry) { reg.log = l }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		errors:  make(map[string]ErrorState),
		health:  make(map[string]ServiceHealth),
		tracked: make(map[string]struct{}),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.config.ApplyDefaults()
	r.log = logger.ForComponent(r.log, logger.ComponentRecovery)
	return r
}

// SetResolver replaces the strategy resolver. It lets services that report
// into the registry also be dependencies of the resolver.
func (r *Registry) SetResolver(res Resolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolver = res
}

// Config returns the registry configuration.
func (r *Registry) Config() Config {
	return r.config
}

// HandleServiceError classifies err, records it as the service's error
// state and runs the service's recovery strategy. A successful recovery
// clears the state and marks the service healthy; a failed one keeps it and
// marks the service unhealthy. It returns nil when no strategy resolves.
func (r *Registry) HandleServiceError(ctx context.Context, service string, err error, operation string, details map[string]any) *Result {
	cls := errors.Classify(err)

	r.mu.Lock()
	r.seq++
	state := ErrorState{
		Service:   service,
		Kind:      cls.Kind,
		Severity:  cls.Severity,
		Message:   cls.Message,
		Operation: operation,
		Timestamp: r.now(),
		CanRetry:  cls.Retryable,
		Context:   maps.Clone(details),
		cause:     err,
		seq:       r.seq,
	}
	r.errors[service] = state
	if _, ok := r.health[service]; !ok {
		r.health[service] = HealthUnknown
	}
	epoch := r.epoch
	active := len(r.errors)
	resolver := r.resolver
	r.mu.Unlock()

	r.metrics.RecordError(ctx, service, string(cls.Kind), cls.Severity.String())
	r.metrics.RecordActiveErrors(ctx, active)

	log := r.log.WithContext(ctx).WithFields(logger.Fields(
		logger.FieldTarget, service,
		logger.FieldOperation, operation,
		logger.FieldKind, string(cls.Kind),
		logger.FieldSeverity, cls.Severity.String(),
	))
	log.WithError(err).Warn("service error recorded")

	if resolver == nil {
		return nil
	}
	strategy := resolver.ForService(service)
	if strategy == nil {
		return nil
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanHandleError, trace.WithAttributes(
		attribute.String(observability.AttrService, service),
		attribute.String(observability.AttrKind, string(cls.Kind)),
		attribute.String(observability.AttrStrategy, Name(strategy)),
	))
	defer span.End()

	start := r.now()
	res := Recover(ctx, strategy, state)
	r.metrics.RecordRecovery(ctx, service, Name(strategy), res.Success, r.now().Sub(start))
	span.SetAttributes(attribute.Bool(observability.AttrOutcome, res.Success))

	applied := r.applyOutcome(service, state, epoch, res.Success)

	fields := logger.Fields(logger.FieldStrategy, Name(strategy), "applied", applied, "message", res.Message)
	if res.Success {
		log.Info("service recovered", fields)
	} else {
		log.Warn("service recovery failed", fields)
	}
	r.metrics.RecordActiveErrors(ctx, r.ErrorCount())
	return &res
}

// applyOutcome writes a recovery outcome unless the registry was cleared or
// the service failed again since state was recorded.
func (r *Registry) applyOutcome(service string, state ErrorState, epoch uint64, success bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.epoch != epoch {
		return false
	}
	current, ok := r.errors[service]
	if !ok || current.seq != state.seq {
		return false
	}
	if success {
		delete(r.errors, service)
		r.health[service] = HealthHealthy
	} else {
		r.health[service] = HealthUnhealthy
	}
	return true
}

// RecoverService re-runs recovery for the service's stored error. It
// returns (nil, false) when the service has no error.
func (r *Registry) RecoverService(ctx context.Context, service string) (*Result, bool) {
	state, ok := r.ServiceError(service)
	if !ok {
		return nil, false
	}
	cause := state.cause
	if cause == nil {
		cause = errors.New(errors.ErrCodeInternal, state.Message, 0)
	}
	return r.HandleServiceError(ctx, service, cause, state.Operation, state.Context), true
}

// ServiceHealth returns the health of service. A stored error makes the
// service at best degraded; a recent high-severity error makes it unhealthy.
func (r *Registry) ServiceHealth(service string) ServiceHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.serviceHealthLocked(service, r.now())
}

func (r *Registry) serviceHealthLocked(service string, now time.Time) ServiceHealth {
	h, reported := r.health[service]
	if state, ok := r.errors[service]; ok {
		if h == HealthUnhealthy {
			return HealthUnhealthy
		}
		if state.IsRecent(now, r.config.RecencyWindow) && state.Severity >= errors.SeverityHigh {
			return HealthUnhealthy
		}
		return HealthDegraded
	}
	if !reported {
		return HealthUnknown
	}
	return h
}

// SystemHealth derives the system verdict from the stored errors and the
// self-check results the caller gathered for this call: more than two
// services with an error is critical, any error is degraded, otherwise it
// depends on the share of passing self-checks (all: healthy, 80% or more:
// good). Nothing is stored; the same inputs always give the same verdict.
func (r *Registry) SystemHealth(selfChecks map[string]bool) SystemHealth {
	r.mu.RLock()
	n := len(r.errors)
	r.mu.RUnlock()

	switch {
	case n > 2:
		return SystemCritical
	case n >= 1:
		return SystemDegraded
	}

	var total, healthy int
	for _, ok := range selfChecks {
		total++
		if ok {
			healthy++
		}
	}
	switch {
	case healthy == total:
		return SystemHealthy
	case float64(healthy) >= 0.8*float64(total):
		return SystemGood
	default:
		return SystemDegraded
	}
}

// ErrorStates returns a snapshot of every stored error state.
func (r *Registry) ErrorStates() map[string]ErrorState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]ErrorState, len(r.errors))
	for k, v := range r.errors {
		v.Context = maps.Clone(v.Context)
		out[k] = v
	}
	return out
}

// ServiceError returns the stored error state of service.
func (r *Registry) ServiceError(service string) (ErrorState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.errors[service]
	state.Context = maps.Clone(state.Context)
	return state, ok
}

// ErrorCount returns the number of services with a stored error.
func (r *Registry) ErrorCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.errors)
}

// ClearAllErrors drops every stored error and the recovery outcomes that
// came from them; those services fall back to unknown but stay listed if
// they are tracked. Recoveries still running when it is called will not
// write their outcome. Calling it on an empty registry changes nothing.
func (r *Registry) ClearAllErrors() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for service := range r.errors {
		delete(r.health, service)
	}
	clear(r.errors)
	r.epoch++
}

// Track registers service so it is listed in status reports before it
// ever fails, and after its errors are cleared.
func (r *Registry) Track(service string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracked[service] = struct{}{}
}

// Services returns every known service name, sorted.
func (r *Registry) Services() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{}, len(r.tracked)+len(r.health)+len(r.errors))
	for s := range r.tracked {
		seen[s] = struct{}{}
	}
	for s := range r.health {
		seen[s] = struct{}{}
	}
	for s := range r.errors {
		seen[s] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// HealthSnapshot returns the health of every known service.
func (r *Registry) HealthSnapshot() map[string]ServiceHealth {
	services := r.Services()
	r.mu.RLock()
	defer r.mu.RUnlock()
	now := r.now()
	out := make(map[string]ServiceHealth, len(services))
	for _, s := range services {
		out[s] = r.serviceHealthLocked(s, now)
	}
	return out
}
