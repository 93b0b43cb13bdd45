package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Operation tracks one traced, metered service operation.
type Operation struct {
	Service   string
	Name      string
	StartTime time.Time

	span    trace.Span
	metrics *Metrics
}

// StartOperation opens a span for the operation. metrics may be nil.
func StartOperation(ctx context.Context, metrics *Metrics, service, name string) (context.Context, *Operation) {
	ctx, span := StartSpan(ctx, SpanServiceOperation, trace.WithAttributes(
		attribute.String(AttrService, service),
		attribute.String(AttrOperation, name),
	))
	return ctx, &Operation{
		Service:   service,
		Name:      name,
		StartTime: time.Now(),
		span:      span,
		metrics:   metrics,
	}
}

// Retry marks a retry on the span and in metrics.
func (op *Operation) Retry(ctx context.Context, attempt int) {
	op.span.AddEvent("retry", trace.WithAttributes(attribute.Int(AttrAttempts, attempt)))
	op.metrics.RecordRetry(ctx, op.Service, op.Name)
}

// End closes the span and records the outcome. A nil err means success.
func (op *Operation) End(ctx context.Context, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		SetSpanError(trace.ContextWithSpan(ctx, op.span), err)
	}
	op.span.SetAttributes(attribute.String(AttrOutcome, status))
	op.span.End()
	op.metrics.RecordOperation(ctx, op.Service, op.Name, status, op.Duration())
}

// Duration returns the elapsed time since operation start.
func (op *Operation) Duration() time.Duration {
	return time.Since(op.StartTime)
}
