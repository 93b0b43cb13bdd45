package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/recoverykit/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// InitMeter initializes the OpenTelemetry meter provider and installs it
// globally. The returned provider should be shut down on application exit.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the recovery instruments. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	errorTotal        metric.Int64Counter
	recoveryTotal     metric.Int64Counter
	recoveryDuration  metric.Float64Histogram
	operationTotal    metric.Int64Counter
	operationDuration metric.Float64Histogram
	retryTotal        metric.Int64Counter
	resetTotal        metric.Int64Counter
	activeErrors      metric.Int64Gauge
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)

	if m.errorTotal, err = meter.Int64Counter("recovery.errors.total",
		metric.WithDescription("Service errors reported to the registry, by kind and severity"),
	); err != nil {
		return nil, fmt.Errorf("creating recovery.errors.total counter: %w", err)
	}

	if m.recoveryTotal, err = meter.Int64Counter("recovery.attempts.total",
		metric.WithDescription("Recovery strategy runs, by strategy and outcome"),
	); err != nil {
		return nil, fmt.Errorf("creating recovery.attempts.total counter: %w", err)
	}

	if m.recoveryDuration, err = meter.Float64Histogram("recovery.duration",
		metric.WithDescription("Duration of recovery strategy runs in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating recovery.duration histogram: %w", err)
	}

	if m.operationTotal, err = meter.Int64Counter("recovery.operations.total",
		metric.WithDescription("Service operations run through the registry, by status"),
	); err != nil {
		return nil, fmt.Errorf("creating recovery.operations.total counter: %w", err)
	}

	if m.operationDuration, err = meter.Float64Histogram("recovery.operation.duration",
		metric.WithDescription("Duration of service operations including retries in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating recovery.operation.duration histogram: %w", err)
	}

	if m.retryTotal, err = meter.Int64Counter("recovery.retries.total",
		metric.WithDescription("Retries performed by the retry executor"),
	); err != nil {
		return nil, fmt.Errorf("creating recovery.retries.total counter: %w", err)
	}

	if m.resetTotal, err = meter.Int64Counter("recovery.resets.total",
		metric.WithDescription("Coordinated resets of all service state"),
	); err != nil {
		return nil, fmt.Errorf("creating recovery.resets.total counter: %w", err)
	}

	if m.activeErrors, err = meter.Int64Gauge("recovery.errors.active",
		metric.WithDescription("Services currently carrying an unresolved error"),
	); err != nil {
		return nil, fmt.Errorf("creating recovery.errors.active gauge: %w", err)
	}

	return &m, nil
}

// RecordError records an error reported for a service.
func (m *Metrics) RecordError(ctx context.Context, service, kind, severity string) {
	if m == nil {
		return
	}
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("kind", kind),
		attribute.String("severity", severity),
	))
}

// RecordRecovery records one strategy run.
func (m *Metrics) RecordRecovery(ctx context.Context, service, strategy string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.recoveryTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("strategy", strategy),
		attribute.String("outcome", outcome(success)),
	))
	m.recoveryDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("strategy", strategy),
	))
}

// RecordOperation records a service operation execution.
func (m *Metrics) RecordOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.operationTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
	m.operationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("operation", operation),
	))
}

// RecordRetry records one retry of a service operation.
func (m *Metrics) RecordRetry(ctx context.Context, service, operation string) {
	if m == nil {
		return
	}
	m.retryTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("operation", operation),
	))
}

// RecordReset records a coordinated reset.
func (m *Metrics) RecordReset(ctx context.Context) {
	if m == nil {
		return
	}
	m.resetTotal.Add(ctx, 1)
}

// RecordActiveErrors sets the number of services carrying an error.
func (m *Metrics) RecordActiveErrors(ctx context.Context, n int) {
	if m == nil {
		return
	}
	m.activeErrors.Record(ctx, int64(n))
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
