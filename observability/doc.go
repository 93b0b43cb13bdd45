// Package observability wires OpenTelemetry tracing and metrics for
// recovery operations.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, cfg.TracerConfig())
//	defer tp.Shutdown(ctx)
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, cfg.MeterConfig())
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("recoverykit"))
//	metrics.RecordRecovery(ctx, "model", "model_loading", true, elapsed)
//
// Operations:
//
//	ctx, op := observability.StartOperation(ctx, metrics, "model", "list_models")
//	defer func() { op.End(ctx, err) }()
package observability
