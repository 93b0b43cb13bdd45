// Package recovery records per-service failures, runs recovery strategies
// for them and derives service and system health.
//
// A Registry is created by the composition root and passed to every service
// that reports errors:
//
//	factory := recovery.NewFactory(recovery.Dependencies{Backend: client, Models: manager})
//	reg := recovery.NewRegistry(recovery.WithResolver(factory))
//
//	models, err := recovery.ExecuteServiceOperation(ctx, reg, "model", "list_models",
//	    reg.OperationOptions(), client.ListModels)
//
// Strategies are a closed set of value types (Connection, ModelLoading,
// Streaming, FileProcessing, State, TitleGeneration, Composite) run through
// Recover, which turns panics and errors into failed Results.
package recovery
