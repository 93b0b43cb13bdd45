package recovery

import "context"

// ConnectionChecker reports whether the inference backend is reachable.
type ConnectionChecker interface {
	TestConnection(ctx context.Context) bool
}

// Backend is the inference backend client.
type Backend interface {
	ConnectionChecker
	ListModels(ctx context.Context) ([]string, error)
}

// ModelRefresher reloads the list of available models.
type ModelRefresher interface {
	RefreshModels(ctx context.Context) (bool, error)
	HasModels() bool
	AvailableModels() []string
}

// ResetFunc resets a service's own state.
type ResetFunc func(ctx context.Context) error

// Resolver picks the strategy used to recover a named service.
type Resolver interface {
	ForService(name string) Strategy
}
