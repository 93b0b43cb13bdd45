package models

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/kbukum/recoverykit/logger"
	"github.com/kbukum/recoverykit/recovery"
	"github.com/kbukum/recoverykit/resilience"
)

// Lister lists the models installed on the backend.
type Lister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Manager caches the backend's model list. RefreshModels talks to the
// backend directly and is what the model recovery strategy calls;
// Load and Ensure go through the registry so failures are recovered.
type Manager struct {
	lister   Lister
	registry *recovery.Registry
	wait     resilience.WaitConfig
	log      *logger.Logger

	mu         sync.RWMutex
	models     []string
	refreshing int
	lastLoaded time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithWaitConfig bounds how long Ensure waits for an in-flight refresh.
func WithWaitConfig(cfg resilience.WaitConfig) Option {
	return func(m *Manager) { m.wait = cfg }
}

// NewManager creates a manager. reg may be nil, in which case Load does
// not report failures anywhere.
func NewManager(lister Lister, reg *recovery.Registry, opts ...Option) *Manager {
	m := &Manager{
		lister:   lister,
		registry: reg,
		wait:     resilience.DefaultWaitConfig("models"),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = logger.ForComponent(m.log, logger.ComponentModels)
	return m
}

// RefreshModels reloads the model list. It reports whether at least one
// model is available afterwards. On error the previous list is kept.
func (m *Manager) RefreshModels(ctx context.Context) (bool, error) {
	m.mu.Lock()
	m.refreshing++
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.refreshing--
		m.mu.Unlock()
	}()

	models, err := m.lister.ListModels(ctx)
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	m.models = slices.Clone(models)
	m.lastLoaded = time.Now()
	m.mu.Unlock()

	m.log.Debug("models refreshed", logger.Fields("count", len(models)))
	return len(models) > 0, nil
}

// Load refreshes the model list under the registry's retry and recovery
// policy for the model service.
func (m *Manager) Load(ctx context.Context) ([]string, error) {
	op := func(ctx context.Context) ([]string, error) {
		if _, err := m.RefreshModels(ctx); err != nil {
			return nil, err
		}
		return m.AvailableModels(), nil
	}
	if m.registry == nil {
		return op(ctx)
	}
	return recovery.ExecuteServiceOperation(ctx, m.registry, recovery.ServiceModel.String(), "load_models",
		m.registry.OperationOptions(), op)
}

// Ensure returns the model list, waiting for a refresh already in flight
// and loading the list if it is still empty.
func (m *Manager) Ensure(ctx context.Context) ([]string, error) {
	if err := resilience.WaitFor(ctx, m.wait, m.Refreshing); err != nil {
		return nil, err
	}
	if m.HasModels() {
		return m.AvailableModels(), nil
	}
	return m.Load(ctx)
}

// Has reports whether name is installed. A name without a tag matches its
// ":latest" variant.
func (m *Manager) Has(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Contains(m.models, name) || slices.Contains(m.models, name+":latest")
}

// HasModels reports whether any model is available.
func (m *Manager) HasModels() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.models) > 0
}

// AvailableModels returns a copy of the model list.
func (m *Manager) AvailableModels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.models)
}

// Refreshing reports whether a refresh is in flight.
func (m *Manager) Refreshing() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refreshing > 0
}

// LastLoaded returns when the list was last loaded successfully.
func (m *Manager) LastLoaded() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastLoaded
}
