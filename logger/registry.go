package logger

import (
	"sync"
)

// Component names used across recoverykit.
const (
	ComponentRecovery = "recovery"
	ComponentHealth   = "health"
	ComponentOllama   = "ollama"
	ComponentModels   = "models"
	ComponentTitle    = "title"
	ComponentStream   = "stream"
	ComponentFiles    = "files"
	ComponentChat     = "chat"
	ComponentServer   = "server"
)

// registry is the named-logger registry.
var registry = &loggerRegistry{
	loggers: make(map[string]*Logger),
}

type loggerRegistry struct {
	mu      sync.RWMutex
	loggers map[string]*Logger
}

// Register stores a named logger in the registry.
func Register(name string, l *Logger) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.loggers[name] = l
}

// Get retrieves a named logger. If the name is not registered it returns the
// global logger tagged with the requested component name.
func Get(name string) *Logger {
	registry.mu.RLock()
	l, ok := registry.loggers[name]
	registry.mu.RUnlock()
	if ok {
		return l
	}
	return GetGlobalLogger().WithComponent(name)
}

// RegisterDefaults registers a component logger derived from the global
// logger for every recoverykit component. Call it after Init().
func RegisterDefaults() {
	for _, name := range []string{
		ComponentRecovery, ComponentHealth, ComponentOllama, ComponentModels,
		ComponentTitle, ComponentStream, ComponentFiles, ComponentChat, ComponentServer,
	} {
		Register(name, GetGlobalLogger().WithComponent(name))
	}
}

// ForComponent tags l with a component name. A nil l resolves through the
// registry, so RegisterDefaults decides what library callers get.
func ForComponent(l *Logger, name string) *Logger {
	if l == nil {
		return Get(name)
	}
	return l.WithComponent(name)
}
