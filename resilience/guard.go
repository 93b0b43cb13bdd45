package resilience

import (
	"sync"
)

// Guard tracks in-flight keys so that at most one piece of work runs per key.
// A duplicate request does not wait for or join the running work; it gets
// its fallback immediately.
type Guard struct {
	mu       sync.Mutex
	inFlight map[string]uint64
	next     uint64
}

// NewGuard creates an empty guard.
func NewGuard() *Guard {
	return &Guard{inFlight: make(map[string]uint64)}
}

// TryAcquire marks key as in flight. It returns ok=false if the key is already
// held. The returned release func is idempotent and only clears the entry it
// created, so a Clear followed by a new acquisition is never undone by a
// stale release.
func (g *Guard) TryAcquire(key string) (release func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, held := g.inFlight[key]; held {
		return func() {}, false
	}
	g.next++
	token := g.next
	g.inFlight[key] = token

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			if g.inFlight[key] == token {
				delete(g.inFlight, key)
			}
		})
	}, true
}

// InFlight reports whether key is currently held.
func (g *Guard) InFlight(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, held := g.inFlight[key]
	return held
}

// Len returns the number of keys currently held.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inFlight)
}

// Clear drops every in-flight key.
func (g *Guard) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inFlight = make(map[string]uint64)
}

// SingleFlight runs fn under key. If key is already in flight it returns
// fallback() without calling fn. The key is released on every exit path,
// including a panic in fn.
func SingleFlight[T any](g *Guard, key string, fn func() (T, error), fallback func() T) (T, error) {
	release, ok := g.TryAcquire(key)
	if !ok {
		return fallback(), nil
	}
	defer release()
	return fn()
}
