package recovery

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type fakeBackend struct {
	ok    bool
	delay time.Duration
	calls atomic.Int32
}

func (b *fakeBackend) TestConnection(ctx context.Context) bool {
	b.calls.Add(1)
	if b.delay > 0 {
		select {
		case <-time.After(b.delay):
		case <-ctx.Done():
			return false
		}
	}
	return b.ok
}

func (b *fakeBackend) ListModels(context.Context) ([]string, error) { return nil, nil }

// fakeModels returns the next entry of lists on every refresh.
type fakeModels struct {
	mu      sync.Mutex
	lists   [][]string
	current []string
	calls   int
}

func (m *fakeModels) RefreshModels(context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls < len(m.lists) {
		m.current = m.lists[m.calls]
	}
	m.calls++
	return len(m.current) > 0, nil
}

func (m *fakeModels) HasModels() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.current) > 0
}

func (m *fakeModels) AvailableModels() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.current...)
}

// scripted is a resolver that always returns the same strategy.
type scripted struct{ s Strategy }

func (r scripted) ForService(string) Strategy { return r.s }
