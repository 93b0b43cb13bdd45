package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/recoverykit/errors"
)

// WaitConfig bounds a dependency wait.
type WaitConfig struct {
	// Name identifies the dependency in the timeout error.
	Name string
	// Interval is how often the predicate is polled.
	Interval time.Duration
	// Timeout is the ceiling after which the wait fails.
	Timeout time.Duration
}

// DefaultWaitConfig polls every 100ms for up to 10s.
func DefaultWaitConfig(name string) WaitConfig {
	return WaitConfig{
		Name:     name,
		Interval: 100 * time.Millisecond,
		Timeout:  10 * time.Second,
	}
}

// WaitFor polls busy until it reports false. It returns a timeout AppError if
// busy is still true after cfg.Timeout, or the context error if ctx ends first.
func WaitFor(ctx context.Context, cfg WaitConfig, busy func() bool) error {
	if cfg.Interval <= 0 {
		cfg.Interval = 100 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	if !busy() {
		return nil
	}

	deadline := time.NewTimer(cfg.Timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			if !busy() {
				return nil
			}
			return errors.Timeout("wait:"+cfg.Name).
				WithDetail("timeout", cfg.Timeout.String()).
				WithCause(fmt.Errorf("%s still initializing after %s", cfg.Name, cfg.Timeout))
		case <-ticker.C:
			if !busy() {
				return nil
			}
		}
	}
}
