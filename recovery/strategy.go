package recovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kbukum/recoverykit/errors"
	"github.com/kbukum/recoverykit/resilience"
)

// Strategy is a recovery procedure. The set of strategies is closed: the
// variants below are the only implementations and Recover dispatches on them.
type Strategy interface {
	strategyName() string
}

// Connection succeeds if the backend answers its connectivity check within Timeout.
type Connection struct {
	Checker ConnectionChecker
	Timeout time.Duration
}

// ModelLoading refreshes the model list up to MaxAttempts times, waiting
// LinearBackoff(attempt, BaseDelay) between attempts.
type ModelLoading struct {
	Models      ModelRefresher
	MaxAttempts int
	BaseDelay   time.Duration
}

// Streaming paces retries by waiting Cooldown. It does not contact the backend.
type Streaming struct {
	Cooldown time.Duration
}

// FileProcessing treats validation and format failures as needing user action.
type FileProcessing struct{}

// State calls Reset when set, then waits Settle.
type State struct {
	Reset  ResetFunc
	Settle time.Duration
}

// TitleGeneration always succeeds; title failures are not critical.
type TitleGeneration struct{}

// Composite tries Strategies in order and stops at the first success.
type Composite struct {
	Strategies []Strategy
}

func (Connection) strategyName() string      { return "connection" }
func (ModelLoading) strategyName() string    { return "model_loading" }
func (Streaming) strategyName() string       { return "streaming" }
func (FileProcessing) strategyName() string  { return "file_processing" }
func (State) strategyName() string           { return "state" }
func (TitleGeneration) strategyName() string { return "title_generation" }
func (Composite) strategyName() string       { return "composite" }

// Name returns a short identifier for s, e.g. "composite[connection,state]".
func Name(s Strategy) string {
	if s == nil {
		return "none"
	}
	if c, ok := s.(Composite); ok {
		names := make([]string, len(c.Strategies))
		for i, sub := range c.Strategies {
			names[i] = Name(sub)
		}
		return "composite[" + strings.Join(names, ",") + "]"
	}
	return s.strategyName()
}

// Recover runs s against state. It never panics: a panic or error inside a
// strategy or its collaborators becomes a failed Result.
func Recover(ctx context.Context, s Strategy, state ErrorState) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Failed(fmt.Sprintf("%s recovery panicked: %v", Name(s), r), map[string]any{
				"strategy": Name(s),
			})
		}
	}()

	switch s := s.(type) {
	case Connection:
		return recoverConnection(ctx, s)
	case ModelLoading:
		return recoverModels(ctx, s)
	case Streaming:
		return recoverStreaming(ctx, s)
	case FileProcessing:
		return recoverFile(state)
	case State:
		return recoverState(ctx, s)
	case TitleGeneration:
		return Succeeded("Title generation failures are non-critical; in-flight state cleared", nil)
	case Composite:
		return recoverComposite(ctx, s, state)
	default:
		return Failed(fmt.Sprintf("unsupported recovery strategy %T", s), nil)
	}
}

func recoverConnection(ctx context.Context, s Connection) Result {
	if s.Checker == nil {
		return Failed("No backend client available for connection recovery", nil)
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan bool, 1)
	go func() {
		defer func() {
			if recover() != nil {
				done <- false
			}
		}()
		done <- s.Checker.TestConnection(ctx)
	}()

	select {
	case ok := <-done:
		if ok {
			return Succeeded("Connection to backend restored", nil)
		}
		return Failed("Backend connection test failed", nil)
	case <-ctx.Done():
		return Failed(fmt.Sprintf("Backend connection test timed out after %s", timeout), map[string]any{
			"timeout": timeout.String(),
		})
	}
}

func recoverModels(ctx context.Context, s ModelLoading) Result {
	if s.Models == nil {
		return Failed("No model manager available for model recovery", nil)
	}
	attempts := s.MaxAttempts
	if attempts <= 0 {
		attempts = 2
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		ok, err := s.Models.RefreshModels(ctx)
		if err == nil && ok && s.Models.HasModels() {
			return Succeeded("Models reloaded", map[string]any{
				"modelCount": len(s.Models.AvailableModels()),
				"attempts":   attempt,
			})
		}
		lastErr = err

		if attempt < attempts {
			if err := resilience.Sleep(ctx, resilience.LinearBackoff(attempt, s.BaseDelay)); err != nil {
				return Failed("Model recovery cancelled", map[string]any{"attempts": attempt})
			}
		}
	}

	md := map[string]any{"attempts": attempts}
	if lastErr != nil {
		md["lastError"] = errors.Classify(lastErr).Message
	}
	return Failed(fmt.Sprintf("Failed to load models after %d attempts", attempts), md)
}

func recoverStreaming(ctx context.Context, s Streaming) Result {
	if err := resilience.Sleep(ctx, s.Cooldown); err != nil {
		return Failed("Streaming cooldown interrupted", nil)
	}
	return Succeeded("Streaming ready after cooldown", map[string]any{
		"cooldown": s.Cooldown.String(),
	})
}

func recoverFile(state ErrorState) Result {
	md := map[string]any{"kind": string(state.Kind)}
	if state.Kind == errors.KindValidation || state.Kind == errors.KindFormat {
		md["requiresUserAction"] = true
		return Failed("File processing failed and requires user intervention: "+state.Message, md)
	}
	return Succeeded("File processing error is transient; the file can be retried", md)
}

func recoverState(ctx context.Context, s State) Result {
	invoked := s.Reset != nil
	if invoked {
		if err := s.Reset(ctx); err != nil {
			return Failed("State reset failed: "+err.Error(), nil)
		}
	}
	if err := resilience.Sleep(ctx, s.Settle); err != nil {
		return Failed("State reset interrupted", map[string]any{"resetInvoked": invoked})
	}
	return Succeeded("State reset", map[string]any{"resetInvoked": invoked})
}

func recoverComposite(ctx context.Context, c Composite, state ErrorState) Result {
	if len(c.Strategies) == 0 {
		return Failed("No recovery strategies configured", nil)
	}

	failures := make([]string, 0, len(c.Strategies))
	for _, sub := range c.Strategies {
		res := Recover(ctx, sub, state)
		if res.Success {
			res.Metadata["strategy"] = Name(sub)
			return res
		}
		failures = append(failures, res.Message)
	}
	return Failed(strings.Join(failures, "; "), map[string]any{
		"attempted": len(c.Strategies),
	})
}
