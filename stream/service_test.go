package stream

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	rkerrors "github.com/kbukum/recoverykit/errors"
	"github.com/kbukum/recoverykit/logger"
	"github.com/kbukum/recoverykit/ollama"
	"github.com/kbukum/recoverykit/recovery"
)

// fakeChat replays chunks; with gate set it waits on gate before each chunk.
type fakeChat struct {
	chunks  []ollama.Chunk
	openErr error
	gate    chan struct{}
}

func (f *fakeChat) Chat(ctx context.Context, _ ollama.ChatRequest) (<-chan ollama.Chunk, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	ch := make(chan ollama.Chunk)
	go func() {
		defer close(ch)
		for _, c := range f.chunks {
			if f.gate != nil {
				select {
				case <-f.gate:
				case <-ctx.Done():
					return
				}
			}
			select {
			case ch <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func reply(parts ...string) []ollama.Chunk {
	out := make([]ollama.Chunk, 0, len(parts)+1)
	for _, p := range parts {
		out = append(out, ollama.Chunk{Content: p})
	}
	return append(out, ollama.Chunk{Done: true})
}

func fastRegistry() *recovery.Registry {
	cfg := recovery.Config{
		BaseDelay:         time.Millisecond,
		OperationTimeout:  time.Second,
		StreamingCooldown: time.Millisecond,
		StateSettle:       time.Millisecond,
		ConnectionTimeout: 10 * time.Millisecond,
	}
	reg := recovery.NewRegistry(recovery.WithConfig(cfg), recovery.WithLogger(logger.Nop()))
	reg.SetResolver(recovery.NewFactory(recovery.Dependencies{Config: cfg}))
	return reg
}

func TestStreamDeliversChunks(t *testing.T) {
	s := NewService(&fakeChat{chunks: reply("Hel", "lo", " world")}, Config{}, WithLogger(logger.Nop()))

	var got []string
	full, err := s.Stream(context.Background(), ollama.ChatRequest{}, func(c string) { got = append(got, c) })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if full != "Hello world" || len(got) != 3 {
		t.Errorf("unexpected reply %q chunks %v", full, got)
	}
	if s.Active() != 0 {
		t.Errorf("expected no active streams, got %d", s.Active())
	}
	if !s.ValidateStreamingState(context.Background()) {
		t.Error("expected valid state")
	}
}

func TestStreamFailureIsRecorded(t *testing.T) {
	reg := fastRegistry()
	s := NewService(&fakeChat{chunks: []ollama.Chunk{{Content: "par"}, {Err: stderrors.New("connection reset by peer")}}},
		Config{}, WithLogger(logger.Nop()), WithRegistry(reg))

	_, err := s.Stream(context.Background(), ollama.ChatRequest{Model: "llama3"}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	// Without a backend the streaming strategy is the cooldown alone, which succeeds.
	if h := reg.ServiceHealth(recovery.ServiceStreaming.String()); h != recovery.HealthHealthy {
		t.Errorf("expected streaming recovered to healthy, got %s", h)
	}
}

func TestStreamOpenErrorIsNotRetried(t *testing.T) {
	calls := 0
	reg := fastRegistry()
	chat := &countingChat{err: rkerrors.ConnectionFailed("ollama"), calls: &calls}
	s := NewService(chat, Config{}, WithLogger(logger.Nop()), WithRegistry(reg))

	if _, err := s.Stream(context.Background(), ollama.ChatRequest{}, nil); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected a single attempt, got %d", calls)
	}
}

type countingChat struct {
	err   error
	calls *int
}

func (c *countingChat) Chat(context.Context, ollama.ChatRequest) (<-chan ollama.Chunk, error) {
	*c.calls++
	return nil, c.err
}

func TestStreamConcurrencyLimit(t *testing.T) {
	gate := make(chan struct{})
	s := NewService(&fakeChat{chunks: reply("x"), gate: gate}, Config{MaxConcurrent: 1}, WithLogger(logger.Nop()))

	done := make(chan error, 1)
	go func() {
		_, err := s.Stream(context.Background(), ollama.ChatRequest{}, nil)
		done <- err
	}()
	waitFor(t, func() bool { return s.Active() == 1 })

	_, err := s.Stream(context.Background(), ollama.ChatRequest{}, nil)
	appErr, ok := rkerrors.AsAppError(err)
	if !ok || appErr.Code != rkerrors.ErrCodeRateLimited {
		t.Errorf("expected rate limited error, got %v", err)
	}

	close(gate)
	if err := <-done; err != nil {
		t.Errorf("first stream failed: %v", err)
	}
}

func TestResetStopsRunningStream(t *testing.T) {
	gate := make(chan struct{}, 1)
	reg := fastRegistry()
	s := NewService(&fakeChat{chunks: reply("first", "second"), gate: gate}, Config{}, WithLogger(logger.Nop()), WithRegistry(reg))

	var mu sync.Mutex
	var delivered []string
	done := make(chan error, 1)
	go func() {
		_, err := s.Stream(context.Background(), ollama.ChatRequest{}, func(c string) {
			mu.Lock()
			delivered = append(delivered, c)
			mu.Unlock()
		})
		done <- err
	}()

	gate <- struct{}{}
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(delivered) == 1
	})

	before := s.Generation()
	if err := s.ResetStreamingState(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.Generation() != before+1 {
		t.Errorf("expected generation bump, got %d", s.Generation())
	}
	if s.Active() != 0 {
		t.Errorf("expected reset to drop stream records, got %d", s.Active())
	}

	select {
	case err := <-done:
		if !stderrors.Is(err, ErrStale) {
			t.Errorf("expected ErrStale, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("stream did not stop after reset")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(delivered) != 1 {
		t.Errorf("expected no chunks after reset, got %v", delivered)
	}
	if reg.ErrorCount() != 0 {
		t.Errorf("expected a reset stream not to be recorded as a failure, got %v", reg.ErrorStates())
	}
}

func TestCancelStreaming(t *testing.T) {
	gate := make(chan struct{})
	s := NewService(&fakeChat{chunks: reply("x"), gate: gate}, Config{}, WithLogger(logger.Nop()))

	done := make(chan error, 1)
	go func() {
		_, err := s.Stream(context.Background(), ollama.ChatRequest{}, nil)
		done <- err
	}()
	waitFor(t, func() bool { return s.Active() == 1 })

	if err := s.CancelStreaming(context.Background()); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-done:
		if !stderrors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("stream was not cancelled")
	}
	if s.Generation() != 0 {
		t.Error("expected cancel not to change the generation")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(time.Millisecond)
	}
}
