package chat

import (
	"context"
	stderrors "errors"
	"testing"

	rkerrors "github.com/kbukum/recoverykit/errors"
	"github.com/kbukum/recoverykit/logger"
	"github.com/kbukum/recoverykit/ollama"
)

type fakeStreamer struct {
	reply string
	err   error
	block chan struct{}
	last  ollama.ChatRequest
}

func (f *fakeStreamer) Stream(_ context.Context, req ollama.ChatRequest, onChunk func(string)) (string, error) {
	f.last = req
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return "", f.err
	}
	if onChunk != nil {
		onChunk(f.reply)
	}
	return f.reply, nil
}

type fakeTitler struct {
	calls int
}

func (f *fakeTitler) Generate(_ context.Context, _ string, messages []ollama.Message) string {
	f.calls++
	return "Title from " + messages[0].Content
}

func TestSendStoresExchangeAndTitles(t *testing.T) {
	streamer := &fakeStreamer{reply: "Hi there"}
	titler := &fakeTitler{}
	s := NewService(streamer, WithTitler(titler), WithLogger(logger.Nop()))
	id := s.Start("llama3")

	var chunks []string
	reply, err := s.Send(context.Background(), id, "hello", func(c string) { chunks = append(chunks, c) })
	if err != nil {
		t.Fatal(err)
	}
	if reply != "Hi there" || len(chunks) != 1 {
		t.Errorf("unexpected reply %q chunks %v", reply, chunks)
	}
	if streamer.last.Model != "llama3" || len(streamer.last.Messages) != 1 {
		t.Errorf("unexpected stream request %+v", streamer.last)
	}

	conv, ok := s.Get(id)
	if !ok {
		t.Fatal("conversation missing")
	}
	if len(conv.Messages) != 2 || conv.Messages[1].Role != RoleAssistant {
		t.Errorf("unexpected messages %+v", conv.Messages)
	}
	if conv.Title != "Title from hello" {
		t.Errorf("unexpected title %q", conv.Title)
	}

	if _, err := s.Send(context.Background(), id, "again", nil); err != nil {
		t.Fatal(err)
	}
	if titler.calls != 1 {
		t.Errorf("expected title only after the first exchange, got %d calls", titler.calls)
	}
}

func TestSendErrors(t *testing.T) {
	s := NewService(&fakeStreamer{err: stderrors.New("stream failed")}, WithLogger(logger.Nop()))
	id := s.Start("")

	if _, err := s.Send(context.Background(), id, "", nil); err == nil {
		t.Error("expected empty message to be rejected")
	}
	_, err := s.Send(context.Background(), "missing", "hi", nil)
	if appErr, ok := rkerrors.AsAppError(err); !ok || appErr.Code != rkerrors.ErrCodeNotFound {
		t.Errorf("expected not found, got %v", err)
	}

	if _, err := s.Send(context.Background(), id, "hi", nil); err == nil {
		t.Fatal("expected stream error")
	}
	conv, _ := s.Get(id)
	if len(conv.Messages) != 1 || conv.Messages[0].Role != RoleUser {
		t.Errorf("expected the user message to be kept, got %+v", conv.Messages)
	}
}

func TestSendRejectsConcurrentExchange(t *testing.T) {
	streamer := &fakeStreamer{reply: "ok", block: make(chan struct{})}
	s := NewService(streamer, WithLogger(logger.Nop()))
	id := s.Start("")

	done := make(chan error, 1)
	go func() {
		_, err := s.Send(context.Background(), id, "first", nil)
		done <- err
	}()
	for {
		s.mu.Lock()
		_, busy := s.sending[id]
		s.mu.Unlock()
		if busy {
			break
		}
	}

	_, err := s.Send(context.Background(), id, "second", nil)
	if appErr, ok := rkerrors.AsAppError(err); !ok || appErr.Code != rkerrors.ErrCodeConflict {
		t.Errorf("expected conflict, got %v", err)
	}
	close(streamer.block)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

type blockingTitler struct {
	started chan struct{}
	release chan struct{}
}

func (f *blockingTitler) Generate(context.Context, string, []ollama.Message) string {
	close(f.started)
	<-f.release
	return "Late title"
}

func TestResetDuringExchangeStoresNothing(t *testing.T) {
	tests := []struct {
		name        string
		wantErr     error
		wantReplies int
		run         func(t *testing.T, s *Service, id string) error
	}{
		{
			name:        "reset while the reply streams",
			wantErr:     ErrInterrupted,
			wantReplies: 0,
			run: func(t *testing.T, s *Service, id string) error {
				streamer := s.streamer.(*fakeStreamer)
				done := make(chan error, 1)
				go func() {
					_, err := s.Send(context.Background(), id, "hello", nil)
					done <- err
				}()
				waitSending(s, id)
				if err := s.ResetState(context.Background()); err != nil {
					t.Fatal(err)
				}
				close(streamer.block)
				return <-done
			},
		},
		{
			// The reply landed before the reset; only the title is dropped.
			name:        "reset while the title is generated",
			wantErr:     nil,
			wantReplies: 1,
			run: func(t *testing.T, s *Service, id string) error {
				titler := &blockingTitler{started: make(chan struct{}), release: make(chan struct{})}
				s.titler = titler
				close(s.streamer.(*fakeStreamer).block)
				done := make(chan error, 1)
				go func() {
					_, err := s.Send(context.Background(), id, "hello", nil)
					done <- err
				}()
				<-titler.started
				if err := s.ResetState(context.Background()); err != nil {
					t.Fatal(err)
				}
				close(titler.release)
				return <-done
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewService(&fakeStreamer{reply: "late", block: make(chan struct{})}, WithTitler(&fakeTitler{}), WithLogger(logger.Nop()))
			id := s.Start("")

			err := tc.run(t, s, id)

			conv, _ := s.Get(id)
			if conv.Title != "" {
				t.Errorf("expected no title after reset, got %q", conv.Title)
			}
			if !stderrors.Is(err, tc.wantErr) {
				t.Errorf("expected error %v, got %v", tc.wantErr, err)
			}
			if n := countRole(conv.Messages, RoleAssistant); n != tc.wantReplies {
				t.Errorf("expected %d replies, got %d", tc.wantReplies, n)
			}
			if !s.ValidateState(context.Background()) {
				t.Error("expected state valid after the exchange finished")
			}
		})
	}
}

func waitSending(s *Service, id string) {
	for {
		s.mu.Lock()
		_, busy := s.sending[id]
		s.mu.Unlock()
		if busy {
			return
		}
	}
}

func TestValidateAndResetState(t *testing.T) {
	s := NewService(&fakeStreamer{reply: "ok"}, WithLogger(logger.Nop()))
	id := s.Start("")
	if !s.ValidateState(context.Background()) {
		t.Fatal("expected fresh state to be valid")
	}

	// A dangling selection or in-flight marker is invalid.
	s.mu.Lock()
	s.current = "gone"
	s.sending["gone"] = 1
	s.mu.Unlock()
	if s.ValidateState(context.Background()) {
		t.Fatal("expected dangling state to be invalid")
	}

	if err := s.ResetState(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !s.ValidateState(context.Background()) {
		t.Error("expected reset to restore a valid state")
	}
	if s.Current() != "" {
		t.Error("expected reset to clear the selection")
	}
	if _, ok := s.Get(id); !ok {
		t.Error("expected reset to keep stored conversations")
	}
	if err := s.Select(id); err != nil {
		t.Errorf("expected select to work after reset, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := NewService(&fakeStreamer{}, WithLogger(logger.Nop()))
	id := s.Start("")
	s.Delete(id)
	if _, ok := s.Get(id); ok || s.Current() != "" {
		t.Error("expected conversation and selection removed")
	}
	if err := s.Select(id); err == nil {
		t.Error("expected select of deleted conversation to fail")
	}
}
