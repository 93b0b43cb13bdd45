package files

import (
	"context"
	stderrors "errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	rkerrors "github.com/kbukum/recoverykit/errors"
	"github.com/kbukum/recoverykit/logger"
	"github.com/kbukum/recoverykit/recovery"
)

func fastRegistry() *recovery.Registry {
	cfg := recovery.Config{
		MaxRetries:       new(1),
		BaseDelay:        time.Millisecond,
		OperationTimeout: time.Second,
		StateSettle:      time.Millisecond,
	}
	reg := recovery.NewRegistry(recovery.WithConfig(cfg), recovery.WithLogger(logger.Nop()))
	reg.SetResolver(recovery.NewFactory(recovery.Dependencies{Config: cfg}))
	return reg
}

func ok(context.Context, File) error { return nil }

func TestProcessValidation(t *testing.T) {
	tr := NewTracker(Config{MaxSize: 100}, WithLogger(logger.Nop()))
	tests := []struct {
		name string
		file File
		code rkerrors.ErrorCode
	}{
		{"missing name", File{Name: " ", Size: 1}, rkerrors.ErrCodeMissingField},
		{"unsupported extension", File{Name: "movie.mp4", Size: 1}, rkerrors.ErrCodeUnsupportedFile},
		{"empty file", File{Name: "notes.txt"}, rkerrors.ErrCodeUnsupportedFile},
		{"too large", File{Name: "notes.txt", Size: 101}, rkerrors.ErrCodeUnsupportedFile},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			err := tr.Process(context.Background(), tc.file, func(context.Context, File) error {
				called = true
				return nil
			})
			appErr, isApp := rkerrors.AsAppError(err)
			if !isApp || appErr.Code != tc.code {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
			if called {
				t.Error("processor must not run for an invalid file")
			}
		})
	}

	if err := tr.Process(context.Background(), File{Name: "Report.MD", Size: 10}, ok); err != nil {
		t.Errorf("expected upper-case extension to be accepted, got %v", err)
	}
	if got := tr.Processed(); len(got) != 1 || got[0] != "Report.MD" {
		t.Errorf("unexpected processed list %v", got)
	}
}

func TestInvalidFileNeedsUserAction(t *testing.T) {
	reg := fastRegistry()
	tr := NewTracker(Config{}, WithLogger(logger.Nop()), WithRegistry(reg))

	if err := tr.Process(context.Background(), File{Name: "archive.zip", Size: 10}, ok); err == nil {
		t.Fatal("expected error")
	}
	state, found := reg.ServiceError(recovery.ServiceFileProcessing.String())
	if !found {
		t.Fatal("expected the failure to stay recorded")
	}
	if state.Kind != rkerrors.KindValidation || state.CanRetry {
		t.Errorf("unexpected error state %+v", state)
	}
	if state.Context["file"] != "archive.zip" {
		t.Errorf("expected file name in context, got %v", state.Context)
	}
	if h := reg.ServiceHealth(recovery.ServiceFileProcessing.String()); h != recovery.HealthUnhealthy {
		t.Errorf("expected unhealthy, got %s", h)
	}
}

func TestTransientFailureIsRetried(t *testing.T) {
	reg := fastRegistry()
	tr := NewTracker(Config{}, WithLogger(logger.Nop()), WithRegistry(reg))

	var calls atomic.Int32
	err := tr.Process(context.Background(), File{Name: "a.txt", Size: 1}, func(context.Context, File) error {
		if calls.Add(1) == 1 {
			return stderrors.New("connection reset by peer")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
	if reg.ErrorCount() != 0 || len(tr.Pending()) != 0 {
		t.Errorf("expected clean state, errors=%d pending=%v", reg.ErrorCount(), tr.Pending())
	}
}

func TestDuplicateFileIsRejected(t *testing.T) {
	tr := NewTracker(Config{}, WithLogger(logger.Nop()))
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- tr.Process(context.Background(), File{Name: "a.txt", Size: 1}, func(context.Context, File) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	err := tr.Process(context.Background(), File{Name: "a.txt", Size: 1}, ok)
	if appErr, isApp := rkerrors.AsAppError(err); !isApp || appErr.Code != rkerrors.ErrCodeConflict {
		t.Errorf("expected conflict, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestClearProcessingState(t *testing.T) {
	tr := NewTracker(Config{}, WithLogger(logger.Nop()))
	if err := tr.Process(context.Background(), File{Name: "done.txt", Size: 1}, ok); err != nil {
		t.Fatal(err)
	}

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- tr.Process(context.Background(), File{Name: "slow.txt", Size: 1}, func(ctx context.Context, _ File) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		})
	}()
	<-started
	if got := strings.Join(tr.Pending(), ","); got != "slow.txt" {
		t.Fatalf("expected slow.txt pending, got %q", got)
	}

	if err := tr.ClearProcessingState(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := <-done; !stderrors.Is(err, context.Canceled) {
		t.Errorf("expected cancelled job, got %v", err)
	}
	if len(tr.Pending()) != 0 || len(tr.Processed()) != 0 {
		t.Errorf("expected empty state after clear, pending=%v processed=%v", tr.Pending(), tr.Processed())
	}

	// The name is free again in the new generation.
	if err := tr.Process(context.Background(), File{Name: "slow.txt", Size: 1}, ok); err != nil {
		t.Errorf("expected reprocessing to work, got %v", err)
	}
}
