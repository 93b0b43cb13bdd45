package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBulkheadAcquireRelease(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{Name: "streams", MaxConcurrent: 2})

	r1, err := b.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	r2, err := b.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if b.InUse() != 2 || b.Available() != 0 {
		t.Fatalf("expected 2 in use, got %d", b.InUse())
	}

	var rejected string
	b.config.OnReject = func(name string) { rejected = name }
	if _, err := b.Acquire(context.Background()); !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("expected ErrBulkheadFull, got %v", err)
	}
	if rejected != "streams" {
		t.Errorf("expected OnReject with name, got %q", rejected)
	}

	r1()
	r1()
	if b.InUse() != 1 {
		t.Errorf("expected release to be idempotent, got %d in use", b.InUse())
	}
	r2()
	if b.InUse() != 0 {
		t.Errorf("expected all slots free, got %d", b.InUse())
	}
}

func TestBulkheadWaitsForSlot(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{Name: "streams", MaxConcurrent: 1, MaxWait: time.Second})
	release, err := b.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	go func() {
		time.Sleep(20 * time.Millisecond)
		release()
	}()

	ran := false
	if err := b.Execute(context.Background(), func(context.Context) error {
		ran = true
		return nil
	}); err != nil {
		t.Fatalf("expected slot after wait, got %v", err)
	}
	if !ran {
		t.Error("expected fn to run")
	}
}

func TestBulkheadWaitTimeout(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: 10 * time.Millisecond})
	release, _ := b.Acquire(context.Background())
	defer release()

	if _, err := b.Acquire(context.Background()); !errors.Is(err, ErrBulkheadTimeout) {
		t.Errorf("expected ErrBulkheadTimeout, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b.config.MaxWait = time.Second
	if _, err := b.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestBulkheadExecutePropagatesError(t *testing.T) {
	b := NewBulkhead(DefaultBulkheadConfig("streams"))
	want := errors.New("boom")
	if err := b.Execute(context.Background(), func(context.Context) error { return want }); !errors.Is(err, want) {
		t.Errorf("expected fn error, got %v", err)
	}
	if b.InUse() != 0 {
		t.Error("expected slot released after error")
	}
}
