package resilience

import (
	"testing"
	"time"
)

func TestRateLimiterBurstThenRefill(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRateLimiter(RateLimiterConfig{Name: "reset", Rate: 2, Burst: 2})
	rl.now = func() time.Time { return now }
	rl.lastRefill = now

	var limited int
	rl.config.OnLimit = func(string) { limited++ }

	if !rl.Allow() || !rl.Allow() {
		t.Fatal("expected burst of 2 to be allowed")
	}
	if rl.Allow() {
		t.Fatal("expected third request to be limited")
	}
	if limited != 1 {
		t.Errorf("expected OnLimit once, got %d", limited)
	}
	if got := rl.RetryAfter(); got != 500*time.Millisecond {
		t.Errorf("expected 500ms until next token, got %v", got)
	}

	now = now.Add(500 * time.Millisecond)
	if !rl.Allow() {
		t.Error("expected a token after refill")
	}

	now = now.Add(time.Hour)
	if got := rl.Tokens(); got != 2 {
		t.Errorf("expected bucket capped at burst, got %v", got)
	}
	if rl.RetryAfter() != 0 {
		t.Error("expected no wait with tokens available")
	}
}

func TestRateLimiterDefaults(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{})
	if rl.config.Rate != 1 || rl.config.Burst != 1 {
		t.Errorf("unexpected defaults %+v", rl.config)
	}
	cfg := DefaultRateLimiterConfig("reset")
	if cfg.Burst != 5 {
		t.Errorf("unexpected default burst %d", cfg.Burst)
	}
}
