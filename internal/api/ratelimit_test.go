package api

import (
	"testing"
	"time"
)

func TestRateLimiter_BurstThenDeny(t *testing.T) {
	rl := NewRateLimiter(60, 2)

	for i := 0; i < 2; i++ {
		if ok, _ := rl.allow("10.0.0.1"); !ok {
			t.Fatalf("request %d should fit in the burst", i+1)
		}
	}
	ok, retryAfter := rl.allow("10.0.0.1")
	if ok {
		t.Fatal("third immediate request should be denied")
	}
	if retryAfter <= 0 || retryAfter > time.Second {
		t.Errorf("retry-after should be under one refill interval, got %v", retryAfter)
	}

	// Other IPs keep their own bucket.
	if ok, _ := rl.allow("10.0.0.2"); !ok {
		t.Error("a fresh IP must not share the exhausted bucket")
	}
}

func TestNewRateLimiterFromEnv(t *testing.T) {
	t.Setenv("RATE_LIMIT_PER_MIN", "120")
	t.Setenv("RATE_LIMIT_BURST", "5")

	rl := NewRateLimiterFromEnv()
	if rl.rate != 2.0 {
		t.Errorf("expected 2 tokens/sec, got %v", rl.rate)
	}
	if rl.burst != 5.0 {
		t.Errorf("expected burst 5, got %v", rl.burst)
	}

	t.Setenv("RATE_LIMIT_PER_MIN", "not-a-number")
	if got := NewRateLimiterFromEnv(); got.rate != 1.0 {
		t.Errorf("unparseable override should fall back to 60/min, got %v", got.rate)
	}
}
