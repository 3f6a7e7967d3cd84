package pageuser

import (
	"testing"
	"time"
)

func TestAttemptLimiterBlocksAfterMax(t *testing.T) {
	limiter := NewAttemptLimiter(2, 200*time.Millisecond)
	ip := "203.0.113.10"

	if !limiter.Check(ip) {
		t.Fatalf("expected first check to pass")
	}
	limiter.Record(ip)
	limiter.Record(ip)
	if limiter.Check(ip) {
		t.Fatalf("expected check to fail after max recorded attempts")
	}
}

func TestAttemptLimiterCheckDoesNotRecord(t *testing.T) {
	limiter := NewAttemptLimiter(1, time.Minute)
	ip := "203.0.113.15"

	for i := 0; i < 5; i++ {
		if !limiter.Check(ip) {
			t.Fatalf("check %d should pass when nothing was recorded", i)
		}
	}
}

func TestAttemptLimiterResetsAfterWindow(t *testing.T) {
	limiter := NewAttemptLimiter(1, 150*time.Millisecond)
	ip := "203.0.113.20"

	limiter.Record(ip)
	if limiter.Check(ip) {
		t.Fatalf("expected check to fail inside the window")
	}

	time.Sleep(200 * time.Millisecond)
	if !limiter.Check(ip) {
		t.Fatalf("expected check to pass after window expired")
	}
}

func TestAttemptLimiterIsPerKey(t *testing.T) {
	limiter := NewAttemptLimiter(1, time.Minute)

	limiter.Record("203.0.113.30")
	if limiter.Check("203.0.113.30") {
		t.Fatalf("expected throttled key to fail")
	}
	if !limiter.Check("203.0.113.31") {
		t.Fatalf("expected different key to pass")
	}
}
