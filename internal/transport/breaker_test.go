package transport

import (
	"testing"
	"time"
)

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := NewBreaker(3, time.Hour)

	for i := 0; i < 3; i++ {
		if !b.TryAcquire() {
			t.Fatalf("request %d should pass while closed", i)
		}
		b.OnFailure()
	}

	if b.TryAcquire() {
		t.Fatal("breaker should be open after threshold failures")
	}
}

func TestBreakerProbesAfterCooldown(t *testing.T) {
	b := NewBreaker(1, 10*time.Millisecond)

	b.TryAcquire()
	b.OnFailure()
	if b.TryAcquire() {
		t.Fatal("should be open")
	}

	time.Sleep(20 * time.Millisecond)

	if !b.TryAcquire() {
		t.Fatal("probe should be admitted after cool-down")
	}
	// only one probe at a time
	if b.TryAcquire() {
		t.Fatal("second probe should be rejected")
	}

	b.OnSuccess()
	if !b.TryAcquire() {
		t.Fatal("breaker should close after a successful probe")
	}
}

func TestBreakerReopensOnFailedProbe(t *testing.T) {
	b := NewBreaker(1, 10*time.Millisecond)

	b.TryAcquire()
	b.OnFailure()
	time.Sleep(20 * time.Millisecond)

	if !b.TryAcquire() {
		t.Fatal("probe should be admitted")
	}
	b.OnFailure()

	if b.TryAcquire() {
		t.Fatal("failed probe should reopen the breaker")
	}
}

func TestMapStatus(t *testing.T) {
	cases := map[string]string{
		"delivered":   StatusDelivered,
		"DELIVRD":     StatusDelivered,
		"ok":          StatusDelivered,
		"failed":      StatusFailed,
		"Undelivered": StatusFailed,
		"expired":     StatusFailed,
		"accepted":    StatusSent,
		"queued":      StatusSent,
		"":            StatusSent,
	}
	for in, want := range cases {
		if got := MapStatus(in); got != want {
			t.Errorf("MapStatus(%q) = %q, want %q", in, got, want)
		}
	}
}
