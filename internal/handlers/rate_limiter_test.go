package handlers

import (
	"testing"
	"time"
)

func TestWriteLimiterWindow(t *testing.T) {
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	limiter := newWriteLimiter(2, time.Minute, clock)

	if !limiter.Allow("client-a") || !limiter.Allow("client-a") {
		t.Fatal("expected first two requests to pass")
	}
	if limiter.Allow("client-a") {
		t.Fatal("expected third request to be limited")
	}
	if !limiter.Allow("client-b") {
		t.Fatal("expected other clients to be unaffected")
	}

	now = now.Add(2 * time.Minute)
	if !limiter.Allow("client-a") {
		t.Fatal("expected a new window after expiry")
	}
}

func TestWriteLimiterDisabled(t *testing.T) {
	if limiter := newWriteLimiter(0, time.Minute, nil); limiter != nil {
		t.Fatal("expected nil limiter for non-positive limit")
	}
}
