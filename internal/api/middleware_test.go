package api

import (
	"testing"
	"time"
)

func TestIPRateLimiterEvictsIdleClients(t *testing.T) {
	l := newIPRateLimiter(60, 5)
	clock := time.Date(2030, 1, 16, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }
	l.lastSweep = clock

	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		l.get(ip)
	}
	if len(l.limiters) != 3 {
		t.Fatalf("tracked = %d, want 3", len(l.limiters))
	}

	// keep one client active past the idle window
	clock = clock.Add(l.idleTTL / 2)
	l.get("10.0.0.1")

	clock = clock.Add(l.idleTTL/2 + time.Second)
	l.get("10.0.0.4")

	if len(l.limiters) != 2 {
		t.Fatalf("tracked = %d, want 2 after sweep", len(l.limiters))
	}
	for _, ip := range []string{"10.0.0.1", "10.0.0.4"} {
		if _, ok := l.limiters[ip]; !ok {
			t.Errorf("expected %s to be kept", ip)
		}
	}
}

func TestIPRateLimiterKeepsBucketUntilRefilled(t *testing.T) {
	tests := []struct {
		perMinute, burst int
		want             time.Duration
	}{
		{perMinute: 60, burst: 5, want: limiterIdleTTL},
		{perMinute: 1, burst: 30, want: 30 * time.Minute},
	}
	for _, tt := range tests {
		if got := newIPRateLimiter(tt.perMinute, tt.burst).idleTTL; got != tt.want {
			t.Errorf("idleTTL(%d/min, burst %d) = %s, want %s", tt.perMinute, tt.burst, got, tt.want)
		}
	}
}

func TestIPRateLimiterSharesBucketPerIP(t *testing.T) {
	l := newIPRateLimiter(1, 1)

	if !l.get("10.0.0.1").Allow() {
		t.Fatalf("first request should pass")
	}
	if l.get("10.0.0.1").Allow() {
		t.Fatalf("second request from the same ip should be limited")
	}
	if !l.get("10.0.0.2").Allow() {
		t.Fatalf("another ip should have its own bucket")
	}
}
