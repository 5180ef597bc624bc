package main

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoginLimiterThreshold(t *testing.T) {
	l := NewLoginLimiter(3, time.Minute)

	require.False(t, l.Blocked("1.2.3.4"))
	l.Fail("1.2.3.4")
	l.Fail("1.2.3.4")
	require.False(t, l.Blocked("1.2.3.4"))
	l.Fail("1.2.3.4")
	require.True(t, l.Blocked("1.2.3.4"))

	// other sources are unaffected
	require.False(t, l.Blocked("5.6.7.8"))
}

func TestLoginLimiterReset(t *testing.T) {
	l := NewLoginLimiter(2, time.Minute)
	l.Fail("1.2.3.4")
	l.Fail("1.2.3.4")
	require.True(t, l.Blocked("1.2.3.4"))

	l.Reset("1.2.3.4")
	require.False(t, l.Blocked("1.2.3.4"))
}

func TestLoginLimiterWindowExpires(t *testing.T) {
	l := NewLoginLimiter(2, 20*time.Millisecond)
	l.Fail("1.2.3.4")
	l.Fail("1.2.3.4")
	require.True(t, l.Blocked("1.2.3.4"))

	time.Sleep(30 * time.Millisecond)
	require.False(t, l.Blocked("1.2.3.4"))

	// a stale entry restarts the count instead of extending it
	l.Fail("1.2.3.4")
	require.False(t, l.Blocked("1.2.3.4"))
}

func TestLoginLimiterSweepBoundsGrowth(t *testing.T) {
	l := NewLoginLimiter(5, 10*time.Millisecond)
	for i := 0; i < 100; i++ {
		l.Fail(string(rune('a' + i%26)))
	}
	time.Sleep(20 * time.Millisecond)
	l.lastSweep = time.Now().Add(-limiterSweepInterval) // force sweep eligibility
	l.Blocked("anything")

	l.mu.Lock()
	defer l.mu.Unlock()
	require.Empty(t, l.attempts)
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.1:5555"
	require.Equal(t, "192.0.2.1", clientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 192.0.2.1")
	require.Equal(t, "203.0.113.9", clientIP(r))
}
