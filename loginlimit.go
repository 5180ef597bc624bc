package main

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// LoginLimiter throttles repeated failed login attempts per source address.
// Counting is independent of why the attempt failed. Entries expire after
// the block window and are pruned on a sweep interval, so the map stays
// bounded. State is per process instance.
type LoginLimiter struct {
	mu          sync.Mutex
	attempts    map[string]*loginAttempt
	maxAttempts int
	blockFor    time.Duration
	lastSweep   time.Time
}

type loginAttempt struct {
	count int
	last  time.Time
}

const limiterSweepInterval = 5 * time.Minute

func NewLoginLimiter(maxAttempts int, blockFor time.Duration) *LoginLimiter {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if blockFor <= 0 {
		blockFor = 15 * time.Minute
	}
	return &LoginLimiter{
		attempts:    make(map[string]*loginAttempt),
		maxAttempts: maxAttempts,
		blockFor:    blockFor,
		lastSweep:   time.Now(),
	}
}

// Blocked reports whether key has exceeded the attempt threshold within the
// block window.
func (l *LoginLimiter) Blocked(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweepLocked(time.Now())
	at, ok := l.attempts[key]
	if !ok {
		return false
	}
	return at.count >= l.maxAttempts && time.Since(at.last) < l.blockFor
}

// Fail records a failed attempt for key.
func (l *LoginLimiter) Fail(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	at, ok := l.attempts[key]
	if !ok || now.Sub(at.last) >= l.blockFor {
		l.attempts[key] = &loginAttempt{count: 1, last: now}
		return
	}
	at.count++
	at.last = now
}

// Reset clears the counter for key after a successful login.
func (l *LoginLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, key)
}

func (l *LoginLimiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < limiterSweepInterval {
		return
	}
	for key, at := range l.attempts {
		if now.Sub(at.last) >= l.blockFor {
			delete(l.attempts, key)
		}
	}
	l.lastSweep = now
}

// clientIP extracts the request source address, preferring the first
// X-Forwarded-For hop when present.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
