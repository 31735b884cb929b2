package handlers

import (
	"strings"
	"sync"
	"time"
)

type rateLimiter interface {
	Allow(key string) bool
}

// writeLimiter counts mutating requests per client in fixed windows. State is
// in-process only; a multi-replica deployment limits per replica.
type writeLimiter struct {
	limit  int
	window time.Duration
	clock  func() time.Time

	mu      sync.Mutex
	windows map[string]writeWindow
}

type writeWindow struct {
	used      int
	expiresAt time.Time
}

func newWriteLimiter(limit int, window time.Duration, clock func() time.Time) rateLimiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &writeLimiter{
		limit:   limit,
		window:  window,
		clock:   clock,
		windows: make(map[string]writeWindow),
	}
}

func (l *writeLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	if key = strings.TrimSpace(key); key == "" {
		key = "anonymous"
	}

	now := l.clock()
	l.mu.Lock()
	defer l.mu.Unlock()

	current, ok := l.windows[key]
	if !ok || now.After(current.expiresAt) {
		for k, w := range l.windows {
			if now.After(w.expiresAt) {
				delete(l.windows, k)
			}
		}
		l.windows[key] = writeWindow{used: 1, expiresAt: now.Add(l.window)}
		return true
	}

	if current.used >= l.limit {
		return false
	}
	current.used++
	l.windows[key] = current
	return true
}
