package ratelimiter

import (
	"sync"
	"time"
)

// window counts the requests of one client IP until resetAt
type window struct {
	count   int
	resetAt time.Time
}

// RateLimiter allows each client IP at most `limit` requests per fixed
// window. A client's window opens with its first request and the count
// resets once it has elapsed.
type RateLimiter struct {
	windows map[string]*window
	mutex   sync.Mutex
	limit   int
	window  time.Duration
}

// New creates a new RateLimiter with specified limit and window
func New(limit int, period time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 1
	}
	return &RateLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		window:  period,
	}
}

// IsAllowed counts one request for ip and reports whether it may proceed
func (rl *RateLimiter) IsAllowed(ip string) bool {
	return rl.allowAt(ip, time.Now())
}

func (rl *RateLimiter) allowAt(ip string, now time.Time) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	w, exists := rl.windows[ip]
	if !exists || !now.Before(w.resetAt) {
		rl.windows[ip] = &window{count: 1, resetAt: now.Add(rl.window)}
		return true
	}
	if w.count >= rl.limit {
		return false
	}
	w.count++
	return true
}

// Remaining returns how many requests ip may still make in its current
// window, and how long until the window resets when none are left.
func (rl *RateLimiter) Remaining(ip string) (remaining int, retryAfter time.Duration) {
	return rl.remainingAt(ip, time.Now())
}

func (rl *RateLimiter) remainingAt(ip string, now time.Time) (int, time.Duration) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	w, exists := rl.windows[ip]
	if !exists || !now.Before(w.resetAt) {
		return rl.limit, 0
	}
	if left := rl.limit - w.count; left > 0 {
		return left, 0
	}
	return 0, w.resetAt.Sub(now)
}

// Limit returns the configured requests per window
func (rl *RateLimiter) Limit() int {
	return rl.limit
}

// Window returns the configured window
func (rl *RateLimiter) Window() time.Duration {
	return rl.window
}

// Size returns the number of tracked client IPs
func (rl *RateLimiter) Size() int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	return len(rl.windows)
}

// Cleanup removes expired windows to prevent memory leaks
func (rl *RateLimiter) Cleanup() {
	rl.cleanupAt(time.Now())
}

func (rl *RateLimiter) cleanupAt(now time.Time) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	for ip, w := range rl.windows {
		if !now.Before(w.resetAt) {
			delete(rl.windows, ip)
		}
	}
}
