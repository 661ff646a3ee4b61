package tool

import (
	"sync"
	"time"
)

// RateLimiter caps how often the market tools hit the upstream data host.
// It keeps the timestamps of recent grants; a call is granted only while
// fewer than max grants fall inside the trailing window.
type RateLimiter struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	grants []time.Time
	now    func() time.Time
}

// NewRateLimiter allows up to max calls per trailing window.
func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		max:    max,
		window: window,
		now:    time.Now,
	}
}

// Allow grants the call and records it, or reports false when the window
// is full. Denied calls are not recorded and do not extend the window.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()

	// Grants are appended in time order; drop the prefix that has
	// slid out of the window.
	cut := now.Add(-r.window)
	i := 0
	for i < len(r.grants) && !r.grants[i].After(cut) {
		i++
	}
	if i > 0 {
		r.grants = append(r.grants[:0], r.grants[i:]...)
	}

	if len(r.grants) >= r.max {
		return false
	}
	r.grants = append(r.grants, now)
	return true
}
