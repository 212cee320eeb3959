package middleware

import (
	"sync"
	"time"
)

// Invalid auth attempts allowed per IP within one window.
const (
	DefaultInvalidAuthLimit  = 5
	DefaultInvalidAuthWindow = time.Minute
)

// InvalidAuthRateLimiter throttles invalid auth attempts only.
type InvalidAuthRateLimiter struct {
	mu       sync.Mutex
	attempts map[string]*attemptInfo
	limit    int
	window   time.Duration
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

type attemptInfo struct {
	count   int
	firstAt time.Time
}

// NewInvalidAuthRateLimiter starts a limiter with a background cleanup loop.
// Call Stop to end the loop.
func NewInvalidAuthRateLimiter(limit int, window time.Duration) *InvalidAuthRateLimiter {
	if limit <= 0 {
		limit = DefaultInvalidAuthLimit
	}
	if window <= 0 {
		window = DefaultInvalidAuthWindow
	}
	rl := &InvalidAuthRateLimiter{
		attempts: make(map[string]*attemptInfo),
		limit:    limit,
		window:   window,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Allow records an attempt from ip and reports whether it is within the limit.
func (r *InvalidAuthRateLimiter) Allow(ip string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	info, exists := r.attempts[ip]
	if !exists || now.Sub(info.firstAt) > r.window {
		r.attempts[ip] = &attemptInfo{count: 1, firstAt: now}
		return true
	}

	if info.count >= r.limit {
		return false
	}
	info.count++
	return true
}

// Stop ends the cleanup loop.
func (r *InvalidAuthRateLimiter) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *InvalidAuthRateLimiter) cleanup() {
	ticker := time.NewTicker(5 * r.window)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.mu.Lock()
			now := r.now()
			for ip, info := range r.attempts {
				if now.Sub(info.firstAt) > r.window {
					delete(r.attempts, ip)
				}
			}
			r.mu.Unlock()
		}
	}
}
