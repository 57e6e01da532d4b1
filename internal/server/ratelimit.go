package server

import (
	"net/http"
	"sync"
	"time"
)

// RateLimiter is a fixed-window per-client counter. Windows are tracked
// per client IP and swept periodically so idle clients don't accumulate.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*window
	limit   int
	period  time.Duration
}

type window struct {
	count int
	until time.Time
}

func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*window),
		limit:   limit,
		period:  period,
	}
	go rl.sweep()
	return rl
}

func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(rl.period * 2)
	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for ip, w := range rl.clients {
			if now.After(w.until) {
				delete(rl.clients, ip)
			}
		}
		rl.mu.Unlock()
	}
}

func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w, ok := rl.clients[ip]
	if !ok || now.After(w.until) {
		rl.clients[ip] = &window{count: 1, until: now.Add(rl.period)}
		return true
	}
	if w.count >= rl.limit {
		return false
	}
	w.count++
	return true
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientIP(r)) {
			jsonError(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

// NewAuthRateLimiter limits login/register attempts.
func NewAuthRateLimiter() *RateLimiter {
	return NewRateLimiter(5, time.Minute)
}

// NewAPIRateLimiter limits general API traffic.
func NewAPIRateLimiter() *RateLimiter {
	return NewRateLimiter(100, time.Minute)
}
