package api

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimiter is a fixed-window request limiter keyed by client IP.
// A limiter with requests <= 0 allows everything.
type RateLimiter struct {
	requests int
	window   time.Duration

	mu      sync.Mutex
	clients map[string]*windowState
	now     func() time.Time // injectable for deterministic tests
}

type windowState struct {
	count   int
	resetAt time.Time
}

// NewRateLimiter returns a limiter allowing requests per window per IP.
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: requests,
		window:   window,
		clients:  make(map[string]*windowState),
		now:      time.Now,
	}
}

// Allow records a request from ip. When the window's budget is spent it
// returns false and the time until the window resets.
func (l *RateLimiter) Allow(ip string) (bool, time.Duration) {
	if l.requests <= 0 || l.window <= 0 {
		return true, 0
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.clients[ip]
	if !ok || now.After(st.resetAt) {
		l.clients[ip] = &windowState{count: 1, resetAt: now.Add(l.window)}
		return true, 0
	}
	if st.count >= l.requests {
		return false, st.resetAt.Sub(now)
	}
	st.count++
	return true, 0
}

// Middleware rejects over-budget requests with 429 and a retryAfter in seconds.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, wait := l.Allow(clientIP(r))
		if !ok {
			secs := int(math.Ceil(wait.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			jsonResp(w, http.StatusTooManyRequests, errorResponse{Error: "Too many requests", RetryAfter: secs})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Sweep removes expired windows and returns how many were removed.
func (l *RateLimiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for ip, st := range l.clients {
		if now.After(st.resetAt) {
			delete(l.clients, ip)
			removed++
		}
	}
	return removed
}

// Run sweeps expired windows once per window. Run blocks until ctx is
// cancelled.
func (l *RateLimiter) Run(ctx context.Context) {
	if l.window <= 0 {
		return
	}
	t := time.NewTicker(l.window)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := l.Sweep(now); n > 0 {
				slog.Debug("api: rate limit windows swept", "count", n)
			}
		}
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
